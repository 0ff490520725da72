// Package dataset lee archivos de deudores (xlsx, csv, txt) y los convierte
// en campos personalizados y filas listas para importar.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("Formato de archivo no soportado")
	ErrMissingPhone      = errors.New("El archivo debe contener al menos la columna 'phone'")
	ErrEmptyFile         = errors.New("El archivo está vacío")
)

// Table es el contenido crudo de un archivo: encabezado y filas de texto.
type Table struct {
	Header []string
	Rows   [][]string
}

// Parse elige el lector según la extensión del archivo.
func Parse(filename string, r io.Reader) (Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return ParseXLSX(r)
	case ".csv", ".txt":
		data, err := io.ReadAll(r)
		if err != nil {
			return Table{}, fmt.Errorf("read file: %w", err)
		}
		return ParseDelimited(data)
	default:
		return Table{}, ErrUnsupportedFormat
	}
}

// ParseXLSX lee la primera hoja del libro.
func ParseXLSX(r io.Reader) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Table{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return newTable(rows)
}

// ParseDelimited detecta el separador entre , ; tab y | y lee el texto como CSV.
func ParseDelimited(data []byte) (Table, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return Table{}, ErrEmptyFile
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = SniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read csv: %w", err)
	}
	return newTable(records)
}

var candidateDelimiters = []rune{',', ';', '\t', '|'}

// SniffDelimiter devuelve el separador que aparece la misma cantidad de veces
// en las primeras líneas. Ante empate gana el más frecuente; por defecto ','.
func SniffDelimiter(data []byte) rune {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() && len(lines) < 10 {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return ','
	}

	best, bestScore := ',', 0
	for _, d := range candidateDelimiters {
		first := strings.Count(lines[0], string(d))
		if first == 0 {
			continue
		}
		consistent := true
		for _, l := range lines[1:] {
			if strings.Count(l, string(d)) != first {
				consistent = false
				break
			}
		}
		score := first
		if consistent {
			score += 1000
		}
		if score > bestScore {
			best, bestScore = d, score
		}
	}
	return best
}

func newTable(records [][]string) (Table, error) {
	for len(records) > 0 && blankRow(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return Table{}, ErrEmptyFile
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	t := Table{Header: header}
	for _, rec := range records[1:] {
		if blankRow(rec) {
			continue
		}
		row := make([]string, len(header))
		for i := range header {
			if i < len(rec) {
				row[i] = strings.TrimSpace(rec[i])
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func blankRow(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
