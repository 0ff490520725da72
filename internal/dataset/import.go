package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"

	"cobranza-bot/internal/domain"
)

// Columnas que se guardan como atributos propios del deudor.
var standardColumns = map[string]struct{}{
	"phone": {},
	"dni":   {},
	"email": {},
	"state": {},
	"name":  {},
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"01-02-06",
	"1/2/06 15:04",
}

const isoLayout = "2006-01-02T15:04:05"

// Import es el resultado de interpretar una tabla de deudores.
type Import struct {
	Fields  []domain.CustomField
	Debtors []domain.Debtor
}

// Build valida el encabezado, infiere los campos personalizados y arma un
// deudor por fila. Las celdas vacías no se guardan en custom_data.
func Build(t Table) (Import, error) {
	columns := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		key := strings.ToLower(h)
		if _, ok := standardColumns[key]; ok {
			if _, seen := columns[key]; !seen {
				columns[key] = i
			}
		}
	}
	if _, ok := columns["phone"]; !ok {
		return Import{}, ErrMissingPhone
	}

	var out Import
	types := make(map[int]string)
	for i, h := range t.Header {
		if h == "" || isStandard(h) {
			continue
		}
		fieldType := InferFieldType(column(t, i))
		types[i] = fieldType
		out.Fields = append(out.Fields, domain.CustomField{Name: h, FieldType: fieldType})
	}

	for _, row := range t.Rows {
		d := domain.Debtor{
			Phone:      cell(row, columns, "phone"),
			DNI:        cell(row, columns, "dni"),
			Email:      cell(row, columns, "email"),
			Name:       cell(row, columns, "name"),
			State:      domain.StateGris,
			CustomData: map[string]any{},
		}
		if s, ok := domain.ParseState(cell(row, columns, "state")); ok {
			d.State = s
		}
		for i, fieldType := range types {
			if row[i] == "" {
				continue
			}
			d.CustomData[t.Header[i]] = ConvertValue(row[i], fieldType)
		}
		out.Debtors = append(out.Debtors, d)
	}
	return out, nil
}

// InferFieldType mira el primer valor no vacío: número, fecha o texto.
func InferFieldType(values []string) string {
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := parseNumber(v); ok {
			return domain.FieldTypeFloat
		}
		if _, ok := parseDate(v); ok {
			return domain.FieldTypeDate
		}
		return domain.FieldTypeString
	}
	return domain.FieldTypeString
}

// ConvertValue pasa una celda al tipo JSON que corresponde a su campo.
// Si la conversión falla se conserva el texto.
func ConvertValue(raw, fieldType string) any {
	switch fieldType {
	case domain.FieldTypeFloat, domain.FieldTypeInt:
		if n, ok := parseNumber(raw); ok {
			return n
		}
	case domain.FieldTypeDate:
		if ts, ok := parseDate(raw); ok {
			return ts.Format(isoLayout)
		}
	}
	return raw
}

func parseNumber(v string) (any, bool) {
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i, true
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f, true
	}
	return nil, false
}

func parseDate(v string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func isStandard(h string) bool {
	_, ok := standardColumns[strings.ToLower(h)]
	return ok
}

func column(t Table, idx int) []string {
	values := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		values = append(values, row[idx])
	}
	return values
}

func cell(row []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok {
		return ""
	}
	return row[idx]
}
