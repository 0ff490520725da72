package service

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonWordRe  = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	spacesRe   = regexp.MustCompile(`\s+`)
	dniRe      = regexp.MustCompile(`\b\d{7,8}\b`)
	dniSplitRe = regexp.MustCompile(`\b\d{1,2}\.\d{3}\.\d{3}\b`)
)

// foldText pasa a minúsculas, quita tildes y signos y colapsa espacios.
// "¡Sí, dale!" queda "si dale".
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = nonWordRe.ReplaceAllString(folded, " ")
	return strings.TrimSpace(spacesRe.ReplaceAllString(folded, " "))
}

// findDNIs devuelve los números de 7 u 8 dígitos del texto. Acepta el
// formato con puntos (45.580.095).
func findDNIs(s string) []string {
	var out []string
	for _, m := range dniSplitRe.FindAllString(s, -1) {
		out = append(out, strings.ReplaceAll(m, ".", ""))
	}
	out = append(out, dniRe.FindAllString(s, -1)...)
	return out
}

func containsWord(folded, word string) bool {
	return strings.Contains(" "+folded+" ", " "+word+" ")
}

func containsAny(folded string, phrases []string) bool {
	for _, p := range phrases {
		if containsWord(folded, p) {
			return true
		}
	}
	return false
}
