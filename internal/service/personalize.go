package service

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

var placeholderRe = regexp.MustCompile(`\[([^\]]+)\]`)

// fuzzyCutoff es el mínimo ratio de similitud para aceptar un atributo parecido.
const fuzzyCutoff = 0.6

// Personalize reemplaza los placeholders [Campo] del mensaje con los atributos
// del deudor. El nombre se normaliza (minúsculas, espacios a "_") y si no hay
// coincidencia exacta se busca el atributo más parecido. Los placeholders sin
// resolver quedan tal cual.
func Personalize(template string, attrs map[string]any) string {
	normalized := make(map[string]any, len(attrs))
	keys := make([]string, 0, len(attrs))
	for k, v := range attrs {
		nk := placeholderKey(k)
		if _, dup := normalized[nk]; dup {
			continue
		}
		normalized[nk] = v
		keys = append(keys, nk)
	}
	sort.Strings(keys)

	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		field := match[1 : len(match)-1]
		key := placeholderKey(field)

		value, ok := normalized[key]
		if !ok {
			best := closestKey(key, keys)
			if best == "" {
				return match
			}
			value = normalized[best]
		}
		if value == nil {
			return match
		}
		return formatAttr(value)
	})
}

func placeholderKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

// closestKey devuelve el candidato con mayor ratio de similitud por
// caracteres, si supera fuzzyCutoff.
func closestKey(word string, candidates []string) string {
	target := strings.Split(word, "")
	matcher := difflib.NewMatcher(nil, target)

	best, bestScore := "", 0.0
	for _, c := range candidates {
		matcher.SetSeq1(strings.Split(c, ""))
		if matcher.RealQuickRatio() < fuzzyCutoff || matcher.QuickRatio() < fuzzyCutoff {
			continue
		}
		if score := matcher.Ratio(); score >= fuzzyCutoff && score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

func formatAttr(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		if n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'f', 2, 64)
	case int64:
		return strconv.FormatInt(n, 10)
	case int:
		return strconv.Itoa(n)
	default:
		return fmt.Sprint(n)
	}
}
