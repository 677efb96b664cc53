package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// NormalizeName returns the comparison key for a catalog name: surrounding
// whitespace trimmed, inner runs collapsed to one space, combining marks
// stripped and the result case folded. "  Juan   Pérez " and "juan perez"
// share a key.
func NormalizeName(name string) string {
	collapsed := strings.Join(strings.Fields(name), " ")
	if collapsed == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, collapsed)
	if err != nil {
		stripped = collapsed
	}
	return folder.String(stripped)
}

// CleanName is the stored form of a submitted name.
func CleanName(name string) string {
	return strings.TrimSpace(name)
}
