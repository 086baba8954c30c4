package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Generate creates a URL and filename friendly slug. Latin diacritics are
// folded to ASCII; characters with no ASCII form are dropped, so the result
// may be empty.
//
// Examples:
//   - "Sunil Perera" → "sunil-perera"
//   - "Green Valley Farm (Pvt) Ltd." → "green-valley-farm-pvt-ltd"
//   - "Crème Brûlée" → "creme-brulee"
func Generate(name string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		name,
	)
	if err != nil {
		folded = name
	}

	s := strings.ToLower(strings.TrimSpace(folded))
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// GenerateOr returns Generate(name), or fallback when that is empty.
func GenerateOr(name, fallback string) string {
	if s := Generate(name); s != "" {
		return s
	}
	return fallback
}
