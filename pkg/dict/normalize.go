// CLAUDE:SUMMARY Text normalization for survey column names and French free-text answers (accents, apostrophes, hyphens, case).
package dict

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer transforms a term before matching.
type Normalizer func(string) string

// stripAccents returns a fresh chain per call; chained transformers carry
// state and are not safe for concurrent use.
func stripAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

var apostrophes = strings.NewReplacer(
	"'", "",
	"’", "",
	"‘", "",
	"ʼ", "",
	"´", "",
	"`", "",
)

// Normalize strips diacritics and apostrophes, lowercases, and collapses runs
// of whitespace and hyphens into single spaces.
//
//	"D'après vous, d'où vient-il ?" -> "dapres vous, dou vient il ?"
//
// Normalize is idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	result, _, _ := transform.String(stripAccents(), s)
	result = strings.ToLower(apostrophes.Replace(result))
	return strings.Join(strings.FieldsFunc(result, isSeparator), " ")
}

// FoldASCII lowercases and strips accents, leaving punctuation in place
// (e.g. "Québécois-Acadien" -> "quebecois-acadien").
func FoldASCII(s string) string {
	result, _, _ := transform.String(stripAccents(), strings.ToLower(s))
	return result
}

func isSeparator(r rune) bool {
	switch r {
	case '-', '‐', '‑':
		return true
	}
	return unicode.IsSpace(r)
}
