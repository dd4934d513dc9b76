package dict

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var stopwords = map[string]bool{
	"les": true, "des": true, "une": true, "est": true, "sont": true,
	"pour": true, "par": true, "avec": true, "sans": true, "dans": true,
	"sur": true, "que": true, "qui": true, "quoi": true, "pas": true,
	"plus": true, "tres": true, "mais": true, "donc": true, "car": true,
	"leur": true, "leurs": true, "nous": true, "vous": true, "ils": true,
	"elles": true, "son": true, "ses": true, "mon": true, "mes": true,
	"tout": true, "tous": true, "comme": true, "aussi": true, "etre": true,
	"avoir": true, "fait": true, "cette": true, "ces": true, "aux": true,
}

// IsStopword reports whether the folded token is in the French stopword set.
func IsStopword(token string) bool {
	return stopwords[token]
}

// Tokenize folds text to lowercase ASCII, turns every rune that is neither a
// letter nor a hyphen into a separator, and drops tokens of two runes or
// fewer as well as stopwords. Order is preserved; duplicates are kept.
func Tokenize(text string) []string {
	folded := FoldASCII(text)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if utf8.RuneCountInString(f) <= 2 || stopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
