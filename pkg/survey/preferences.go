package survey

import (
	"strings"

	"github.com/hazyhaar/accent-atlas/pkg/dict"
)

// MaxPreferences bounds the number of "which accent is ... for you" questions.
const MaxPreferences = 14

// Accent preference categories. The set is closed: anything unrecognized is
// CategoryOther.
const (
	CategoryParisien  = "parisien"
	CategoryQuebecois = "québécois"
	CategorySud       = "du sud de la france"
	CategoryAlsacien  = "alsacien"
	CategoryBreton    = "breton"
	CategoryAfricain  = "africain"
	CategoryOther     = "autre"
)

// Categories lists the closed preference categories in display order.
var Categories = []string{
	CategoryParisien, CategoryQuebecois, CategorySud,
	CategoryAlsacien, CategoryBreton, CategoryAfricain, CategoryOther,
}

const preferencePrefix = "lequel des accents suivants est pour vous"

// AccentPreference is one answered "which accent is ... for you" question.
type AccentPreference struct {
	QuestionLabel   string `json:"question_label"`
	QuestionKey     string `json:"question_key"`
	Category        string `json:"category"`
	ParticipantCode string `json:"participant_code"`
	Answer          string `json:"answer"`
}

// ClassifyAccent maps a free-text answer onto the closed category set: the
// normalized answer must equal or contain a category name, otherwise it is
// CategoryOther.
func ClassifyAccent(answer string) string {
	n := dict.Normalize(answer)
	if n == "" {
		return CategoryOther
	}
	for _, c := range Categories[:len(Categories)-1] {
		if strings.Contains(n, dict.Normalize(c)) {
			return c
		}
	}
	return CategoryOther
}

// ClassifyAccentWith is ClassifyAccent with a fallback through an accent
// synonym table, so "Marseille" or "toulousain" land in a category instead
// of CategoryOther.
func ClassifyAccentWith(answer string, synonyms *dict.RuleSet) string {
	if c := ClassifyAccent(answer); c != CategoryOther || synonyms == nil {
		return c
	}
	mapped := synonyms.Canonicalize(answer)
	for _, c := range Categories[:len(Categories)-1] {
		if mapped == c {
			return c
		}
	}
	return CategoryOther
}

func (b *Builder) accentPreferences(m *Matcher, code string) []AccentPreference {
	cols := m.FindAll(isPreference)
	if len(cols) > MaxPreferences {
		cols = cols[:MaxPreferences]
	}
	var prefs []AccentPreference
	for _, c := range cols {
		answer := c.Value.Text()
		if answer == "" {
			continue
		}
		category := ClassifyAccent(answer)
		if b.preferenceSynonyms {
			category = ClassifyAccentWith(answer, b.accents)
		}
		prefs = append(prefs, AccentPreference{
			QuestionLabel:   preferenceLabel(c),
			QuestionKey:     c.Normalized,
			Category:        category,
			ParticipantCode: code,
			Answer:          answer,
		})
	}
	return prefs
}

// preferenceLabel is the bracketed sub-question when present, otherwise the
// part of the normalized name after the common prefix.
func preferenceLabel(c Column) string {
	if l := c.Label(); l != "" {
		return l
	}
	rest := strings.TrimPrefix(c.Normalized, dict.Normalize(preferencePrefix))
	return strings.Trim(rest, " ?:.,")
}
