// CLAUDE:SUMMARY Likert, yes/no and numeral coercion of raw cells with explicit "unrated"/"unknown" outcomes instead of in-band zeros.
package survey

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/hazyhaar/accent-atlas/pkg/dict"
)

// Likert is a 1..5 rating or "unrated". The zero Likert is unrated.
type Likert struct {
	value float64
	ok    bool
}

// Rated returns a rating clamped into [1,5].
func Rated(v float64) Likert {
	if math.IsNaN(v) {
		return Likert{}
	}
	return Likert{value: math.Min(5, math.Max(1, v)), ok: true}
}

// Value returns the rating and whether one was given.
func (l Likert) Value() (float64, bool) { return l.value, l.ok }

// Float returns the rating, or NaN when unrated.
func (l Likert) Float() float64 {
	if !l.ok {
		return math.NaN()
	}
	return l.value
}

func (l Likert) IsRated() bool { return l.ok }

func (l Likert) MarshalJSON() ([]byte, error) {
	if !l.ok {
		return []byte("null"), nil
	}
	return json.Marshal(l.value)
}

func (l *Likert) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = Likert{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*l = Rated(f)
	return nil
}

// The verbal ladder used by the questionnaire, checked in order.
var likertLadder = []struct {
	phrase string
	score  float64
}{
	{"pas du tout", 1},
	{"pas trop", 2},
	{"peut etre", 3},
	{"un peu", 4},
	{"absolument", 5},
}

var numeral = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)

func firstNumeral(s string) (float64, bool) {
	m := numeral.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ToLikert coerces a cell to a rating. Numbers are clamped into [1,5]; text is
// matched against the verbal ladder, then against its first numeral.
// Anything else is unrated.
func ToLikert(v Value) Likert {
	switch v.Kind() {
	case KindNumber:
		n, _ := v.Number()
		return Rated(n)
	case KindString:
		n := dict.Normalize(v.String())
		if n == "" {
			return Likert{}
		}
		for _, step := range likertLadder {
			if strings.Contains(n, step.phrase) {
				return Rated(step.score)
			}
		}
		if f, ok := firstNumeral(n); ok {
			return Rated(f)
		}
	}
	return Likert{}
}

// Answer is a tri-state yes/no.
type Answer int8

const (
	Unknown Answer = iota
	Yes
	No
)

func (a Answer) Known() bool { return a != Unknown }

// Bool collapses Unknown into false.
func (a Answer) Bool() bool { return a == Yes }

func (a Answer) String() string {
	switch a {
	case Yes:
		return "yes"
	case No:
		return "no"
	}
	return "unknown"
}

func (a Answer) MarshalJSON() ([]byte, error) {
	switch a {
	case Yes:
		return []byte("true"), nil
	case No:
		return []byte("false"), nil
	}
	return []byte("null"), nil
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true":
		*a = Yes
	case "false":
		*a = No
	default:
		*a = Unknown
	}
	return nil
}

var (
	yesWords = map[string]bool{"oui": true, "yes": true, "true": true}
	noWords  = map[string]bool{"non": true, "no": true, "false": true}
)

// ParseYes reads a yes/no cell. Booleans pass through; text is normalized,
// stripped of punctuation and compared against the closed yes and no sets.
func ParseYes(v Value) Answer {
	switch v.Kind() {
	case KindBool:
		b, _ := v.Bool()
		if b {
			return Yes
		}
		return No
	case KindString:
		w := stripPunct(dict.Normalize(v.String()))
		switch {
		case yesWords[w]:
			return Yes
		case noWords[w]:
			return No
		}
	}
	return Unknown
}

// ToYes is ParseYes collapsed to a bool: anything but an explicit yes is false.
func ToYes(v Value) bool {
	return ParseYes(v).Bool()
}

// ToNumber extracts the first numeral of a cell, or 0.
func ToNumber(v Value) float64 {
	switch v.Kind() {
	case KindNumber:
		n, _ := v.Number()
		return n
	case KindString:
		if f, ok := firstNumeral(v.String()); ok {
			return f
		}
	}
	return 0
}

func stripPunct(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
