// CLAUDE:SUMMARY Column matcher: predicates over normalized column names and the order-dependent stimulus block scan.
package survey

import (
	"strings"

	"github.com/hazyhaar/accent-atlas/pkg/dict"
)

// MaxStimuli is the number of audio stimuli played in the questionnaire.
const MaxStimuli = 7

// Predicate tests a normalized column name.
type Predicate func(name string) bool

// Contains matches names containing every needle. Needles are normalized.
func Contains(needles ...string) Predicate {
	ns := normalizeAll(needles)
	return func(name string) bool {
		for _, n := range ns {
			if !strings.Contains(name, n) {
				return false
			}
		}
		return true
	}
}

// ContainsAny matches names containing at least one needle.
func ContainsAny(needles ...string) Predicate {
	ns := normalizeAll(needles)
	return func(name string) bool {
		for _, n := range ns {
			if strings.Contains(name, n) {
				return true
			}
		}
		return false
	}
}

// HasPrefix matches names starting with prefix.
func HasPrefix(prefix string) Predicate {
	p := dict.Normalize(prefix)
	return func(name string) bool { return strings.HasPrefix(name, p) }
}

func AllOf(ps ...Predicate) Predicate {
	return func(name string) bool {
		for _, p := range ps {
			if !p(name) {
				return false
			}
		}
		return true
	}
}

func AnyOf(ps ...Predicate) Predicate {
	return func(name string) bool {
		for _, p := range ps {
			if p(name) {
				return true
			}
		}
		return false
	}
}

func Not(p Predicate) Predicate {
	return func(name string) bool { return !p(name) }
}

func normalizeAll(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if n := dict.Normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Column is one cell of a row together with its normalized name.
type Column struct {
	Index      int
	Name       string
	Normalized string
	Value      Value
}

// Label returns the text between the last pair of square brackets of the
// column name, e.g. "français" for "... ? [français]".
func (c Column) Label() string {
	open := strings.LastIndex(c.Name, "[")
	end := strings.LastIndex(c.Name, "]")
	if open < 0 || end <= open {
		return ""
	}
	return strings.TrimSpace(c.Name[open+1 : end])
}

// Matcher locates conceptual fields in a row whose column names are unstable.
// Column names are normalized once.
type Matcher struct {
	cols []Column
}

func NewMatcher(row *Row) *Matcher {
	m := &Matcher{cols: make([]Column, 0, row.Len())}
	for i, name := range row.cols {
		m.cols = append(m.cols, Column{
			Index:      i,
			Name:       name,
			Normalized: dict.Normalize(name),
			Value:      row.vals[name],
		})
	}
	return m
}

// Columns returns every column in row order.
func (m *Matcher) Columns() []Column { return m.cols }

// FindByIncludes returns the value of the first column whose normalized name
// contains needle.
func (m *Matcher) FindByIncludes(needle string) (Value, bool) {
	c, ok := m.Find(Contains(needle))
	return c.Value, ok
}

// Find returns the first column matching p.
func (m *Matcher) Find(p Predicate) (Column, bool) {
	for _, c := range m.cols {
		if p(c.Normalized) {
			return c, true
		}
	}
	return Column{}, false
}

// FindAll returns every column matching p, in row order.
func (m *Matcher) FindAll(p Predicate) []Column {
	var out []Column
	for _, c := range m.cols {
		if p(c.Normalized) {
			out = append(out, c)
		}
	}
	return out
}

var (
	isOrigin      = Contains("d'après vous", "d'où vien")
	isPreference  = HasPrefix("lequel des accents suivants est pour vous")
	ratingColumn  = AllOf(Contains("dans quelle mesure"), Not(isPreference))
	isSympathy    = AllOf(ratingColumn, Contains("sympathique"))
	isCorrectness = AllOf(ratingColumn, Contains("correct"))
	isTeacher     = AllOf(ratingColumn, Contains("professeur"))
)

// StimulusBlock is the raw material of one stimulus: the origin answer and
// the three rating cells (absent when no column was found).
type StimulusBlock struct {
	Number      int
	Origin      Value
	Sympathy    Value
	Correctness Value
	Teacher     Value
}

// StimulusBlocks groups columns into per-stimulus blocks. Each origin column
// opens a block; the scan then moves forward for the first sympathy,
// correctness and teacher columns, stopping at the next origin column or
// once all three are found. At most MaxStimuli blocks are returned.
func (m *Matcher) StimulusBlocks() []StimulusBlock {
	var blocks []StimulusBlock
	for i := 0; i < len(m.cols) && len(blocks) < MaxStimuli; i++ {
		if !isOrigin(m.cols[i].Normalized) {
			continue
		}
		b := StimulusBlock{Number: len(blocks) + 1, Origin: m.cols[i].Value}
		var haveS, haveC, haveT bool

		j := i + 1
		for ; j < len(m.cols); j++ {
			c := m.cols[j]
			if isOrigin(c.Normalized) {
				break
			}
			switch {
			case !haveS && isSympathy(c.Normalized):
				b.Sympathy, haveS = c.Value, true
			case !haveC && isCorrectness(c.Normalized):
				b.Correctness, haveC = c.Value, true
			case !haveT && isTeacher(c.Normalized):
				b.Teacher, haveT = c.Value, true
			}
			if haveS && haveC && haveT {
				j++
				break
			}
		}
		blocks = append(blocks, b)
		i = j - 1
	}
	return blocks
}
