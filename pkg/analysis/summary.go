// CLAUDE:SUMMARY Frequency tables over participant records: per-region summaries, gender filter and accent preference distributions.
package analysis

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hazyhaar/accent-atlas/pkg/survey"
)

// NameCount is one entry of a frequency table.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CountBy counts non-empty items in first-seen order.
func CountBy(items []string) []NameCount {
	index := make(map[string]int)
	out := []NameCount{}
	for _, s := range items {
		if s == "" {
			continue
		}
		i, ok := index[s]
		if !ok {
			i = len(out)
			index[s] = i
			out = append(out, NameCount{Name: s})
		}
		out[i].Count++
	}
	return out
}

// TopN returns the n largest counts; ties keep their input order.
func TopN(items []NameCount, n int) []NameCount {
	out := append([]NameCount(nil), items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// FilterByGender keeps records whose gender contains the (lowercased)
// filter. An empty filter or "all" keeps everything.
func FilterByGender(records []survey.ParticipantRecord, gender string) []survey.ParticipantRecord {
	gender = strings.ToLower(strings.TrimSpace(gender))
	if gender == "" || gender == "all" {
		return records
	}
	var out []survey.ParticipantRecord
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Gender), gender) {
			out = append(out, r)
		}
	}
	return out
}

// RegionSummary aggregates every response given for one region.
type RegionSummary struct {
	Region              survey.RegionKey `json:"region"`
	Responses           int              `json:"responses"`
	Names               []NameCount      `json:"names"`
	Liking              []NameCount      `json:"liking"`
	TokensWords         []NameCount      `json:"tokens_words"`
	TokensPronunciation []NameCount      `json:"tokens_pronunciation"`
	TokensGrammar       []NameCount      `json:"tokens_grammar"`
	Accents             []NameCount      `json:"accents"`
	AlsoTerms           []NameCount      `json:"also_terms"`
	QuebecPlaces        []NameCount      `json:"quebec_places"`
	AcadienPlaces       []NameCount      `json:"acadien_places"`

	// Yes/no questions, keyed by question, counting known answers only.
	Flags map[string][]NameCount `json:"flags"`
}

// Flag keys of RegionSummary.Flags.
const (
	FlagAccentsListed         = "accents_listed"
	FlagDiffSOSE              = "diff_so_se"
	FlagDiffMarseilleToulouse = "diff_marseille_toulouse"
	FlagParisiansHaveAccent   = "parisians_have_accent"
	FlagParisStandard         = "paris_standard"
)

// RegionResponses collects the responses of all records for region.
func RegionResponses(records []survey.ParticipantRecord, region survey.RegionKey) []survey.RegionalResponse {
	var out []survey.RegionalResponse
	for _, rec := range records {
		for _, r := range rec.RegionalResponses {
			if r.Region == region {
				out = append(out, r)
			}
		}
	}
	return out
}

// AlsoTermLists returns one term list per response for region, ready for
// BuildCoOccurrence.
func AlsoTermLists(records []survey.ParticipantRecord, region survey.RegionKey) [][]string {
	responses := RegionResponses(records, region)
	out := make([][]string, 0, len(responses))
	for _, r := range responses {
		out = append(out, r.AlsoTerms)
	}
	return out
}

func Summarize(records []survey.ParticipantRecord, region survey.RegionKey) RegionSummary {
	all := RegionResponses(records, region)

	var names, liking, words, pron, gram, accents, terms, quebec, acadien []string
	flags := map[string][]string{}
	for _, r := range all {
		name := r.NameCanonical
		if name == "" {
			name = r.NameRaw
		}
		names = append(names, strings.TrimSpace(name))
		if v, ok := r.Liking.Value(); ok {
			liking = append(liking, strconv.FormatFloat(v, 'f', -1, 64))
		}
		words = append(words, r.TokensWords...)
		pron = append(pron, r.TokensPronunciation...)
		gram = append(gram, r.TokensGrammar...)
		accents = append(accents, r.AccentsListed...)
		terms = append(terms, r.AlsoTerms...)
		if r.QuebecPlaces != nil {
			quebec = append(quebec, r.QuebecPlaces.Selected...)
		}
		acadien = append(acadien, r.AcadienPlaces...)

		listed := survey.No
		if len(r.AccentsListed) > 0 {
			listed = survey.Yes
		}
		addFlag(flags, FlagAccentsListed, listed)
		addFlag(flags, FlagDiffSOSE, r.DiffSOSE)
		addFlag(flags, FlagDiffMarseilleToulouse, r.DiffMarseilleToulouse)
		addFlag(flags, FlagParisiansHaveAccent, r.ParisiansHaveAccent)
		addFlag(flags, FlagParisStandard, r.ParisStandard)
	}

	s := RegionSummary{
		Region:              region,
		Responses:           len(all),
		Names:               CountBy(names),
		Liking:              CountBy(liking),
		TokensWords:         CountBy(words),
		TokensPronunciation: CountBy(pron),
		TokensGrammar:       CountBy(gram),
		Accents:             CountBy(accents),
		AlsoTerms:           CountBy(terms),
		QuebecPlaces:        CountBy(quebec),
		AcadienPlaces:       CountBy(acadien),
		Flags:               make(map[string][]NameCount, len(flags)),
	}
	for k, v := range flags {
		s.Flags[k] = CountBy(v)
	}
	return s
}

func addFlag(flags map[string][]string, key string, a survey.Answer) {
	if a.Known() {
		flags[key] = append(flags[key], a.String())
	}
}

// CategoryCount is the share of one preference category.
type CategoryCount struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Percent  float64 `json:"percent"`
}

// QuestionDistribution counts categories for one preference question.
type QuestionDistribution struct {
	Question string         `json:"question"`
	Counts   map[string]int `json:"counts"`
}

// Distribution summarises accent preference answers.
type Distribution struct {
	Answers     int                    `json:"answers"`
	Totals      []CategoryCount        `json:"totals"`
	PerQuestion []QuestionDistribution `json:"per_question"`
}

// AccentDistribution counts answers per category overall and per question.
// Totals exclude the catch-all category, carry a one-decimal percentage of
// the remaining answers and are sorted by count.
func AccentDistribution(records []survey.ParticipantRecord) Distribution {
	totals := make(map[string]int, len(survey.Categories))
	index := make(map[string]int)
	var d Distribution
	d.PerQuestion = []QuestionDistribution{}

	for _, rec := range records {
		for _, p := range rec.AccentPreferences {
			d.Answers++
			totals[p.Category]++
			q := p.QuestionLabel
			if q == "" {
				q = p.QuestionKey
			}
			i, ok := index[q]
			if !ok {
				i = len(d.PerQuestion)
				index[q] = i
				counts := make(map[string]int, len(survey.Categories))
				for _, c := range survey.Categories {
					counts[c] = 0
				}
				d.PerQuestion = append(d.PerQuestion, QuestionDistribution{Question: q, Counts: counts})
			}
			d.PerQuestion[i].Counts[p.Category]++
		}
	}

	var sum int
	for c, n := range totals {
		if c != survey.CategoryOther {
			sum += n
		}
	}
	for _, c := range survey.Categories {
		if c == survey.CategoryOther {
			continue
		}
		cc := CategoryCount{Category: c, Count: totals[c]}
		if sum > 0 {
			cc.Percent = float64(int(float64(cc.Count)/float64(sum)*1000+0.5)) / 10
		}
		d.Totals = append(d.Totals, cc)
	}
	sort.SliceStable(d.Totals, func(i, j int) bool { return d.Totals[i].Count > d.Totals[j].Count })
	return d
}
