// CLAUDE:SUMMARY Regional free-text analyses (south, Canada, north, Paris): names, extra terms, description tokens, flags and liking.
package survey

import (
	"slices"
	"strings"

	"github.com/hazyhaar/accent-atlas/pkg/dict"
)

// RegionKey identifies one of the fixed regions of interest.
type RegionKey string

const (
	RegionSud    RegionKey = "sud"
	RegionCanada RegionKey = "canada"
	RegionNord   RegionKey = "nord"
	RegionParis  RegionKey = "paris"
)

// Regions lists the regions in output order.
var Regions = []RegionKey{RegionSud, RegionCanada, RegionNord, RegionParis}

// Known reports whether k is one of Regions.
func (k RegionKey) Known() bool {
	return slices.Contains(Regions, k)
}

// QuebecPlaces holds where a participant places the Québécois accent.
type QuebecPlaces struct {
	Selected    []string `json:"selected"`
	Partout     bool     `json:"partout,omitempty"`
	JeNeSaisPas bool     `json:"je_ne_sais_pas,omitempty"`
}

// RegionalResponse is a participant's description of one region's accent.
type RegionalResponse struct {
	ParticipantCode     string    `json:"participant_code"`
	Region              RegionKey `json:"region_key"`
	NameRaw             string    `json:"name_raw,omitempty"`
	NameCanonical       string    `json:"name_canonical,omitempty"`
	AlsoTerms           []string  `json:"also_terms,omitempty"`
	Personalities       []string  `json:"personalities,omitempty"`
	TokensWords         []string  `json:"tokens_words,omitempty"`
	TokensPronunciation []string  `json:"tokens_pronunciation,omitempty"`
	TokensGrammar       []string  `json:"tokens_grammar,omitempty"`
	AccentsListed       []string  `json:"accents_listed,omitempty"`
	Liking              Likert    `json:"liking"`

	DiffSOSE              Answer `json:"diff_so_se,omitempty"`
	DiffMarseilleToulouse Answer `json:"diff_marseille_toulouse,omitempty"`

	QuebecPlaces  *QuebecPlaces `json:"quebec_places,omitempty"`
	AcadienKnown  Answer        `json:"acadien_known,omitempty"`
	AcadienPlaces []string      `json:"acadien_places,omitempty"`
	AcadienTokens []string      `json:"acadien_tokens,omitempty"`

	ParisiansHaveAccent Answer `json:"parisians_have_accent,omitempty"`
	ParisStandard       Answer `json:"paris_standard,omitempty"`
}

func (r *RegionalResponse) hasData() bool {
	return r.NameRaw != "" ||
		len(r.AlsoTerms) > 0 ||
		len(r.TokensWords) > 0 ||
		len(r.TokensPronunciation) > 0 ||
		len(r.TokensGrammar) > 0 ||
		len(r.AcadienTokens) > 0
}

var regionAnchors = map[RegionKey]Predicate{
	RegionSud:    ContainsAny("sud de la France", "midi"),
	RegionCanada: ContainsAny("Canada", "Québec"),
	RegionNord:   ContainsAny("nord de la France"),
	RegionParis:  ContainsAny("Paris"),
}

var (
	fieldName          = ContainsAny("comment appelez-vous", "comment appelleriez-vous")
	fieldAlsoTerms     = Contains("autres termes")
	fieldDescription   = Contains("caractéris")
	fieldWords         = ContainsAny("mots", "vocabulaire")
	fieldPronunciation = Contains("prononciation")
	fieldGrammar       = Contains("grammaire")
	fieldPersonalities = Contains("personnalités")
	fieldAccents       = Contains("quels accents")
	fieldLiking        = ContainsAny("aimez-vous", "appréciez-vous")

	flagSOSE              = Contains("sud-ouest", "sud-est")
	flagMarseilleToulouse = Contains("marseille", "toulouse")

	quebecPlacesQ = AllOf(Contains("québécois"), ContainsAny("où parle", "où entend", "endroits", "lieux"))
	acadien       = Contains("acadien")
	acadienKnownQ = AllOf(acadien, Contains("connaissez"))
	acadienPlaceQ = AllOf(acadien, ContainsAny("où parle", "où entend", "endroits", "lieux"))
	acadienDescQ  = AllOf(acadien, Contains("caractéris"))

	parisiansAccentQ = Contains("parisiens", "accent")
	parisStandardQ   = Contains("paris", "standard")

	// Columns that belong to other sections even when they mention a region.
	notRegional = Not(AnyOf(isOrigin, isPreference, ratingColumn))
)

func (b *Builder) regionalResponses(m *Matcher, code string) []RegionalResponse {
	var out []RegionalResponse
	for _, key := range Regions {
		cols := m.FindAll(AllOf(regionAnchors[key], notRegional))
		r := b.region(key, cols, m, code)
		if r.hasData() {
			out = append(out, r)
		}
	}
	return out
}

func (b *Builder) region(key RegionKey, cols []Column, m *Matcher, code string) RegionalResponse {
	r := RegionalResponse{ParticipantCode: code, Region: key}

	first := func(p Predicate) (Column, bool) {
		for _, c := range cols {
			if p(c.Normalized) {
				return c, true
			}
		}
		return Column{}, false
	}
	all := func(p Predicate) []Column {
		var out []Column
		for _, c := range cols {
			if p(c.Normalized) {
				out = append(out, c)
			}
		}
		return out
	}

	if c, ok := first(fieldName); ok {
		r.NameRaw = c.Value.Text()
		if r.NameRaw != "" {
			r.NameCanonical = b.labels.Canonicalize(r.NameRaw)
		}
	}

	for _, c := range all(fieldAlsoTerms) {
		for _, t := range checkboxItems(c) {
			r.AlsoTerms = appendUnique(r.AlsoTerms, b.labels.Canonicalize(t))
		}
	}

	// The Acadian description belongs to the Canadian block's own token list.
	for _, c := range all(AllOf(fieldDescription, Not(acadien))) {
		tokens := dict.Tokenize(c.Value.String())
		switch {
		case fieldWords(c.Normalized):
			r.TokensWords = append(r.TokensWords, tokens...)
		case fieldPronunciation(c.Normalized):
			r.TokensPronunciation = append(r.TokensPronunciation, tokens...)
		case fieldGrammar(c.Normalized):
			r.TokensGrammar = append(r.TokensGrammar, tokens...)
		}
	}

	for _, c := range all(fieldPersonalities) {
		for _, p := range checkboxItems(c) {
			r.Personalities = appendUnique(r.Personalities, p)
		}
	}

	for _, c := range all(fieldAccents) {
		for _, a := range checkboxItems(c) {
			r.AccentsListed = appendUnique(r.AccentsListed, b.accents.Canonicalize(a))
		}
	}

	if c, ok := first(fieldLiking); ok {
		r.Liking = ToLikert(c.Value)
	}

	switch key {
	case RegionSud:
		// These two questions name cities rather than the region itself.
		if c, ok := m.Find(flagSOSE); ok {
			r.DiffSOSE = ParseYes(c.Value)
		}
		if c, ok := m.Find(flagMarseilleToulouse); ok {
			r.DiffMarseilleToulouse = ParseYes(c.Value)
		}
	case RegionCanada:
		r.QuebecPlaces = quebecPlaces(m.FindAll(quebecPlacesQ))
		if c, ok := m.Find(acadienKnownQ); ok {
			r.AcadienKnown = ParseYes(c.Value)
		}
		for _, c := range m.FindAll(acadienPlaceQ) {
			for _, p := range checkboxItems(c) {
				r.AcadienPlaces = appendUnique(r.AcadienPlaces, p)
			}
		}
		for _, c := range m.FindAll(acadienDescQ) {
			r.AcadienTokens = append(r.AcadienTokens, dict.Tokenize(c.Value.String())...)
		}
	case RegionParis:
		if c, ok := m.Find(parisiansAccentQ); ok {
			r.ParisiansHaveAccent = ParseYes(c.Value)
		}
		if c, ok := m.Find(parisStandardQ); ok {
			r.ParisStandard = ParseYes(c.Value)
		}
	}
	return r
}

func quebecPlaces(cols []Column) *QuebecPlaces {
	if len(cols) == 0 {
		return nil
	}
	qp := &QuebecPlaces{Selected: []string{}}
	for _, c := range cols {
		for _, p := range checkboxItems(c) {
			switch dict.Normalize(p) {
			case "partout":
				qp.Partout = true
			case "je ne sais pas":
				qp.JeNeSaisPas = true
			default:
				qp.Selected = appendUnique(qp.Selected, p)
			}
		}
	}
	return qp
}

// checkboxItems reads a multiple-choice cell. A ticked checkbox column
// ("... [Montréal]" = "Oui") yields its bracket label; an explicit "Non"
// yields nothing; any other text is split into list items.
func checkboxItems(c Column) []string {
	switch ParseYes(c.Value) {
	case Yes:
		if l := c.Label(); l != "" {
			return []string{l}
		}
		return nil
	case No:
		return nil
	}
	return splitList(c.Value.String())
}

func splitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ',', ';', '/', '\n', '\r':
			return true
		}
		return false
	})
	var out []string
	for _, p := range parts {
		out = appendUnique(out, strings.TrimSpace(p))
	}
	return out
}

func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}
