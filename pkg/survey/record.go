// CLAUDE:SUMMARY Builds canonical participant records from raw survey rows (demographics, stimuli, preferences, regions).
package survey

import (
	"strconv"

	"github.com/hazyhaar/accent-atlas/pkg/dict"
)

// Known column names of the questionnaire export.
const (
	ColID               = "ID de la réponse"
	ColSubmissionDate   = "Date de soumission"
	ColGender           = "Veuillez indiquer votre genre"
	ColAge              = "Veuillez indiquer votre âge"
	ColBirthplace       = "Qù êtes-vous né et où avez-vous grandi ?"
	ColCurrentResidence = "Où habitez-vous actuellement (hors d'Allemagne) et depuis combien de mois / combien d'années ? [Où ?]"
	ColEducation        = "Quel est le dernier diplôme que vous avez obtenu ?"
	ColFatherOrigin     = "Quel est l'origine de votre père ?"
	ColMotherOrigin     = "Quel est l'origine de votre mère ?"
	ColNativeFrench     = "Quelle est ou quelles sont votre/vos langue(s) maternelle(s) ? [français]"
	ColNativeOther      = "Quelle est ou quelles sont votre/vos langue(s) maternelle(s) ? [Autre]"
	ColOtherLanguages   = "Quelle(s) autre(s) langue(s) maîtrisez-vous ?A quel niveau (environ) ?"
	ColKnownAccents     = "Quels accents du français connaissez-vous ?"
	ColHasAccent        = "Avez-vous un accent ?"
	ColOwnAccent        = "Avez-vous un accent ? [Autre]"
	ColParticipantCode  = "Veuillez saisir ici votre code participant indiqué dans l'outil Mental Maps."
)

// StimulusRating is one rated audio stimulus.
type StimulusRating struct {
	StimulusNumber     int    `json:"stimulus_number"`
	Origin             string `json:"origin"`
	Sympathy           Likert `json:"sympathy_rating"`
	Correctness        Likert `json:"correctness_rating"`
	TeacherSuitability Likert `json:"teacher_suitability_rating"`
}

// ParticipantRecord is the canonical form of one survey submission.
type ParticipantRecord struct {
	ID               string `json:"id"`
	ParticipantCode  string `json:"participant_code"`
	SubmissionDate   string `json:"submission_date"`
	Gender           string `json:"gender"`
	Age              int    `json:"age"`
	Birthplace       string `json:"birthplace"`
	CurrentResidence string `json:"current_residence"`
	Education        string `json:"education"`
	FatherOrigin     string `json:"father_origin"`
	MotherOrigin     string `json:"mother_origin"`

	NativeLanguages []string `json:"native_languages"`
	OtherLanguages  []string `json:"other_languages"`
	KnownAccents    []string `json:"known_accents"`

	// HasAccent is true only for an explicit yes; AccentAnswer keeps the
	// distinction between "no" and "not answered".
	HasAccent    bool   `json:"has_accent"`
	AccentAnswer Answer `json:"accent_answer"`
	OwnAccent    string `json:"own_accent"`

	StimulusRatings   []StimulusRating   `json:"stimulus_ratings"`
	AccentPreferences []AccentPreference `json:"accent_preferences"`
	RegionalResponses []RegionalResponse `json:"regional_responses"`
}

// Builder turns rows into participant records. It holds only immutable rule
// tables and is safe for concurrent use.
type Builder struct {
	labels  *dict.RuleSet
	accents *dict.RuleSet

	preferenceSynonyms bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithLabelRules replaces the table used for region names and extra terms.
func WithLabelRules(rs *dict.RuleSet) Option {
	return func(b *Builder) {
		if rs != nil {
			b.labels = rs
		}
	}
}

// WithAccentRules replaces the accent synonym table.
func WithAccentRules(rs *dict.RuleSet) Option {
	return func(b *Builder) {
		if rs != nil {
			b.accents = rs
		}
	}
}

// WithPreferenceSynonyms lets accent preference answers that name no
// category fall back to the accent synonym table instead of CategoryOther.
func WithPreferenceSynonyms() Option {
	return func(b *Builder) { b.preferenceSynonyms = true }
}

// WithRegistry takes the label and accent tables from reg, so manifests
// loaded from the rules directory override the built-ins.
func WithRegistry(reg *dict.Registry) Option {
	return func(b *Builder) {
		if rs, ok := reg.Get(dict.TableLabels); ok {
			b.labels = rs
		}
		if rs, ok := reg.Get(dict.TableAccents); ok {
			b.accents = rs
		}
	}
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{labels: dict.LabelRules, accents: dict.AccentRules}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Build derives the record of one row. index is the row's position and
// provides the fallback ID. Build never fails: missing or malformed cells
// degrade to empty, zero, unrated or unknown.
func (b *Builder) Build(row *Row, index int) ParticipantRecord {
	if row == nil {
		row = NewRow()
	}
	m := NewMatcher(row)

	rec := ParticipantRecord{
		ID:               row.Text(ColID),
		ParticipantCode:  row.Text(ColParticipantCode),
		SubmissionDate:   row.Text(ColSubmissionDate),
		Gender:           row.Text(ColGender),
		Birthplace:       row.Text(ColBirthplace),
		CurrentResidence: row.Text(ColCurrentResidence),
		Education:        row.Text(ColEducation),
		FatherOrigin:     row.Text(ColFatherOrigin),
		MotherOrigin:     row.Text(ColMotherOrigin),
		OwnAccent:        row.Text(ColOwnAccent),
	}
	if rec.ID == "" {
		rec.ID = strconv.Itoa(index + 1)
	}

	ageCell, _ := row.Get(ColAge)
	if age := int(ToNumber(ageCell)); age > 0 {
		rec.Age = age
	}

	rec.NativeLanguages = nativeLanguages(row)
	rec.OtherLanguages = nonNilSlice(splitList(row.Text(ColOtherLanguages)))
	rec.KnownAccents = nonNilSlice(splitList(row.Text(ColKnownAccents)))

	accent, _ := row.Get(ColHasAccent)
	rec.AccentAnswer = ParseYes(accent)
	rec.HasAccent = rec.AccentAnswer.Bool()

	rec.StimulusRatings = make([]StimulusRating, 0, MaxStimuli)
	for _, blk := range m.StimulusBlocks() {
		rec.StimulusRatings = append(rec.StimulusRatings, StimulusRating{
			StimulusNumber:     blk.Number,
			Origin:             blk.Origin.Text(),
			Sympathy:           ToLikert(blk.Sympathy),
			Correctness:        ToLikert(blk.Correctness),
			TeacherSuitability: ToLikert(blk.Teacher),
		})
	}

	rec.AccentPreferences = nonNilSlice(b.accentPreferences(m, rec.ParticipantCode))
	rec.RegionalResponses = nonNilSlice(b.regionalResponses(m, rec.ParticipantCode))
	return rec
}

// BuildAll validates the document and builds every record in order. A
// structurally invalid document yields a *ValidationError and no records.
func (b *Builder) BuildAll(rows []*Row) ([]ParticipantRecord, error) {
	if err := ValidateRows(rows); err != nil {
		return nil, err
	}
	out := make([]ParticipantRecord, len(rows))
	for i, row := range rows {
		out[i] = b.Build(row, i)
	}
	return out, nil
}

// The French checkbox holds a yes/no or the language itself; the "Autre"
// column is free text.
func nativeLanguages(row *Row) []string {
	var langs []string
	fr, _ := row.Get(ColNativeFrench)
	switch ParseYes(fr) {
	case Yes:
		langs = appendUnique(langs, "français")
	case Unknown:
		for _, l := range splitList(fr.String()) {
			langs = appendUnique(langs, l)
		}
	}
	for _, l := range splitList(row.Text(ColNativeOther)) {
		langs = appendUnique(langs, l)
	}
	return nonNilSlice(langs)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
