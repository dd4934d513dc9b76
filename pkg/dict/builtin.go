package dict

// Built-in rule table identifiers.
const (
	TableLabels       = "labels"
	TableAccents      = "accents"
	TableCanadaPlaces = "canada-places"
)

// Rule order matters: every label must map back to itself, so more specific
// labels come before the broad ones they would otherwise fall into.
var labelRules = []Rule{
	{Label: "Sud (Midi/Occitan)", Needles: []string{"occitan", "méridional", "midi"}},
	{Label: "provençal", Needles: []string{"provence", "provençal", "marseill"}},
	{Label: "toulousain", Needles: []string{"toulous"}},
	{Label: "du sud de la france", Needles: []string{"sud"}},
	{Label: "acadien", Needles: []string{"acadi"}},
	{Label: "québécois", Needles: []string{"québec", "quebecois"}},
	{Label: "canadien", Needles: []string{"canad"}},
	{Label: "banlieue", Needles: []string{"banlieue"}},
	{Label: "parisien", Needles: []string{"paris"}},
	{Label: "alsacien", Needles: []string{"alsac"}},
	{Label: "breton", Needles: []string{"breton", "bretagne"}},
	{Label: "belge", Needles: []string{"belg"}},
	{Label: "suisse", Needles: []string{"suisse"}},
	{Label: "africain", Needles: []string{"afri", "maghreb"}},
	{Label: "picard", Needles: []string{"picard"}},
	{Label: "nord", Needles: []string{"nord", "ch'ti", "ch ti"}},
	{Label: "normand", Needles: []string{"normand"}},
	{Label: "aucun", Needles: []string{"aucun", "sans accent", "pas d'accent"}},
	{Label: "standard", Needles: []string{"standard", "neutre"}},
}

var accentRules = []Rule{
	{Label: "acadien", Needles: []string{"acadi"}},
	{Label: "québécois", Needles: []string{"québec"}},
	{Label: "canadien", Needles: []string{"canad"}},
	{Label: "du sud de la france", Needles: []string{"sud", "midi", "marseill", "provenc", "occitan", "toulous", "méridional"}},
	{Label: "banlieue", Needles: []string{"banlieue"}},
	{Label: "parisien", Needles: []string{"paris"}},
	{Label: "alsacien", Needles: []string{"alsac"}},
	{Label: "breton", Needles: []string{"breton", "bretagne"}},
	{Label: "africain", Needles: []string{"afri", "maghreb"}},
	{Label: "picard", Needles: []string{"picard", "ch'ti", "ch ti"}},
	{Label: "normand", Needles: []string{"normand"}},
	{Label: "aucun", Needles: []string{"aucun", "sans accent", "pas d'accent", "neutre"}},
}

// Canadian places as written by participants (French, German or English
// spellings). Bare "Québec" is ambiguous between city and province and stays
// unmatched.
var canadaPlaceRules = []Rule{
	{Label: "montreal", Needles: []string{"montréal"}},
	{Label: "quebec (ville)", Needles: []string{"québec"}, Requires: []string{"ville"}},
	{Label: "quebec (province)", Needles: []string{"québec"}, Requires: []string{"province"}},
	{Label: "ontario", Needles: []string{"ontario"}},
	{Label: "new brunswick", Needles: []string{"nouveau brunswick", "new brunswick"}},
	{Label: "nova scotia", Needles: []string{"nouvelle écosse", "nova scotia"}},
	{Label: "prince edward island", Needles: []string{"île du prince", "prince edward"}},
	{Label: "newfoundland and labrador", Needles: []string{"terre neuve", "labrador", "newfoundland"}},
	{Label: "manitoba", Needles: []string{"manitoba"}},
	{Label: "saskatchewan", Needles: []string{"saskatchewan"}},
	{Label: "alberta", Needles: []string{"alberta"}},
	{Label: "british columbia", Needles: []string{"colombie britannique", "british columbia"}},
	{Label: "yukon", Needles: []string{"yukon"}},
	{Label: "northwest territories", Needles: []string{"territoires du nord ouest", "northwest territories"}},
	{Label: "nunavut", Needles: []string{"nunavut"}},
}

var (
	// LabelRules canonicalizes free-text labels (accent names, regions, terms).
	LabelRules = MustRuleSet(TableLabels, labelRules)
	// AccentRules maps accent names to the accent vocabulary.
	AccentRules = MustRuleSet(TableAccents, accentRules)
	// CanadaPlaceRules maps Canadian place names to stable keys.
	CanadaPlaceRules = MustRuleSet(TableCanadaPlaces, canadaPlaceRules)
)

// CanonicalizeLabel maps s onto the label vocabulary, or returns Normalize(s)
// when no rule matches.
func CanonicalizeLabel(s string) string {
	return LabelRules.Canonicalize(s)
}

// MapAccentSynonym maps s onto the accent vocabulary, or returns Normalize(s)
// when no rule matches.
func MapAccentSynonym(s string) string {
	return AccentRules.Canonicalize(s)
}

func builtinSets() []*RuleSet {
	return []*RuleSet{LabelRules, AccentRules, CanadaPlaceRules}
}
