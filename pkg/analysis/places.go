package analysis

import "github.com/hazyhaar/accent-atlas/pkg/dict"

// PlaceCount is the number of mentions of one Canadian place.
type PlaceCount struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lng"`
	Count int     `json:"count"`
}

type place struct {
	label    string
	lat, lon float64
}

// Keys match the labels of dict.CanadaPlaceRules.
var placeOrder = []string{
	"montreal", "quebec (ville)", "quebec (province)", "ontario", "new brunswick",
	"nova scotia", "prince edward island", "newfoundland and labrador", "manitoba",
	"saskatchewan", "alberta", "british columbia", "yukon", "northwest territories", "nunavut",
}

var places = map[string]place{
	"montreal":                  {"Montréal", 45.5017, -73.5673},
	"quebec (ville)":            {"Québec (Ville)", 46.8139, -71.2080},
	"quebec (province)":         {"Québec (Province)", 52.0, -71.5},
	"ontario":                   {"Ontario", 50.0, -85.0},
	"new brunswick":             {"New Brunswick", 46.5, -66.5},
	"nova scotia":               {"Nova Scotia", 45.0, -63.0},
	"prince edward island":      {"Prince Edward Island", 46.4, -63.0},
	"newfoundland and labrador": {"Newfoundland & Labrador", 53.0, -59.0},
	"manitoba":                  {"Manitoba", 50.0, -97.0},
	"saskatchewan":              {"Saskatchewan", 52.0, -106.0},
	"alberta":                   {"Alberta", 53.9, -114.0},
	"british columbia":          {"British Columbia", 53.7, -123.0},
	"yukon":                     {"Yukon", 64.0, -135.0},
	"northwest territories":     {"Northwest Territories", 64.0, -120.0},
	"nunavut":                   {"Nunavut", 66.0, -90.0},
}

// CanadaPlaceCounts maps each label onto a known place and counts mentions.
// Every place is listed, in a fixed order, even with a zero count.
// Unrecognized labels are ignored.
func CanadaPlaceCounts(labels []string) []PlaceCount {
	counts := make(map[string]int)
	for _, l := range labels {
		if key, ok := dict.CanadaPlaceRules.Match(l); ok {
			counts[key]++
		}
	}
	out := make([]PlaceCount, 0, len(placeOrder))
	for _, key := range placeOrder {
		p := places[key]
		out = append(out, PlaceCount{Key: key, Label: p.label, Lat: p.lat, Lon: p.lon, Count: counts[key]})
	}
	return out
}
