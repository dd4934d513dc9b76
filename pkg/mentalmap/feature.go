// CLAUDE:SUMMARY Decodes and validates mental-map GeoJSON FeatureCollections into go-geom polygons with their survey properties.
package mentalmap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/twpayne/go-geom"
)

// ErrInvalidDocument is the root of every structural failure of a mental-map
// document.
var ErrInvalidDocument = errors.New("mentalmap: invalid document")

// ValidationError describes the first shape check a document failed.
type ValidationError struct {
	Feature int // -1 for document-level failures
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Feature < 0 {
		return fmt.Sprintf("mentalmap: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("mentalmap feature %d: %s: %s", e.Feature, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidDocument }

// Feature is one drawn polygon. Only the outer ring is kept.
type Feature struct {
	ID              string        `json:"id"`
	QuestionID      string        `json:"question_id"`
	ParticipantCode string        `json:"participant_code"`
	AudioFile       string        `json:"audio_file,omitempty"`
	CreatedAt       string        `json:"created_at"`
	Polygon         *geom.Polygon `json:"-"`
}

// Ring returns the outer ring as [lon, lat] pairs.
func (f Feature) Ring() [][2]float64 {
	if f.Polygon == nil || f.Polygon.NumLinearRings() == 0 {
		return nil
	}
	ring := f.Polygon.LinearRing(0)
	flat, stride := ring.FlatCoords(), ring.Stride()
	out := make([][2]float64, 0, len(flat)/stride)
	for i := 0; i+1 < len(flat); i += stride {
		out = append(out, [2]float64{flat[i], flat[i+1]})
	}
	return out
}

// Collection is a decoded FeatureCollection.
type Collection struct {
	Features []Feature
}

// Polygons returns the polygons of every feature in order.
func (c *Collection) Polygons() []*geom.Polygon {
	return Polygons(c.Features)
}

// Polygons returns the polygons of features in order.
func Polygons(features []Feature) []*geom.Polygon {
	out := make([]*geom.Polygon, 0, len(features))
	for _, f := range features {
		out = append(out, f.Polygon)
	}
	return out
}

type rawCollection struct {
	Type     *string       `json:"type"`
	Features *[]rawFeature `json:"features"`
}

type rawFeature struct {
	Type       *string        `json:"type"`
	Properties *rawProperties `json:"properties"`
	Geometry   *rawGeometry   `json:"geometry"`
}

type rawProperties struct {
	ID              json.RawMessage `json:"id"`
	QuestionID      *string         `json:"question_id"`
	ParticipantCode *string         `json:"participant_code"`
	AudioFile       *string         `json:"audio_file"`
	CreatedAt       *string         `json:"created_at"`
}

type rawGeometry struct {
	Type        *string       `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// Decode reads a FeatureCollection. Any shape failure yields a
// *ValidationError and no features.
func Decode(r io.Reader) (*Collection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read geojson: %w", err)
	}
	return Parse(data)
}

// Parse decodes a FeatureCollection from memory.
func Parse(data []byte) (*Collection, error) {
	var raw rawCollection
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ValidationError{Feature: -1, Field: "document", Reason: err.Error()}
	}
	if raw.Type == nil {
		return nil, &ValidationError{Feature: -1, Field: "type", Reason: "missing"}
	}
	if raw.Features == nil {
		return nil, &ValidationError{Feature: -1, Field: "features", Reason: "missing"}
	}

	c := &Collection{Features: make([]Feature, 0, len(*raw.Features))}
	for i, rf := range *raw.Features {
		f, err := convert(i, rf)
		if err != nil {
			return nil, err
		}
		c.Features = append(c.Features, f)
	}
	return c, nil
}

func convert(i int, rf rawFeature) (Feature, error) {
	invalid := func(field, reason string) (Feature, error) {
		return Feature{}, &ValidationError{Feature: i, Field: field, Reason: reason}
	}

	if rf.Type == nil {
		return invalid("type", "missing")
	}
	p := rf.Properties
	if p == nil {
		return invalid("properties", "missing")
	}
	id, err := featureID(p.ID)
	if err != nil {
		return invalid("properties.id", err.Error())
	}
	switch {
	case p.QuestionID == nil:
		return invalid("properties.question_id", "missing")
	case p.ParticipantCode == nil:
		return invalid("properties.participant_code", "missing")
	case p.CreatedAt == nil:
		return invalid("properties.created_at", "missing")
	}

	g := rf.Geometry
	if g == nil || g.Type == nil {
		return invalid("geometry", "missing")
	}
	if *g.Type != "Polygon" {
		return invalid("geometry.type", fmt.Sprintf("unsupported geometry %q", *g.Type))
	}
	if len(g.Coordinates) == 0 {
		return invalid("geometry.coordinates", "no rings")
	}

	outer := g.Coordinates[0]
	coords := make([]geom.Coord, 0, len(outer))
	for j, c := range outer {
		if len(c) < 2 {
			return invalid("geometry.coordinates", fmt.Sprintf("position %d has %d values", j, len(c)))
		}
		coords = append(coords, geom.Coord{c[0], c[1]})
	}
	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{coords})
	if err != nil {
		return invalid("geometry.coordinates", err.Error())
	}

	f := Feature{
		ID:              id,
		QuestionID:      *p.QuestionID,
		ParticipantCode: *p.ParticipantCode,
		CreatedAt:       *p.CreatedAt,
		Polygon:         poly,
	}
	if p.AudioFile != nil {
		f.AudioFile = *p.AudioFile
	}
	return f, nil
}

// featureID accepts a string or a number and renders it as a string.
func featureID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", errors.New("missing")
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", errors.New("expected string or number")
	}
	return n.String(), nil
}

type outFeature struct {
	Type       string        `json:"type"`
	Properties outProperties `json:"properties"`
	Geometry   outGeometry   `json:"geometry"`
}

type outProperties struct {
	ID              string  `json:"id"`
	QuestionID      string  `json:"question_id"`
	ParticipantCode string  `json:"participant_code"`
	AudioFile       *string `json:"audio_file"`
	CreatedAt       string  `json:"created_at"`
}

type outGeometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

// MarshalJSON renders the collection back to GeoJSON.
func (c *Collection) MarshalJSON() ([]byte, error) {
	features := make([]outFeature, 0, len(c.Features))
	for _, f := range c.Features {
		of := outFeature{
			Type: "Feature",
			Properties: outProperties{
				ID:              f.ID,
				QuestionID:      f.QuestionID,
				ParticipantCode: f.ParticipantCode,
				CreatedAt:       f.CreatedAt,
			},
			Geometry: outGeometry{Type: "Polygon", Coordinates: [][][2]float64{f.Ring()}},
		}
		if f.AudioFile != "" {
			audio := f.AudioFile
			of.Properties.AudioFile = &audio
		}
		features = append(features, of)
	}
	return json.Marshal(struct {
		Type     string       `json:"type"`
		Features []outFeature `json:"features"`
	}{Type: "FeatureCollection", Features: features})
}

// UnmarshalJSON is Parse.
func (c *Collection) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*c = *parsed
	return nil
}
