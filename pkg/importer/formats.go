// CLAUDE:SUMMARY Built-in import formats: survey CSV export, survey JSON rows, mental-map GeoJSON.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hazyhaar/accent-atlas/pkg/mentalmap"
	"github.com/hazyhaar/accent-atlas/pkg/survey"
)

func init() {
	Register(&surveyCSVAdapter{})
	Register(&surveyJSONAdapter{})
	Register(&geoJSONAdapter{})
}

type surveyCSVAdapter struct{}

func (a *surveyCSVAdapter) ID() string           { return "survey-csv" }
func (a *surveyCSVAdapter) Kind() string         { return KindSurvey }
func (a *surveyCSVAdapter) Description() string  { return "Survey CSV export, one line per submission" }
func (a *surveyCSVAdapter) Extensions() []string { return []string{".csv", ".tsv"} }

func (a *surveyCSVAdapter) Decode(ctx context.Context, r io.Reader, opts DecodeOptions) (*Dataset, error) {
	rows, err := ReadCSV(r, opts.CSV)
	if err != nil {
		return nil, err
	}
	return buildSurvey(ctx, rows, opts)
}

type surveyJSONAdapter struct{}

func (a *surveyJSONAdapter) ID() string           { return "survey-json" }
func (a *surveyJSONAdapter) Kind() string         { return KindSurvey }
func (a *surveyJSONAdapter) Description() string  { return "Survey rows as a JSON array of objects" }
func (a *surveyJSONAdapter) Extensions() []string { return []string{".json"} }

func (a *surveyJSONAdapter) Decode(ctx context.Context, r io.Reader, opts DecodeOptions) (*Dataset, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, &survey.ValidationError{Row: -1, Reason: fmt.Sprintf("document is not a JSON array: %v", err)}
	}
	rows := make([]*survey.Row, len(raw))
	for i, msg := range raw {
		row := survey.NewRow()
		if err := json.Unmarshal(msg, row); err != nil {
			var ve *survey.ValidationError
			if errors.As(err, &ve) {
				ve.Row = i
				return nil, ve
			}
			return nil, &survey.ValidationError{Row: i, Reason: err.Error()}
		}
		rows[i] = row
	}
	return buildSurvey(ctx, rows, opts)
}

func buildSurvey(ctx context.Context, rows []*survey.Row, opts DecodeOptions) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recs, err := opts.builder().BuildAll(rows)
	if err != nil {
		return nil, err
	}
	return &Dataset{Kind: KindSurvey, Records: recs}, nil
}

type geoJSONAdapter struct{}

func (a *geoJSONAdapter) ID() string           { return "mentalmap-geojson" }
func (a *geoJSONAdapter) Kind() string         { return KindMentalMaps }
func (a *geoJSONAdapter) Description() string  { return "Mental maps as a GeoJSON FeatureCollection" }
func (a *geoJSONAdapter) Extensions() []string { return []string{".geojson"} }

func (a *geoJSONAdapter) Decode(ctx context.Context, r io.Reader, _ DecodeOptions) (*Dataset, error) {
	c, err := mentalmap.Decode(r)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Dataset{Kind: KindMentalMaps, Features: c.Features}, nil
}
