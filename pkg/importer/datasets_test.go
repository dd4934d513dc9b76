package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/accent-atlas/pkg/mentalmap"
	"github.com/hazyhaar/accent-atlas/pkg/survey"
)

func tempDatasetDB(t *testing.T) *DatasetDB {
	t.Helper()
	db, err := OpenDatasetDB(filepath.Join(t.TempDir(), "atlas.db"))
	if err != nil {
		t.Fatalf("OpenDatasetDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenDatasetDB_CreatesTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenDatasetDB(path)
	if err != nil {
		t.Fatalf("OpenDatasetDB: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file not created: %v", err)
	}
	list, err := db.ListDatasets(context.Background())
	if err != nil {
		t.Fatalf("ListDatasets on empty db: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected 0 datasets, got %d", len(list))
	}
}

func TestSaveAndLoadParticipants(t *testing.T) {
	db := tempDatasetDB(t)
	ctx := context.Background()

	recs := []survey.ParticipantRecord{
		{ID: "1", ParticipantCode: "P1", AccentAnswer: survey.No, StimulusRatings: []survey.StimulusRating{
			{StimulusNumber: 1, Origin: "Lyon", Sympathy: survey.Rated(4)},
		}},
		{ID: "2", ParticipantCode: "P2", HasAccent: true, AccentAnswer: survey.Yes},
	}
	info, err := db.Save(ctx, "wave 1", "survey-csv", "/data/wave1.csv", &Dataset{Kind: KindSurvey, Records: recs})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if info.ID == "" || info.RecordCount != 2 || info.Kind != KindSurvey {
		t.Errorf("info = %+v", info)
	}

	got, err := db.LoadParticipants(ctx, info.ID)
	if err != nil {
		t.Fatalf("LoadParticipants: %v", err)
	}
	if len(got) != 2 || got[0].ParticipantCode != "P1" || got[1].AccentAnswer != survey.Yes {
		t.Fatalf("participants = %+v", got)
	}
	if got[0].AccentAnswer != survey.No {
		t.Errorf("AccentAnswer = %v, want no", got[0].AccentAnswer)
	}
	r := got[0].StimulusRatings[0]
	if v, ok := r.Sympathy.Value(); !ok || v != 4 || r.Correctness.IsRated() {
		t.Errorf("rating = %+v", r)
	}

	d, err := db.GetDataset(ctx, info.ID)
	if err != nil {
		t.Fatalf("GetDataset: %v", err)
	}
	if d.Name != "wave 1" || d.Source != "/data/wave1.csv" || d.Format != "survey-csv" {
		t.Errorf("dataset = %+v", d)
	}
}

func TestSaveAndLoadFeatures(t *testing.T) {
	db := tempDatasetDB(t)
	ctx := context.Background()

	c, err := mentalmap.Parse([]byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"id":1,"question_id":"q1","participant_code":"P1","created_at":"t"},
		 "geometry":{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,0]]]}},
		{"type":"Feature","properties":{"id":2,"question_id":"q2","participant_code":"P1","created_at":"t"},
		 "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`))
	if err != nil {
		t.Fatal(err)
	}
	info, err := db.Save(ctx, "maps", "mentalmap-geojson", "", &Dataset{Kind: KindMentalMaps, Features: c.Features})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	all, err := db.LoadFeatures(ctx, info.ID, "all")
	if err != nil {
		t.Fatalf("LoadFeatures: %v", err)
	}
	if len(all) != 2 || all[0].ID != "1" || all[1].QuestionID != "q2" {
		t.Errorf("features = %+v", all)
	}
	q2, _ := db.LoadFeatures(ctx, info.ID, "q2")
	if len(q2) != 1 || q2[0].ID != "2" {
		t.Errorf("q2 = %+v", q2)
	}
	if ring := q2[0].Ring(); len(ring) != 4 || ring[1] != [2]float64{1, 0} {
		t.Errorf("ring = %v", ring)
	}
}

func TestDatasetNotFound(t *testing.T) {
	db := tempDatasetDB(t)
	ctx := context.Background()

	if _, err := db.GetDataset(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDataset err = %v, want ErrNotFound", err)
	}
	if _, err := db.LoadParticipants(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadParticipants err = %v, want ErrNotFound", err)
	}
	if err := db.DeleteDataset(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteDataset err = %v, want ErrNotFound", err)
	}
}

func TestDeleteDataset(t *testing.T) {
	db := tempDatasetDB(t)
	ctx := context.Background()

	info, err := db.Save(ctx, "x", "survey-json", "", &Dataset{Kind: KindSurvey, Records: []survey.ParticipantRecord{{ID: "1"}}})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteDataset(ctx, info.ID); err != nil {
		t.Fatalf("DeleteDataset: %v", err)
	}
	list, _ := db.ListDatasets(ctx)
	if len(list) != 0 {
		t.Errorf("datasets = %+v", list)
	}
}

func TestUpdateCheck(t *testing.T) {
	db := tempDatasetDB(t)
	ctx := context.Background()
	info, _ := db.Save(ctx, "x", "survey-csv", "/tmp/x.csv", &Dataset{Kind: KindSurvey})

	if err := db.UpdateCheck(info.ID, 200, ""); err != nil {
		t.Fatalf("UpdateCheck: %v", err)
	}
	d, _ := db.GetDataset(ctx, info.ID)
	if d.LastStatus == nil || *d.LastStatus != 200 {
		t.Fatalf("expected last_status=200, got %v", d.LastStatus)
	}
	if d.LastCheck == nil || *d.LastCheck == 0 {
		t.Fatal("expected last_check to be set")
	}
	if d.LastError != nil {
		t.Fatalf("expected nil last_error, got %v", *d.LastError)
	}

	if err := db.UpdateCheck(info.ID, 404, "not found"); err != nil {
		t.Fatalf("UpdateCheck with error: %v", err)
	}
	d, _ = db.GetDataset(ctx, info.ID)
	if d.LastError == nil || *d.LastError != "not found" {
		t.Fatalf("expected last_error='not found', got %v", d.LastError)
	}
}
