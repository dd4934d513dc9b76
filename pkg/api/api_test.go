package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/accent-atlas/pkg/dict"
	"github.com/hazyhaar/accent-atlas/pkg/importer"
	"github.com/hazyhaar/accent-atlas/pkg/mentalmap"
	"github.com/hazyhaar/accent-atlas/pkg/survey"
)

const twoSquares = `{"type": "FeatureCollection", "features": [
  {"type": "Feature",
   "properties": {"id": 1, "question_id": "q1", "participant_code": "P1"},
   "geometry": {"type": "Polygon", "coordinates": [[[0,0],[2,0],[2,2],[0,2],[0,0]]]}},
  {"type": "Feature",
   "properties": {"id": 2, "question_id": "q2", "participant_code": "P2"},
   "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}
]}`

func newTestService(t *testing.T, withDB bool) (*Service, *importer.DatasetDB) {
	t.Helper()
	var db *importer.DatasetDB
	if withDB {
		var err error
		db, err = importer.OpenDatasetDB(filepath.Join(t.TempDir(), "atlas.db"))
		if err != nil {
			t.Fatalf("OpenDatasetDB: %v", err)
		}
		t.Cleanup(func() { db.Close() })
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(dict.NewRegistry(""), db, Options{Logger: logger}), db
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	svc, _ := newTestService(t, false)
	w := do(t, NewRouter(svc), "GET", "/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp healthResponse
	decode(t, w, &resp)
	if resp.Status != "ok" || resp.Tables != 3 || resp.Datasets {
		t.Errorf("health = %+v", resp)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestRequestIDEchoed(t *testing.T) {
	svc, _ := newTestService(t, false)
	req := httptest.NewRequest("GET", "/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	w := httptest.NewRecorder()
	NewRouter(svc).ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc" {
		t.Errorf("X-Request-ID = %q, want abc", got)
	}
}

func TestCanonicalize(t *testing.T) {
	svc, _ := newTestService(t, false)
	h := NewRouter(svc)

	w := do(t, h, "GET", "/v1/canonicalize/Marseille", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var res dict.CanonicalizeResult
	decode(t, w, &res)
	if !res.Matched || res.Label != "provençal" {
		t.Errorf("result = %+v", res)
	}

	if w := do(t, h, "GET", "/v1/canonicalize/x?table=nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown table: status = %d, want 404", w.Code)
	}
}

func TestListRules(t *testing.T) {
	svc, _ := newTestService(t, false)
	w := do(t, NewRouter(svc), "GET", "/v1/rules", "")
	var resp rulesResponse
	decode(t, w, &resp)
	if len(resp.Tables) != 3 {
		t.Errorf("tables = %d, want 3", len(resp.Tables))
	}
}

func TestParseParticipants(t *testing.T) {
	svc, _ := newTestService(t, false)
	h := NewRouter(svc)

	body := `{"rows": [{"` + survey.ColID + `": 7, "` + survey.ColGender + `": "Femme", "` + survey.ColAge + `": "31"}]}`
	w := do(t, h, "POST", "/v1/participants/parse", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var resp participantsResponse
	decode(t, w, &resp)
	if len(resp.Participants) != 1 {
		t.Fatalf("participants = %+v", resp.Participants)
	}
	p := resp.Participants[0]
	if p.ID != "7" || p.Gender != "Femme" || p.Age != 31 {
		t.Errorf("participant = %+v", p)
	}

	bad := `{"rows": [{"` + survey.ColGender + `": true}]}`
	if w := do(t, h, "POST", "/v1/participants/parse", bad); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad gender: status = %d, want 422", w.Code)
	}
	if w := do(t, h, "POST", "/v1/participants/parse", `{"rows": [1]}`); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("non-object row: status = %d, want 422", w.Code)
	}
	if w := do(t, h, "POST", "/v1/participants/parse", `{`); w.Code != http.StatusBadRequest {
		t.Errorf("broken JSON: status = %d, want 400", w.Code)
	}
	if w := do(t, h, "GET", "/v1/participants/parse", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET: status = %d, want 405", w.Code)
	}
}

func TestHeatmap(t *testing.T) {
	svc, _ := newTestService(t, false)
	h := NewRouter(svc)

	w := do(t, h, "POST", "/v1/mentalmaps/heatmap?cell_size=1&question=q1", twoSquares)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var resp heatmapResponse
	decode(t, w, &resp)
	if resp.Question != "q1" || resp.Polygons != 1 || resp.Max != 1 || len(resp.Cells) != 4 {
		t.Errorf("heatmap = %+v", resp)
	}

	w = do(t, h, "POST", "/v1/mentalmaps/heatmap?cell_size=1", twoSquares)
	decode(t, w, &resp)
	if resp.Question != "all" || resp.Polygons != 2 || resp.Max != 2 {
		t.Errorf("all questions: %+v", resp)
	}
}

func TestHeatmapErrors(t *testing.T) {
	svc, _ := newTestService(t, false)
	h := NewRouter(svc)

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"bad cell size", "/v1/mentalmaps/heatmap?cell_size=0", twoSquares, http.StatusBadRequest},
		{"bad radius", "/v1/mentalmaps/heatmap?radius=x", twoSquares, http.StatusBadRequest},
		{"not geojson", "/v1/mentalmaps/heatmap", `{"type": "FeatureCollection"}`, http.StatusUnprocessableEntity},
		{"grid too large", "/v1/mentalmaps/heatmap?cell_size=0.0001", twoSquares, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, h, "POST", tt.target, tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body)
			}
		})
	}
}

func TestHeatmapSession(t *testing.T) {
	svc, _ := newTestService(t, false)
	h := NewRouter(svc)

	req := httptest.NewRequest("POST", "/v1/mentalmaps/heatmap?cell_size=1", strings.NewReader(twoSquares))
	req.Header.Set(SessionHeader, "s1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}

	var hm heatmapResponse
	decode(t, w, &hm)
	if hm.Generation != 1 {
		t.Errorf("generation = %d, want 1", hm.Generation)
	}

	current := func(session string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/v1/mentalmaps/heatmap/current", nil)
		if session != "" {
			req.Header.Set(SessionHeader, session)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}
	w = current("s1")
	if w.Code != http.StatusOK {
		t.Fatalf("current: status = %d: %s", w.Code, w.Body)
	}
	var cur currentHeatmapResponse
	decode(t, w, &cur)
	if cur.Session != "s1" || cur.Generation != 1 || cur.Max != 2 || len(cur.Cells) != len(hm.Cells) {
		t.Errorf("current = %+v", cur)
	}
	if w := current("s2"); w.Code != http.StatusNotFound {
		t.Errorf("unknown session: status = %d, want 404", w.Code)
	}
	if w := current(""); w.Code != http.StatusBadRequest {
		t.Errorf("no session: status = %d, want 400", w.Code)
	}

	r := svc.runner("s1")
	if svc.runner("s2") == r {
		t.Error("sessions share a runner")
	}
	if w := current("s2"); w.Code != http.StatusNotFound {
		t.Errorf("session without result: status = %d, want 404", w.Code)
	}
}

func TestEndpointTimeout(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hasDeadline := func(ctx context.Context, _ any) (any, error) {
		_, ok := ctx.Deadline()
		return ok, nil
	}
	tests := []struct {
		timeout time.Duration
		want    bool
	}{
		{0, false},
		{time.Minute, true},
	}
	for _, tt := range tests {
		svc := NewService(dict.NewRegistry(""), nil, Options{Logger: logger, Timeout: tt.timeout})
		got, err := svc.endpoint("deadline", hasDeadline)(context.Background(), nil)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("timeout %v: deadline = %v, want %v", tt.timeout, got, tt.want)
		}
	}
}

func TestCoOccurrence(t *testing.T) {
	svc, _ := newTestService(t, false)
	w := do(t, NewRouter(svc), "POST", "/v1/cooccurrence", `{"lists": [["a", "b"], ["b"]]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body)
	}
	var resp coOccurrenceResponse
	decode(t, w, &resp)
	if len(resp.Matrix.Labels) != 2 || resp.Matrix.Values[0][1] != 1 || resp.Matrix.Values[1][1] != 2 {
		t.Errorf("matrix = %+v", resp.Matrix)
	}
	if len(resp.Edges) != 3 {
		t.Errorf("edges = %+v, want 3", resp.Edges)
	}
}

func TestDatasetsWithoutStore(t *testing.T) {
	svc, _ := newTestService(t, false)
	if w := do(t, NewRouter(svc), "GET", "/v1/datasets", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestDatasetRoutes(t *testing.T) {
	svc, db := newTestService(t, true)
	h := NewRouter(svc)
	ctx := context.Background()

	recs := []survey.ParticipantRecord{
		{ID: "1", ParticipantCode: "P1", Gender: "Femme"},
		{ID: "2", ParticipantCode: "P2", Gender: "Homme"},
	}
	people, err := db.Save(ctx, "wave 1", "survey-json", "", &importer.Dataset{Kind: importer.KindSurvey, Records: recs})
	if err != nil {
		t.Fatal(err)
	}
	c, err := mentalmap.Parse([]byte(twoSquares))
	if err != nil {
		t.Fatal(err)
	}
	maps, err := db.Save(ctx, "maps", "mentalmap-geojson", "", &importer.Dataset{Kind: importer.KindMentalMaps, Features: c.Features})
	if err != nil {
		t.Fatal(err)
	}

	w := do(t, h, "GET", "/v1/datasets", "")
	var list datasetsResponse
	decode(t, w, &list)
	if len(list.Datasets) != 2 {
		t.Fatalf("datasets = %+v", list.Datasets)
	}

	w = do(t, h, "GET", "/v1/datasets/"+people.ID+"/participants?gender=femme", "")
	var parts participantsResponse
	decode(t, w, &parts)
	if len(parts.Participants) != 1 || parts.Participants[0].ParticipantCode != "P1" {
		t.Errorf("filtered participants = %+v", parts.Participants)
	}

	w = do(t, h, "GET", "/v1/datasets/"+people.ID+"/stats", "")
	var stats statsResponse
	decode(t, w, &stats)
	if len(stats.Participants) != 2 {
		t.Errorf("stats = %+v", stats)
	}

	if w := do(t, h, "GET", "/v1/datasets/"+people.ID+"/regions/sud", ""); w.Code != http.StatusOK {
		t.Errorf("region: status = %d", w.Code)
	}
	if w := do(t, h, "GET", "/v1/datasets/"+people.ID+"/regions/mars", ""); w.Code != http.StatusBadRequest {
		t.Errorf("unknown region: status = %d, want 400", w.Code)
	}
	if w := do(t, h, "GET", "/v1/datasets/"+people.ID+"/preferences", ""); w.Code != http.StatusOK {
		t.Errorf("preferences: status = %d", w.Code)
	}

	w = do(t, h, "GET", "/v1/datasets/"+people.ID+"/canada-places", "")
	var places placesResponse
	decode(t, w, &places)
	if len(places.Places) != 15 {
		t.Errorf("places = %d, want 15", len(places.Places))
	}

	w = do(t, h, "GET", "/v1/datasets/"+maps.ID+"/questions", "")
	var qs questionsResponse
	decode(t, w, &qs)
	if len(qs.Questions) != 2 || strings.Join(qs.QuestionIDs, ",") != "q1,q2" || len(qs.Participants) != 2 {
		t.Errorf("questions = %+v", qs)
	}

	w = do(t, h, "GET", "/v1/datasets/"+maps.ID+"/questions?participant=P2", "")
	qs = questionsResponse{}
	decode(t, w, &qs)
	if strings.Join(qs.QuestionIDs, ",") != "q2" || len(qs.Participants) != 1 || qs.Participants[0].ParticipantCode != "P2" {
		t.Errorf("participant questions = %+v", qs)
	}

	w = do(t, h, "GET", "/v1/datasets/"+maps.ID+"/heatmap?cell_size=1&participant=P1", "")
	var mine heatmapResponse
	decode(t, w, &mine)
	if mine.Participant != "P1" || mine.Polygons != 1 || len(mine.Cells) != 4 {
		t.Errorf("participant heatmap = %+v", mine)
	}
	w = do(t, h, "GET", "/v1/datasets/"+maps.ID+"/heatmap?cell_size=1&question=q2&participant=P1", "")
	var none heatmapResponse
	decode(t, w, &none)
	if none.Polygons != 0 || len(none.Cells) != 0 {
		t.Errorf("empty heatmap = %+v", none)
	}

	w = do(t, h, "GET", "/v1/datasets/"+maps.ID+"/heatmap?cell_size=1&question=q2", "")
	var hm heatmapResponse
	decode(t, w, &hm)
	if hm.Polygons != 1 || len(hm.Cells) != 1 {
		t.Errorf("dataset heatmap = %+v", hm)
	}

	if w := do(t, h, "GET", "/v1/datasets/missing/participants", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing dataset: status = %d, want 404", w.Code)
	}
	if w := do(t, h, "DELETE", "/v1/datasets/"+maps.ID, ""); w.Code != http.StatusOK {
		t.Errorf("delete: status = %d", w.Code)
	}
	if w := do(t, h, "DELETE", "/v1/datasets/"+maps.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", w.Code)
	}
}

func TestStatusOf(t *testing.T) {
	if got := statusOf(&survey.ValidationError{Row: -1}); got != http.StatusUnprocessableEntity {
		t.Errorf("survey validation = %d", got)
	}
	if got := statusOf(errors.New("boom")); got != http.StatusInternalServerError {
		t.Errorf("other = %d", got)
	}
}
