// CLAUDE:SUMMARY Transport-agnostic endpoints shared by the HTTP router and the MCP tools, plus the per-session heatmap runners.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/accent-atlas/pkg/analysis"
	"github.com/hazyhaar/accent-atlas/pkg/dict"
	"github.com/hazyhaar/accent-atlas/pkg/importer"
	"github.com/hazyhaar/accent-atlas/pkg/kit"
	"github.com/hazyhaar/accent-atlas/pkg/mentalmap"
	"github.com/hazyhaar/accent-atlas/pkg/raster"
	"github.com/hazyhaar/accent-atlas/pkg/survey"
)

// errInvalidRequest marks caller mistakes (HTTP 400).
var errInvalidRequest = errors.New("invalid request")

// errNoDatasets is returned by dataset endpoints when no store is configured.
var errNoDatasets = errors.New("dataset store not configured")

// errNoHeatmap is returned when a session has not published a heatmap yet.
var errNoHeatmap = errors.New("no heatmap published for this session")

const (
	maxCoOccurrenceLists = 10_000
	sessionIdle          = 10 * time.Minute
)

// Options configure a Service.
type Options struct {
	Raster       raster.Options
	Logger       *slog.Logger
	MaxBodyBytes int64
	// Timeout bounds each endpoint call. Zero means no deadline.
	Timeout time.Duration
}

// Service owns the shared state behind the endpoints.
type Service struct {
	reg      *dict.Registry
	datasets *importer.DatasetDB
	raster   raster.Options
	logger   *slog.Logger
	maxBody  int64
	timeout  time.Duration

	mu      sync.Mutex
	runners map[string]*sessionRunner
}

type sessionRunner struct {
	runner   raster.Runner
	lastUsed time.Time
}

// NewService builds a Service. datasets may be nil, in which case the dataset
// endpoints fail.
func NewService(reg *dict.Registry, datasets *importer.DatasetDB, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Raster.CellSize <= 0 {
		opts.Raster = raster.DefaultOptions()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 << 20
	}
	return &Service{
		reg:      reg,
		datasets: datasets,
		raster:   opts.Raster,
		logger:   opts.Logger,
		maxBody:  opts.MaxBodyBytes,
		timeout:  opts.Timeout,
		runners:  make(map[string]*sessionRunner),
	}
}

// runner returns the runner of a session, dropping sessions idle for too long.
func (s *Service) runner(session string) *raster.Runner {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, r := range s.runners {
		if k != session && now.Sub(r.lastUsed) > sessionIdle {
			delete(s.runners, k)
		}
	}
	r, ok := s.runners[session]
	if !ok {
		r = &sessionRunner{}
		s.runners[session] = r
	}
	r.lastUsed = now
	return &r.runner
}

// lookupRunner returns the runner of a known session without creating one.
func (s *Service) lookupRunner(session string) (*raster.Runner, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runners[session]
	if !ok {
		return nil, false
	}
	r.lastUsed = time.Now()
	return &r.runner, true
}

func (s *Service) builder() *survey.Builder {
	return survey.NewBuilder(survey.WithRegistry(s.reg))
}

func (s *Service) endpoint(name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Logging(s.logger, name), kit.Timeout(s.timeout))(ep)
}

// Shared request/response types used by both HTTP and MCP transports.

type canonicalizeReq struct {
	Term  string
	Table string
}

type rulesResponse struct {
	Tables []dict.TableInfo `json:"tables"`
}

type parseReq struct {
	Rows []*survey.Row
}

type participantsResponse struct {
	Participants []survey.ParticipantRecord `json:"participants"`
}

type heatmapReq struct {
	DatasetID   string // when set, features are loaded from the store
	Features    []mentalmap.Feature
	Question    string
	Participant string
	CellSize    float64
	Radius      int
}

type heatmapResponse struct {
	Question    string        `json:"question"`
	Participant string        `json:"participant,omitempty"`
	Polygons    int           `json:"polygons"`
	CellSize    float64       `json:"cell_size"`
	Radius      int           `json:"radius"`
	Generation  uint64        `json:"generation,omitempty"`
	Max         float64       `json:"max"`
	Grid        *raster.Grid  `json:"grid"`
	Cells       []raster.Cell `json:"cells"`
}

type currentHeatmapResponse struct {
	Session    string        `json:"session"`
	Generation uint64        `json:"generation"`
	Max        float64       `json:"max"`
	Grid       *raster.Grid  `json:"grid"`
	Cells      []raster.Cell `json:"cells"`
}

type coOccurrenceReq struct {
	Lists [][]string
}

type coOccurrenceResponse struct {
	Matrix analysis.Matrix `json:"matrix"`
	Edges  []analysis.Edge `json:"edges"`
}

type datasetsResponse struct {
	Datasets []importer.DatasetInfo `json:"datasets"`
}

type datasetReq struct {
	ID          string
	Gender      string
	Region      string
	Participant string
}

type participantStats struct {
	ID              string       `json:"id"`
	ParticipantCode string       `json:"participant_code"`
	Stats           survey.Stats `json:"stats"`
}

type statsResponse struct {
	Participants []participantStats `json:"participants"`
}

type questionsResponse struct {
	QuestionIDs  []string                     `json:"question_ids"`
	Questions    []mentalmap.QuestionStat     `json:"questions"`
	Participants []mentalmap.ParticipantCount `json:"participants"`
}

type placesResponse struct {
	Places []analysis.PlaceCount `json:"places"`
}

// --- endpoints ---

func canonicalizeEndpoint(reg *dict.Registry) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*canonicalizeReq)
		return reg.Canonicalize(req.Table, req.Term)
	}
}

func listRulesEndpoint(reg *dict.Registry) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return rulesResponse{Tables: reg.ListTables()}, nil
	}
}

func (s *Service) parseEndpoint() kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*parseReq)
		recs, err := s.builder().BuildAll(req.Rows)
		if err != nil {
			return nil, err
		}
		return participantsResponse{Participants: recs}, nil
	}
}

// heatmapEndpoint rasterizes the polygons of one question. Requests carrying
// a session supersede the session's in-flight run.
func (s *Service) heatmapEndpoint() kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*heatmapReq)
		features := req.Features
		if req.DatasetID != "" {
			if s.datasets == nil {
				return nil, errNoDatasets
			}
			var err error
			if features, err = s.datasets.LoadFeatures(ctx, req.DatasetID, ""); err != nil {
				return nil, err
			}
		}
		features = mentalmap.ForQuestion(features, req.Question)
		if req.Participant != "" {
			features = mentalmap.ForParticipant(features, req.Participant)
		}

		opts := s.raster
		if req.CellSize != 0 {
			opts.CellSize = req.CellSize
		}
		opts.Radius = req.Radius

		job, err := raster.NewJob(mentalmap.Polygons(features), opts)
		if err != nil {
			return nil, err
		}
		var res *raster.Result
		var gen uint64
		if session := kit.GetSession(ctx); session != "" {
			r := s.runner(session)
			res, err = r.Run(ctx, job)
			gen = r.Generation()
		} else {
			res, err = raster.Drive(ctx, job)
		}
		if err != nil {
			return nil, err
		}

		question := req.Question
		if question == "" {
			question = "all"
		}
		return heatmapResponse{
			Question:    question,
			Participant: req.Participant,
			Polygons:    len(features),
			CellSize:    opts.CellSize,
			Radius:      raster.ClampRadius(opts.Radius),
			Generation:  gen,
			Max:         res.Max,
			Grid:        res.Grid,
			Cells:       nonNilCells(res.Grid),
		}, nil
	}
}

// currentHeatmapEndpoint returns the last heatmap the session published.
func (s *Service) currentHeatmapEndpoint() kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		session := kit.GetSession(ctx)
		if session == "" {
			return nil, fmt.Errorf("%w: missing session", errInvalidRequest)
		}
		r, ok := s.lookupRunner(session)
		if !ok {
			return nil, errNoHeatmap
		}
		res := r.Current()
		if res == nil {
			return nil, errNoHeatmap
		}
		return currentHeatmapResponse{
			Session:    session,
			Generation: r.Generation(),
			Max:        res.Max,
			Grid:       res.Grid,
			Cells:      nonNilCells(res.Grid),
		}, nil
	}
}

func nonNilCells(g *raster.Grid) []raster.Cell {
	if cells := g.Cells(); cells != nil {
		return cells
	}
	return []raster.Cell{}
}

func coOccurrenceEndpoint() kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*coOccurrenceReq)
		if len(req.Lists) > maxCoOccurrenceLists {
			return nil, fmt.Errorf("%w: too many lists (max %d, got %d)", errInvalidRequest, maxCoOccurrenceLists, len(req.Lists))
		}
		m := analysis.BuildCoOccurrence(req.Lists)
		edges := analysis.Edges(m)
		if edges == nil {
			edges = []analysis.Edge{}
		}
		return coOccurrenceResponse{Matrix: m, Edges: edges}, nil
	}
}

func (s *Service) listDatasetsEndpoint() kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		if s.datasets == nil {
			return nil, errNoDatasets
		}
		list, err := s.datasets.ListDatasets(ctx)
		if err != nil {
			return nil, err
		}
		return datasetsResponse{Datasets: list}, nil
	}
}

func (s *Service) loadParticipants(ctx context.Context, req *datasetReq) ([]survey.ParticipantRecord, error) {
	if s.datasets == nil {
		return nil, errNoDatasets
	}
	recs, err := s.datasets.LoadParticipants(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return analysis.FilterByGender(recs, req.Gender), nil
}

func (s *Service) participantsEndpoint() kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		recs, err := s.loadParticipants(ctx, request.(*datasetReq))
		if err != nil {
			return nil, err
		}
		if recs == nil {
			recs = []survey.ParticipantRecord{}
		}
		return participantsResponse{Participants: recs}, nil
	}
}

func (s *Service) statsEndpoint() kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		recs, err := s.loadParticipants(ctx, request.(*datasetReq))
		if err != nil {
			return nil, err
		}
		out := statsResponse{Participants: make([]participantStats, 0, len(recs))}
		for _, rec := range recs {
			out.Participants = append(out.Participants, participantStats{
				ID:              rec.ID,
				ParticipantCode: rec.ParticipantCode,
				Stats:           survey.ComputeStats(rec),
			})
		}
		return out, nil
	}
}

func (s *Service) regionEndpoint() kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*datasetReq)
		region := survey.RegionKey(req.Region)
		if !region.Known() {
			return nil, fmt.Errorf("%w: unknown region %q", errInvalidRequest, req.Region)
		}
		recs, err := s.loadParticipants(ctx, req)
		if err != nil {
			return nil, err
		}
		return analysis.Summarize(recs, region), nil
	}
}

func (s *Service) preferencesEndpoint() kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		recs, err := s.loadParticipants(ctx, request.(*datasetReq))
		if err != nil {
			return nil, err
		}
		return analysis.AccentDistribution(recs), nil
	}
}

// canadaPlacesEndpoint counts where participants place the Québécois accent.
func (s *Service) canadaPlacesEndpoint() kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		recs, err := s.loadParticipants(ctx, request.(*datasetReq))
		if err != nil {
			return nil, err
		}
		var labels []string
		for _, r := range analysis.RegionResponses(recs, survey.RegionCanada) {
			if r.QuebecPlaces != nil {
				labels = append(labels, r.QuebecPlaces.Selected...)
			}
		}
		return placesResponse{Places: analysis.CanadaPlaceCounts(labels)}, nil
	}
}

func (s *Service) questionsEndpoint() kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if s.datasets == nil {
			return nil, errNoDatasets
		}
		req := request.(*datasetReq)
		features, err := s.datasets.LoadFeatures(ctx, req.ID, "")
		if err != nil {
			return nil, err
		}
		if req.Participant != "" {
			features = mentalmap.ForParticipant(features, req.Participant)
		}
		out := questionsResponse{
			QuestionIDs:  mentalmap.QuestionIDs(features),
			Questions:    mentalmap.QuestionStats(features),
			Participants: mentalmap.ParticipantCounts(features),
		}
		if out.QuestionIDs == nil {
			out.QuestionIDs = []string{}
		}
		if out.Questions == nil {
			out.Questions = []mentalmap.QuestionStat{}
		}
		if out.Participants == nil {
			out.Participants = []mentalmap.ParticipantCount{}
		}
		return out, nil
	}
}

func (s *Service) deleteDatasetEndpoint() kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if s.datasets == nil {
			return nil, errNoDatasets
		}
		id := request.(*datasetReq).ID
		if err := s.datasets.DeleteDataset(ctx, id); err != nil {
			return nil, err
		}
		return map[string]string{"deleted": id}, nil
	}
}
