package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/hazyhaar/accent-atlas/pkg/dict"
	"github.com/hazyhaar/accent-atlas/pkg/importer"
	"github.com/hazyhaar/accent-atlas/pkg/kit"
	"github.com/hazyhaar/accent-atlas/pkg/mentalmap"
	"github.com/hazyhaar/accent-atlas/pkg/raster"
	"github.com/hazyhaar/accent-atlas/pkg/survey"
)

// SessionHeader names the interactive session whose heatmap runs supersede
// each other.
const SessionHeader = "X-Atlas-Session"

// NewRouter returns an http.Handler with all atlas API routes.
func NewRouter(svc *Service) http.Handler {
	mux := http.NewServeMux()
	h := &handler{
		svc:           svc,
		canonicalize:  svc.endpoint("canonicalize", canonicalizeEndpoint(svc.reg)),
		listRules:     svc.endpoint("list_rules", listRulesEndpoint(svc.reg)),
		parse:         svc.endpoint("parse_participants", svc.parseEndpoint()),
		heatmap:       svc.endpoint("heatmap", svc.heatmapEndpoint()),
		current:       svc.endpoint("current_heatmap", svc.currentHeatmapEndpoint()),
		coOccurrence:  svc.endpoint("cooccurrence", coOccurrenceEndpoint()),
		listDatasets:  svc.endpoint("list_datasets", svc.listDatasetsEndpoint()),
		participants:  svc.endpoint("participants", svc.participantsEndpoint()),
		stats:         svc.endpoint("stats", svc.statsEndpoint()),
		region:        svc.endpoint("region", svc.regionEndpoint()),
		preferences:   svc.endpoint("preferences", svc.preferencesEndpoint()),
		canadaPlaces:  svc.endpoint("canada_places", svc.canadaPlacesEndpoint()),
		questions:     svc.endpoint("questions", svc.questionsEndpoint()),
		deleteDataset: svc.endpoint("delete_dataset", svc.deleteDatasetEndpoint()),
	}

	mux.HandleFunc("GET /v1/participants/parse", methodNotAllowed)
	mux.HandleFunc("POST /v1/participants/parse", h.handleParse)
	mux.HandleFunc("GET /v1/mentalmaps/heatmap", methodNotAllowed)
	mux.HandleFunc("POST /v1/mentalmaps/heatmap", h.handleHeatmap)
	mux.HandleFunc("GET /v1/mentalmaps/heatmap/current", h.handleCurrentHeatmap)
	mux.HandleFunc("POST /v1/cooccurrence", h.handleCoOccurrence)
	mux.HandleFunc("GET /v1/canonicalize/{term}", h.handleCanonicalize)
	mux.HandleFunc("GET /v1/rules", h.handleSimple(h.listRules))
	mux.HandleFunc("GET /v1/datasets", h.handleSimple(h.listDatasets))
	mux.HandleFunc("DELETE /v1/datasets/{id}", h.handleDataset(h.deleteDataset))
	mux.HandleFunc("GET /v1/datasets/{id}/participants", h.handleDataset(h.participants))
	mux.HandleFunc("GET /v1/datasets/{id}/stats", h.handleDataset(h.stats))
	mux.HandleFunc("GET /v1/datasets/{id}/regions/{region}", h.handleDataset(h.region))
	mux.HandleFunc("GET /v1/datasets/{id}/preferences", h.handleDataset(h.preferences))
	mux.HandleFunc("GET /v1/datasets/{id}/canada-places", h.handleDataset(h.canadaPlaces))
	mux.HandleFunc("GET /v1/datasets/{id}/questions", h.handleDataset(h.questions))
	mux.HandleFunc("GET /v1/datasets/{id}/heatmap", h.handleDatasetHeatmap)
	mux.HandleFunc("GET /v1/health", h.handleHealth)

	return cors(requestID(mux))
}

type handler struct {
	svc           *Service
	canonicalize  kit.Endpoint
	listRules     kit.Endpoint
	parse         kit.Endpoint
	heatmap       kit.Endpoint
	current       kit.Endpoint
	coOccurrence  kit.Endpoint
	listDatasets  kit.Endpoint
	participants  kit.Endpoint
	stats         kit.Endpoint
	region        kit.Endpoint
	preferences   kit.Endpoint
	canadaPlaces  kit.Endpoint
	questions     kit.Endpoint
	deleteDataset kit.Endpoint
}

// --- canonicalize ---

func (h *handler) handleCanonicalize(w http.ResponseWriter, r *http.Request) {
	term := r.PathValue("term")
	if term == "" {
		writeError(w, http.StatusBadRequest, "missing term")
		return
	}
	table := r.URL.Query().Get("table")
	if table == "" {
		table = dict.TableLabels
	}
	resp, err := h.canonicalize(r.Context(), &canonicalizeReq{Term: term, Table: table})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- participants ---

type httpParseRequest struct {
	Rows []*survey.Row `json:"rows"`
}

func (h *handler) handleParse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.svc.maxBody)
	var req httpParseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, err)
		return
	}
	resp, err := h.parse(r.Context(), &parseReq{Rows: req.Rows})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- heatmap ---

func (h *handler) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	req, ok := heatmapParams(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.svc.maxBody)
	c, err := mentalmap.Decode(r.Body)
	if err != nil {
		writeErr(w, err)
		return
	}
	req.Features = c.Features

	ctx := r.Context()
	if s := r.Header.Get(SessionHeader); s != "" {
		ctx = kit.WithSession(ctx, s)
	}
	resp, err := h.heatmap(ctx, req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleCurrentHeatmap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s := r.Header.Get(SessionHeader); s != "" {
		ctx = kit.WithSession(ctx, s)
	}
	resp, err := h.current(ctx, nil)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleDatasetHeatmap(w http.ResponseWriter, r *http.Request) {
	req, ok := heatmapParams(w, r)
	if !ok {
		return
	}
	req.DatasetID = r.PathValue("id")
	resp, err := h.heatmap(r.Context(), req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func heatmapParams(w http.ResponseWriter, r *http.Request) (*heatmapReq, bool) {
	q := r.URL.Query()
	req := &heatmapReq{Question: q.Get("question"), Participant: q.Get("participant")}
	if v := q.Get("cell_size"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			writeError(w, http.StatusBadRequest, "cell_size must be a positive number")
			return nil, false
		}
		req.CellSize = f
	}
	if v := q.Get("radius"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "radius must be an integer")
			return nil, false
		}
		req.Radius = n
	}
	return req, true
}

// --- co-occurrence ---

type httpCoOccurrenceRequest struct {
	Lists [][]string `json:"lists"`
}

func (h *handler) handleCoOccurrence(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.svc.maxBody)
	var req httpCoOccurrenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := h.coOccurrence(r.Context(), &coOccurrenceReq{Lists: req.Lists})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- datasets ---

func (h *handler) handleSimple(ep kit.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := ep(r.Context(), nil)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *handler) handleDataset(ep kit.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := ep(r.Context(), &datasetReq{
			ID:          r.PathValue("id"),
			Region:      r.PathValue("region"),
			Gender:      r.URL.Query().Get("gender"),
			Participant: r.URL.Query().Get("participant"),
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// --- health ---

type healthResponse struct {
	Status   string `json:"status"`
	Tables   int    `json:"tables"`
	Datasets bool   `json:"datasets"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Tables:   h.svc.reg.Count(),
		Datasets: h.svc.datasets != nil,
	})
}

// --- helpers ---

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	var surveyErr *survey.ValidationError
	var mapErr *mentalmap.ValidationError
	var maxBytes *http.MaxBytesError
	var syntax *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &surveyErr), errors.As(err, &mapErr), errors.Is(err, raster.ErrGridTooLarge):
		return http.StatusUnprocessableEntity
	case errors.As(err, &syntax), errors.As(err, &typeErr),
		errors.Is(err, errInvalidRequest), errors.Is(err, raster.ErrInvalidCellSize):
		return http.StatusBadRequest
	case errors.Is(err, importer.ErrNotFound), errors.Is(err, dict.ErrUnknownTable),
		errors.Is(err, errNoHeatmap):
		return http.StatusNotFound
	case errors.Is(err, raster.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, errNoDatasets):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeErr(w http.ResponseWriter, err error) {
	writeError(w, statusOf(err), err.Error())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// requestID propagates X-Request-ID, minting one when the client sent none.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(kit.WithRequestID(r.Context(), id)))
	})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, "+SessionHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
