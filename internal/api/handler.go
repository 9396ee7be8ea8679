package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/nthompson1415/AVECapstone/internal/analyses"
	"github.com/nthompson1415/AVECapstone/internal/batch"
	"github.com/nthompson1415/AVECapstone/internal/config"
	"github.com/nthompson1415/AVECapstone/internal/harm"
	"github.com/nthompson1415/AVECapstone/internal/models"
	"github.com/nthompson1415/AVECapstone/internal/presets"
	"github.com/nthompson1415/AVECapstone/internal/scorer"
)

const (
	maxBodyBytes  = 1 << 20
	maxBatchCount = 10000
	defaultBatchN = 100
	defaultTopN   = 10
	defaultSeed   = 12345
)

// Handler provides HTTP API endpoints
type Handler struct {
	engine   *scorer.Engine
	analyses *analyses.Store
	runs     *batch.Store
	cfg      config.Config
	logger   *slog.Logger
}

// NewHandler creates a new API handler. The stores may be nil; their routes
// then answer 503.
func NewHandler(
	engine *scorer.Engine,
	analysesStore *analyses.Store,
	runStore *batch.Store,
	cfg config.Config,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:   engine,
		analyses: analysesStore,
		runs:     runStore,
		cfg:      cfg,
		logger:   logger.With("component", "api"),
	}
}

// RegisterRoutes sets up all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Health and info
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/info", h.handleInfo).Methods("GET")

	// Reference data
	r.HandleFunc("/presets", h.handleListPresets).Methods("GET")
	r.HandleFunc("/presets/{key}", h.handleGetPreset).Methods("GET")
	r.HandleFunc("/levels", h.handleListLevels).Methods("GET")

	// Scoring
	r.HandleFunc("/analyze", h.handleAnalyze).Methods("POST")
	r.HandleFunc("/analyze/weighted", h.handleAnalyzeWeighted).Methods("POST")

	// Personal weights
	r.HandleFunc("/weights/default", h.handleDefaultWeights).Methods("GET")
	r.HandleFunc("/weights/import", h.handleImportWeights).Methods("POST")
	r.HandleFunc("/weights/export", h.handleExportWeights).Methods("POST")

	// Saved analyses
	r.HandleFunc("/analyses", h.handleListAnalyses).Methods("GET")
	r.HandleFunc("/analyses", h.handleCreateAnalysis).Methods("POST")
	r.HandleFunc("/analyses/import", h.handleImportAnalysis).Methods("POST")
	r.HandleFunc("/analyses/{id}", h.handleGetAnalysis).Methods("GET")
	r.HandleFunc("/analyses/{id}", h.handleDeleteAnalysis).Methods("DELETE")
	r.HandleFunc("/analyses/{id}/export", h.handleExportAnalysis).Methods("GET")

	// Batch runs
	r.HandleFunc("/batch", h.handleRunBatch).Methods("POST")
	r.HandleFunc("/batch", h.handleListRuns).Methods("GET")
	r.HandleFunc("/batch/{id}", h.handleDeleteRun).Methods("DELETE")
	r.HandleFunc("/batch/{id}/summary", h.handleRunSummary).Methods("GET")
	r.HandleFunc("/batch/{id}/report.md", h.handleRunReport).Methods("GET")
	r.HandleFunc("/batch/{id}/rows.csv", h.handleRunRows).Methods("GET")
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// respondError sends a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.InfoResponse{
		Version:         h.cfg.Version,
		Engine:          h.engine.Name(),
		TieBreak:        string(h.engine.TieBreak()),
		AnalysesEnabled: h.analyses != nil,
		RunsEnabled:     h.runs != nil,
	})
}

func (h *Handler) handleListPresets(w http.ResponseWriter, r *http.Request) {
	all := presets.All()
	out := make([]models.PresetSummary, len(all))
	for i, p := range all {
		out[i] = models.PresetSummary{Key: p.Key, Name: p.Name, Description: p.Description}
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	p, err := presets.Get(mux.Vars(r)["key"])
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handler) handleListLevels(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, harm.Levels)
}

// resolveScenario picks the request scenario, then the preset, then the
// default scenario.
func resolveScenario(scenario *harm.Scenario, preset string) (harm.Scenario, error) {
	switch {
	case scenario != nil:
		return *scenario, nil
	case preset != "":
		p, err := presets.Get(preset)
		if err != nil {
			return harm.Scenario{}, err
		}
		return p.Scenario, nil
	}
	return presets.Default(), nil
}

// resolveRequest picks the scenario and flags an AnalyzeRequest names.
func resolveRequest(req models.AnalyzeRequest) (harm.Scenario, harm.FeatureFlags, error) {
	s, err := resolveScenario(req.Scenario, req.Preset)
	if err != nil {
		return s, harm.FeatureFlags{}, err
	}

	var flags harm.FeatureFlags
	switch {
	case req.FeatureFlags != nil:
		flags = *req.FeatureFlags
	case req.Level != "":
		l, err := harm.LevelByKey(req.Level)
		if err != nil {
			return s, flags, err
		}
		flags = l.Flags
	}
	return s, flags, nil
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, flags, err := resolveRequest(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	analyze := h.engine.Analyze
	if trace, _ := strconv.ParseBool(r.URL.Query().Get("trace")); trace {
		analyze = h.engine.AnalyzeTraced
	}
	report, err := analyze(r.Context(), s, flags)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) handleAnalyzeWeighted(w http.ResponseWriter, r *http.Request) {
	defaults := harm.DefaultWeights()
	req := models.WeightedAnalyzeRequest{Weights: &defaults}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := resolveScenario(req.Scenario, req.Preset)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	weights := harm.DefaultWeights()
	if req.Weights != nil {
		weights = *req.Weights
	}
	res, err := harm.AnalyzeWeighted(s, weights)
	switch {
	case errors.Is(err, harm.ErrInvalidWeights):
		respondError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondJSON(w, http.StatusOK, res)
	}
}

func (h *Handler) handleDefaultWeights(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, analyses.NewWeightsDocument(harm.DefaultWeights()))
}

func (h *Handler) handleImportWeights(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := analyses.DecodeWeights(data)
	if err != nil {
		h.logger.Warn("rejected weights import", "error", err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

func (h *Handler) handleExportWeights(w http.ResponseWriter, r *http.Request) {
	weights := harm.DefaultWeights()
	if err := decodeBody(r, &weights); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc := analyses.NewWeightsDocument(weights)
	data, err := analyses.EncodeWeights(doc)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="ethics-weights.json"`)
	w.Write(data)
}

func (h *Handler) requireAnalyses(w http.ResponseWriter) bool {
	if h.analyses == nil {
		respondError(w, http.StatusServiceUnavailable, "analyses store not available")
		return false
	}
	return true
}

func (h *Handler) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analyses.ErrNotFound), errors.Is(err, batch.ErrRunNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, analyses.ErrMissingScenario), errors.Is(err, analyses.ErrInvalidDocument):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("store operation failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if !h.requireAnalyses(w) {
		return
	}
	list, err := h.analyses.List()
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	if !h.requireAnalyses(w) {
		return
	}
	var req models.SaveAnalysisRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.save(w, r, req.Title, req.Document)
}

// save computes a missing result and stores the document.
func (h *Handler) save(w http.ResponseWriter, r *http.Request, title string, doc analyses.Document) {
	if doc.Scenario == nil {
		respondError(w, http.StatusBadRequest, analyses.ErrMissingScenario.Error())
		return
	}
	if doc.Result == nil {
		report, err := h.engine.Analyze(r.Context(), *doc.Scenario, doc.FeatureFlags)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		doc.Result = &report.Result
	}
	a, err := h.analyses.Create(title, doc)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleImportAnalysis(w http.ResponseWriter, r *http.Request) {
	if !h.requireAnalyses(w) {
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := analyses.Decode(data)
	if err != nil {
		h.logger.Warn("rejected import", "error", err)
		h.respondStoreError(w, err)
		return
	}
	h.save(w, r, r.URL.Query().Get("title"), *doc)
}

func (h *Handler) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	if !h.requireAnalyses(w) {
		return
	}
	a, err := h.analyses.Get(mux.Vars(r)["id"])
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *Handler) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	if !h.requireAnalyses(w) {
		return
	}
	if err := h.analyses.Delete(mux.Vars(r)["id"]); err != nil {
		h.respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExportAnalysis(w http.ResponseWriter, r *http.Request) {
	if !h.requireAnalyses(w) {
		return
	}
	a, err := h.analyses.Get(mux.Vars(r)["id"])
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	data, err := analyses.Encode(a.Document)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="scenario-%s.json"`, a.ID))
	w.Write(data)
}

func (h *Handler) handleRunBatch(w http.ResponseWriter, r *http.Request) {
	req := models.BatchRequest{Count: defaultBatchN, Seed: defaultSeed}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Count <= 0 || req.Count > maxBatchCount {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("count must be between 1 and %d", maxBatchCount))
		return
	}
	tb, err := harm.ParseTieBreak(req.TieBreak)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TieBreak == "" {
		tb = harm.TieBreakHarmDifference
	}
	if req.TopN <= 0 {
		req.TopN = defaultTopN
	}
	workers := req.Workers
	if workers <= 0 || workers > h.cfg.BatchWorkers {
		workers = h.cfg.BatchWorkers
	}
	opts := batch.Options{Workers: workers, TieBreak: tb}

	evals, err := batch.Run(r.Context(), batch.Generate(req.Count, req.Seed), harm.Levels, opts)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	resp := models.BatchResponse{Summary: batch.Summarize(evals, req.TopN)}
	if h.runs != nil {
		info, err := h.runs.SaveRun(r.Context(), req.Seed, opts, evals)
		if err != nil {
			h.respondStoreError(w, err)
			return
		}
		resp.Run = &info
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) requireRuns(w http.ResponseWriter) bool {
	if h.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "run store not available")
		return false
	}
	return true
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !h.requireRuns(w) {
		return
	}
	runs, err := h.runs.ListRuns(r.Context())
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, runs)
}

func (h *Handler) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if !h.requireRuns(w) {
		return
	}
	if err := h.runs.DeleteRun(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) runSummary(r *http.Request) (batch.Summary, error) {
	outcomes, err := h.runs.LoadOutcomes(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return batch.Summary{}, err
	}
	topN := defaultTopN
	if n, err := strconv.Atoi(r.URL.Query().Get("top")); err == nil && n > 0 {
		topN = n
	}
	return batch.SummarizeOutcomes(outcomes, topN), nil
}

func (h *Handler) handleRunSummary(w http.ResponseWriter, r *http.Request) {
	if !h.requireRuns(w) {
		return
	}
	s, err := h.runSummary(r)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

func (h *Handler) handleRunReport(w http.ResponseWriter, r *http.Request) {
	if !h.requireRuns(w) {
		return
	}
	s, err := h.runSummary(r)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	if err := batch.WriteReport(w, s); err != nil {
		h.logger.Error("failed to write report", "error", err)
	}
}

func (h *Handler) handleRunRows(w http.ResponseWriter, r *http.Request) {
	if !h.requireRuns(w) {
		return
	}
	id := mux.Vars(r)["id"]
	records, err := h.runs.LoadRecords(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="run-%s.csv"`, id))
	if err := batch.WriteRecords(w, records); err != nil {
		h.logger.Error("failed to write rows", "error", err)
	}
}
