// Package api implements the live measure REST API.
// It accepts analysis inputs, triggers recomputation, and serves the
// persisted measures of every project.
package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/livemeasure/livemeasure/internal/recompute"
	"github.com/livemeasure/livemeasure/internal/store"
	"github.com/livemeasure/livemeasure/pkg/engine"
)

// Handler is the top-level API handler for the live measure service.
type Handler struct {
	store     *store.Store
	storage   recompute.StorageClient
	recompute *recompute.Service
	engine    *engine.Engine
	cache     *MeasureCache
	logger    *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(st *store.Store, storage recompute.StorageClient, svc *recompute.Service, eng *engine.Engine, cache *MeasureCache, logger *zap.Logger) *Handler {
	if cache == nil {
		cache = NewMeasureCache(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:     st,
		storage:   storage,
		recompute: svc,
		engine:    eng,
		cache:     cache,
		logger:    logger,
	}
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Write endpoints (auth-protected)
	mux.HandleFunc("POST /api/v1/projects/{projectID}/inputs", h.handleUploadInput)
	mux.HandleFunc("POST /api/v1/projects/{projectID}/recompute", h.handleRecompute)
	mux.HandleFunc("POST /api/v1/recompute", h.handleRecomputeAll)

	// Read endpoints
	mux.HandleFunc("GET /api/v1/projects", h.handleListProjects)
	mux.HandleFunc("GET /api/v1/projects/{projectID}", h.handleGetProject)
	mux.HandleFunc("GET /api/v1/projects/{projectID}/measures", h.handleMeasures)
	mux.HandleFunc("GET /api/v1/projects/{projectID}/runs", h.handleListRuns)
	mux.HandleFunc("GET /api/v1/projects/{projectID}/runs/{runID}/report", h.handleReport)
	mux.HandleFunc("GET /api/v1/formulas", h.handleFormulas)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
