package api

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/livemeasure/livemeasure/internal/recompute"
	"github.com/livemeasure/livemeasure/internal/store"
	"github.com/livemeasure/livemeasure/pkg/measure"
	"github.com/livemeasure/livemeasure/pkg/metric"
)

const maxInputBytes = 64 << 20

type uploadResponse struct {
	ProjectID  string `json:"project_id"`
	Components int    `json:"components"`
	Issues     int    `json:"issues"`
}

// handleUploadInput handles POST /api/v1/projects/{projectID}/inputs. The
// body is an analysis input document, optionally gzip-encoded.
func (h *Handler) handleUploadInput(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")

	var body io.Reader = http.MaxBytesReader(w, r.Body, maxInputBytes)
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid gzip body: "+err.Error())
			return
		}
		defer gz.Close()
		body = gz
	}

	data, err := io.ReadAll(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body: "+err.Error())
		return
	}

	in, err := h.recompute.Upload(r.Context(), projectID, data)
	if errors.Is(err, recompute.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("upload input failed", zap.String("project", projectID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store input")
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		ProjectID:  projectID,
		Components: in.Tree.Count(),
		Issues:     len(in.Issues),
	})
}

// handleRecompute handles POST /api/v1/projects/{projectID}/recompute.
func (h *Handler) handleRecompute(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")

	out, err := h.recompute.Recompute(r.Context(), recompute.Request{ProjectID: projectID})
	if errors.Is(err, recompute.ErrNoInput) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("recompute failed", zap.String("project", projectID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "recompute failed: "+err.Error())
		return
	}
	h.cache.Invalidate(projectID)

	writeJSON(w, http.StatusOK, out)
}

type recomputeAllRequest struct {
	ProjectIDs []string `json:"project_ids"`
}

type recomputeAllResponse struct {
	Recomputed int                 `json:"recomputed"`
	Errors     int                 `json:"errors"`
	Outcomes   []recompute.Outcome `json:"outcomes"`
}

// handleRecomputeAll handles POST /api/v1/recompute. Without a project
// list every known project is recomputed.
func (h *Handler) handleRecomputeAll(w http.ResponseWriter, r *http.Request) {
	var req recomputeAllRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	ctx := r.Context()
	if len(req.ProjectIDs) == 0 {
		projects, err := h.store.ListProjects(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list projects: "+err.Error())
			return
		}
		for _, p := range projects {
			req.ProjectIDs = append(req.ProjectIDs, p.ID)
		}
	}

	reqs := make([]recompute.Request, len(req.ProjectIDs))
	for i, id := range req.ProjectIDs {
		reqs[i] = recompute.Request{ProjectID: id}
	}
	outcomes, err := h.recompute.RecomputeAll(ctx, reqs)
	if err != nil {
		h.logger.Warn("bulk recompute had failures", zap.Error(err))
	}

	resp := recomputeAllResponse{Outcomes: outcomes}
	if resp.Outcomes == nil {
		resp.Outcomes = []recompute.Outcome{}
	}
	for _, out := range outcomes {
		h.cache.Invalidate(out.ProjectID)
		if out.Error != "" {
			resp.Errors++
		} else {
			resp.Recomputed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleListProjects handles GET /api/v1/projects.
func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list projects: "+err.Error())
		return
	}
	if projects == nil {
		projects = []store.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

type projectResponse struct {
	store.Project
	LatestRun *store.Run `json:"latest_run,omitempty"`
}

// handleGetProject handles GET /api/v1/projects/{projectID}.
func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, ok := h.project(w, r)
	if !ok {
		return
	}

	resp := projectResponse{Project: *p}
	runs, err := h.store.ListRuns(ctx, p.ID, 1)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list runs: "+err.Error())
		return
	}
	if len(runs) > 0 {
		resp.LatestRun = &runs[0]
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleMeasures handles GET /api/v1/projects/{projectID}/measures.
// Query parameters:
//
//	component  restrict the response to one component
//	metrics    comma-separated metric keys to return
func (h *Handler) handleMeasures(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")

	keys, err := parseMetricKeys(r.URL.Query().Get("metrics"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap := h.cache.Get(projectID)
	if snap == nil {
		if _, ok := h.project(w, r); !ok {
			return
		}
		snap, err = h.store.LoadSnapshot(r.Context(), projectID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "load measures: "+err.Error())
			return
		}
		h.cache.Put(projectID, snap)
	}

	if componentID := r.URL.Query().Get("component"); componentID != "" {
		set, ok := snap[componentID]
		if !ok {
			writeError(w, http.StatusNotFound, "component not found: "+componentID)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"project_id": projectID,
			"component":  componentID,
			"measures":   filterSet(set, keys),
		})
		return
	}

	out := make(measure.Snapshot, len(snap))
	for id, set := range snap {
		out[id] = filterSet(set, keys)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"project_id": projectID,
		"components": out,
	})
}

// handleListRuns handles GET /api/v1/projects/{projectID}/runs?limit=N.
func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit: "+v)
			return
		}
		limit = n
	}

	runs, err := h.store.ListRuns(r.Context(), projectID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list runs: "+err.Error())
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleReport handles GET /api/v1/projects/{projectID}/runs/{runID}/report.
func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	data, err := h.storage.GetReport(r.Context(), r.PathValue("projectID"), r.PathValue("runID"))
	if errors.Is(err, recompute.ErrNoReport) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load report: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// project loads the project named in the path, writing a 404 when it does
// not exist.
func (h *Handler) project(w http.ResponseWriter, r *http.Request) (*store.Project, bool) {
	p, err := h.store.GetProject(r.Context(), r.PathValue("projectID"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return p, true
}

func parseMetricKeys(raw string) (map[string]bool, error) {
	if raw == "" {
		return nil, nil
	}
	keys := make(map[string]bool)
	for _, k := range strings.Split(raw, ",") {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := metric.ByKey(k); !ok {
			return nil, errors.New("unknown metric: " + k)
		}
		keys[k] = true
	}
	return keys, nil
}

func filterSet(set measure.Set, keys map[string]bool) measure.Set {
	if keys == nil {
		return set
	}
	out := make(measure.Set, len(keys))
	for k, v := range set {
		if keys[k] {
			out[k] = v
		}
	}
	return out
}
