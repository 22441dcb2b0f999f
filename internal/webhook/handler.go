package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/livemeasure/livemeasure/internal/recompute"
)

// Recomputer is the part of the recompute service events drive.
// *recompute.Service implements it.
type Recomputer interface {
	Upload(ctx context.Context, projectID string, data []byte) (*recompute.Input, error)
	UpdateIssues(ctx context.Context, projectID string, changes []recompute.IssueChange) (*recompute.Input, error)
	Recompute(ctx context.Context, req recompute.Request) (*recompute.Outcome, error)
}

// Handler processes incoming webhook events.
type Handler struct {
	secret     []byte
	recomputer Recomputer
	invalidate func(projectID string)
	logger     *zap.Logger
}

// NewHandler creates a new webhook Handler. invalidate, if set, is called
// with every project whose measures changed.
func NewHandler(secret []byte, r Recomputer, invalidate func(projectID string), logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		secret:     secret,
		recomputer: r,
		invalidate: invalidate,
		logger:     logger,
	}
}

type response struct {
	Status    string `json:"status"`
	ProjectID string `json:"project_id,omitempty"`
	RunID     string `json:"run_id,omitempty"`
}

// ServeHTTP handles incoming webhook requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("X-Livemeasure-Signature-256")
	if err := VerifySignature(body, signature, h.secret); err != nil {
		h.logger.Warn("webhook signature verification failed", zap.Error(err))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	eventType := r.Header.Get("X-Livemeasure-Event")
	if eventType == "" {
		http.Error(w, "missing X-Livemeasure-Event header", http.StatusBadRequest)
		return
	}

	event, err := ParseEvent(eventType, body)
	if err != nil {
		h.logger.Warn("webhook parse error", zap.String("event", eventType), zap.Error(err))
		http.Error(w, "unsupported event", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	var out *recompute.Outcome

	switch e := event.(type) {
	case *PingEvent:
		writeResponse(w, http.StatusOK, response{Status: "pong"})
		return

	case *AnalysisEvent:
		out, err = h.handleAnalysis(ctx, e)

	case *IssuesEvent:
		out, err = h.handleIssues(ctx, e)
	}

	switch {
	case errors.Is(err, recompute.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, recompute.ErrNoInput):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error("handle event", zap.String("event", eventType), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if h.invalidate != nil {
		h.invalidate(out.ProjectID)
	}
	writeResponse(w, http.StatusOK, response{Status: "completed", ProjectID: out.ProjectID, RunID: out.RunID})
}

func (h *Handler) handleAnalysis(ctx context.Context, e *AnalysisEvent) (*recompute.Outcome, error) {
	if _, err := h.recomputer.Upload(ctx, e.ProjectID, e.Payload); err != nil {
		return nil, err
	}
	h.logger.Info("received analysis", zap.String("project", e.ProjectID))
	return h.recomputer.Recompute(ctx, recompute.Request{ProjectID: e.ProjectID})
}

func (h *Handler) handleIssues(ctx context.Context, e *IssuesEvent) (*recompute.Outcome, error) {
	if _, err := h.recomputer.UpdateIssues(ctx, e.ProjectID, e.Changes); err != nil {
		return nil, err
	}
	h.logger.Info("applied issue changes", zap.String("project", e.ProjectID), zap.Int("changes", len(e.Changes)))
	return h.recomputer.Recompute(ctx, recompute.Request{ProjectID: e.ProjectID})
}

func writeResponse(w http.ResponseWriter, status int, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
