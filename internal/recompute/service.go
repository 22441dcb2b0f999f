// Package recompute drives live measure recomputation: it loads a project's
// analysis input and persisted measures, runs the engine, and stores the
// new values together with a report of the pass.
package recompute

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/livemeasure/livemeasure/internal/store"
	"github.com/livemeasure/livemeasure/pkg/engine"
	"github.com/livemeasure/livemeasure/pkg/issues"
	"github.com/livemeasure/livemeasure/pkg/measure"
	"github.com/livemeasure/livemeasure/pkg/metric"
	"github.com/livemeasure/livemeasure/pkg/surface"
)

// MeasureStore is the persistence the service needs. *store.Store
// implements it.
type MeasureStore interface {
	EnsureProject(ctx context.Context, projectID, name string) error
	LoadSnapshot(ctx context.Context, projectID string) (measure.Snapshot, error)
	SaveResult(ctx context.Context, projectID string, res *engine.Result, recomputed []metric.Metric) (int, error)
	RecordRun(ctx context.Context, run store.Run) error
}

// Request names the project to recompute.
type Request struct {
	ProjectID string `json:"project_id"`
}

// Outcome describes a finished recomputation.
type Outcome struct {
	RunID      string        `json:"run_id"`
	ProjectID  string        `json:"project_id"`
	Components int           `json:"components"`
	Measures   int           `json:"measures"`
	Duration   time.Duration `json:"duration"`
	ReportRef  string        `json:"report_ref"`
	Published  bool          `json:"published,omitempty"`
	Error      string        `json:"error,omitempty"`

	Result *engine.Result `json:"-"`
}

// Publisher reports the outcome of a pass on the commit it analyzed.
type Publisher interface {
	PublishCheckRun(ctx context.Context, installationID int64, owner, repo, headSHA string, data surface.CheckRunData) error
}

// Service orchestrates recomputation.
type Service struct {
	store       MeasureStore
	storage     StorageClient
	engine      *engine.Engine
	publisher   Publisher
	logger      *zap.Logger
	concurrency int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConcurrency bounds how many projects RecomputeAll processes at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithPublisher publishes a check run after every pass over an input that
// names its revision.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// NewService creates a new recompute Service.
func NewService(st MeasureStore, storage StorageClient, eng *engine.Engine, opts ...Option) *Service {
	s := &Service{
		store:       st,
		storage:     storage,
		engine:      eng,
		logger:      zap.NewNop(),
		concurrency: 4,
		locks:       make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload validates an input document and stores it as the project's latest
// input.
func (s *Service) Upload(ctx context.Context, projectID string, data []byte) (*Input, error) {
	defer s.lock(projectID)()

	in, err := DecodeInput(data)
	if err != nil {
		return nil, err
	}
	if in.ProjectID != projectID {
		return nil, fmt.Errorf("%w: input is for project %q, not %q", ErrInvalidInput, in.ProjectID, projectID)
	}
	if err := s.storage.PutInput(ctx, projectID, data); err != nil {
		return nil, fmt.Errorf("store input: %w", err)
	}
	if err := s.store.EnsureProject(ctx, projectID, in.Name); err != nil {
		return nil, err
	}
	return in, nil
}

// UpdateIssues applies issue status changes to the stored input of a
// project. The measures are not recomputed.
func (s *Service) UpdateIssues(ctx context.Context, projectID string, changes []IssueChange) (*Input, error) {
	defer s.lock(projectID)()

	data, err := s.storage.GetInput(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load input: %w", err)
	}
	in, err := DecodeInput(data)
	if err != nil {
		return nil, err
	}
	if err := in.applyChanges(changes); err != nil {
		return nil, err
	}
	data, err = json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal input: %w", err)
	}
	if err := s.storage.PutInput(ctx, projectID, data); err != nil {
		return nil, fmt.Errorf("store input: %w", err)
	}
	return in, nil
}

// lock serializes uploads, issue updates and passes over the same project.
// The hotspot status counters build on the values the previous pass stored,
// and an issue update must not write back an input an upload replaced.
func (s *Service) lock(projectID string) func() {
	s.mu.Lock()
	l, ok := s.locks[projectID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[projectID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Recompute runs one pass over a project.
func (s *Service) Recompute(ctx context.Context, req Request) (*Outcome, error) {
	defer s.lock(req.ProjectID)()
	start := time.Now()

	data, err := s.storage.GetInput(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load input: %w", err)
	}
	in, err := DecodeInput(data)
	if err != nil {
		return nil, err
	}

	if err := s.store.EnsureProject(ctx, req.ProjectID, in.Name); err != nil {
		return nil, err
	}
	prior, err := s.store.LoadSnapshot(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load prior measures: %w", err)
	}
	in.ApplyDevelopmentCosts(prior)

	res, err := s.engine.ComputeAll(ctx, in.Tree, issues.NewIndex(in.Issues), prior)
	if err != nil {
		return nil, fmt.Errorf("compute measures: %w", err)
	}

	recomputed := append(s.engine.Metrics(false), s.engine.Metrics(true)...)
	written, err := s.store.SaveResult(ctx, req.ProjectID, res, recomputed)
	if err != nil {
		return nil, fmt.Errorf("save measures: %w", err)
	}

	rep := &surface.Report{Root: in.Tree, Result: res}
	var report bytes.Buffer
	if err := (&surface.JSONRenderer{}).Render(&report, rep); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	if err := s.storage.PutReport(ctx, req.ProjectID, res.ID, report.Bytes()); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}

	out := &Outcome{
		RunID:      res.ID,
		ProjectID:  req.ProjectID,
		Components: len(res.Order),
		Measures:   written,
		Duration:   time.Since(start),
		ReportRef:  ReportRef(req.ProjectID, res.ID),
		Result:     res,
	}
	if s.publisher != nil && in.Revision != nil {
		out.Published = s.publish(ctx, in.Revision, rep)
	}
	if err := s.store.RecordRun(ctx, store.Run{
		ID:         out.RunID,
		ProjectID:  out.ProjectID,
		Components: out.Components,
		Measures:   out.Measures,
		DurationMs: out.Duration.Milliseconds(),
		ReportRef:  out.ReportRef,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("recomputed live measures",
		zap.String("project", out.ProjectID),
		zap.String("run", out.RunID),
		zap.Int("components", out.Components),
		zap.Int("measures", out.Measures),
		zap.Duration("duration", out.Duration))
	return out, nil
}

// publish posts the check run of a pass. Failures are logged: the measures
// are already stored.
func (s *Service) publish(ctx context.Context, rev *Revision, rep *surface.Report) bool {
	log := s.logger.With(zap.String("repository", rev.Repository), zap.String("sha", rev.HeadSHA))

	owner, repo, _ := strings.Cut(rev.Repository, "/")
	data, err := (&surface.CheckRunRenderer{}).BuildCheckRunData(rep)
	if err != nil {
		log.Warn("build check run", zap.Error(err))
		return false
	}
	if err := s.publisher.PublishCheckRun(ctx, rev.InstallationID, owner, repo, rev.HeadSHA, data); err != nil {
		log.Warn("publish check run", zap.Error(err))
		return false
	}
	return true
}

// RecomputeAll recomputes several projects in parallel. A failing project
// does not stop the others: its outcome carries the error, and the joined
// errors are returned. Duplicate requests run once.
func (s *Service) RecomputeAll(ctx context.Context, reqs []Request) ([]Outcome, error) {
	seen := make(map[string]bool, len(reqs))
	var unique []Request
	for _, r := range reqs {
		if !seen[r.ProjectID] {
			seen[r.ProjectID] = true
			unique = append(unique, r)
		}
	}

	outcomes := make([]Outcome, len(unique))
	errs := make([]error, len(unique))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, req := range unique {
		g.Go(func() error {
			out, err := s.Recompute(ctx, req)
			if err != nil {
				s.logger.Warn("recompute failed", zap.String("project", req.ProjectID), zap.Error(err))
				outcomes[i] = Outcome{ProjectID: req.ProjectID, Error: err.Error()}
				errs[i] = fmt.Errorf("project %s: %w", req.ProjectID, err)
				return nil
			}
			outcomes[i] = *out
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, errors.Join(errs...)
}
