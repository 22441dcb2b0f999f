// Package engine computes live measures for a component tree. It walks the
// tree children first and, for every component, runs the scheduled formulas
// of each variant: the leaf computation over the component's own issues,
// then the aggregation over what its children already produced.
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/livemeasure/livemeasure/pkg/component"
	"github.com/livemeasure/livemeasure/pkg/formula"
	"github.com/livemeasure/livemeasure/pkg/issues"
	"github.com/livemeasure/livemeasure/pkg/measure"
	"github.com/livemeasure/livemeasure/pkg/metric"
	"github.com/livemeasure/livemeasure/pkg/rating"
)

// IssueSource supplies the issue statistics of a component.
// *issues.Index implements it.
type IssueSource interface {
	Statistics(componentID string, newCode bool) (issues.Statistics, error)
}

// PriorSource supplies what a previous pass persisted. measure.Snapshot
// implements it.
type PriorSource interface {
	PriorValue(componentID string, m metric.Metric) (float64, bool)
	DevelopmentCost(componentID string, newCode bool) (measure.Value, bool)
}

// Engine runs a formula plan over component trees. An Engine holds no
// per-pass state: ComputeAll may be called concurrently for disjoint trees.
type Engine struct {
	plan    *formula.Plan
	grid    rating.Grid
	newCode bool
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for data errors. The default discards.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithGrid sets the debt rating grid.
func WithGrid(g rating.Grid) Option {
	return func(e *Engine) { e.grid = g }
}

// WithNewCode enables or disables the new code variant. It is enabled by
// default.
func WithNewCode(enabled bool) Option {
	return func(e *Engine) { e.newCode = enabled }
}

// New creates an engine for the given plan. A nil plan uses the built-in
// catalog.
func New(plan *formula.Plan, opts ...Option) *Engine {
	if plan == nil {
		plan = formula.DefaultPlan()
	}
	e := &Engine{
		plan:    plan,
		grid:    rating.DefaultGrid,
		newCode: true,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan returns the plan the engine runs.
func (e *Engine) Plan() *formula.Plan { return e.plan }

// Metrics returns the metrics a pass produces for a variant. It is empty for
// new code when the variant is disabled.
func (e *Engine) Metrics(newCode bool) []metric.Metric {
	if newCode && !e.newCode {
		return nil
	}
	return e.plan.Metrics(newCode)
}

// ComputeAll computes every scheduled metric for every component of the
// tree. A nil issue source behaves as a project without issues and a nil
// prior source as a first pass. Cancellation is checked between components.
func (e *Engine) ComputeAll(ctx context.Context, root *component.Component, src IssueSource, prior PriorSource) (*Result, error) {
	if err := root.Validate(); err != nil {
		return nil, fmt.Errorf("invalid component tree: %w", err)
	}
	if prior == nil {
		prior = measure.Snapshot{}
	}

	order := component.PostOrder(root)
	res := &Result{
		ID:         uuid.NewString(),
		Components: make(map[string]measure.Set, len(order)),
		Order:      make([]string, 0, len(order)),
	}

	sc := &scratch{
		prior:  prior,
		grid:   e.grid,
		values: measure.Set{},
	}
	for _, c := range order {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("computing %s: %w", c.ID, err)
		}

		sc.reset(c, res.Components)
		e.computeVariant(sc, src, false)
		if e.newCode {
			e.computeVariant(sc, src, true)
		}

		res.Components[c.ID] = sc.values.Clone()
		res.Order = append(res.Order, c.ID)
	}

	e.logger.Debug("computed live measures",
		zap.String("pass", res.ID),
		zap.String("root", root.ID),
		zap.Int("components", len(order)),
		zap.Int("formulas", e.plan.Len()))
	return res, nil
}

func (e *Engine) computeVariant(sc *scratch, src IssueSource, newCode bool) {
	stats := e.statistics(src, sc.comp.ID, newCode)
	for _, f := range e.plan.Formulas(newCode) {
		e.apply(sc, f, stats)
	}
}

// statistics substitutes Empty when the source fails, so the counts of the
// component fall back to zero instead of aborting the pass.
func (e *Engine) statistics(src IssueSource, componentID string, newCode bool) issues.Statistics {
	if src == nil {
		return issues.Empty
	}
	stats, err := src.Statistics(componentID, newCode)
	if err != nil {
		e.logger.Warn("issue statistics unavailable",
			zap.String("component", componentID),
			zap.Bool("new_code", newCode),
			zap.Error(err))
		return issues.Empty
	}
	if stats == nil {
		return issues.Empty
	}
	return stats
}

// apply runs one formula. A panicking formula leaves its metric unset on
// this component.
func (e *Engine) apply(sc *scratch, f *formula.Formula, stats issues.Statistics) {
	defer func() {
		if r := recover(); r != nil {
			delete(sc.values, f.Metric.Key)
			e.logger.Warn("formula failed",
				zap.String("component", sc.comp.ID),
				zap.String("metric", f.Metric.Key),
				zap.Any("panic", r))
		}
	}()

	sc.target = f
	f.Leaf(sc, stats)
	f.Aggregate(sc, f)
}
