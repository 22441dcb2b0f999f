// Package formula declares how every live measure is computed. A Formula
// pairs a leaf computation, which derives a value from the component's own
// issues, with an aggregation computation, which combines that value with
// what was already computed for the component's children.
package formula

import (
	"github.com/livemeasure/livemeasure/pkg/issues"
	"github.com/livemeasure/livemeasure/pkg/measure"
	"github.com/livemeasure/livemeasure/pkg/metric"
	"github.com/livemeasure/livemeasure/pkg/rating"
)

// Context is the view of one component a formula computes against. Values
// set by a formula are visible to the formulas scheduled after it, and to
// the parent component once the component is complete.
type Context interface {
	// Value returns a value already computed for this component in the
	// current pass.
	Value(m metric.Metric) (float64, bool)
	// Text returns a textual value already computed in the current pass.
	Text(m metric.Metric) (string, bool)
	// ChildrenValues returns the children's values of the formula's metric.
	// Children without a value are skipped.
	ChildrenValues() []float64
	// PriorValue returns the value persisted by a previous pass.
	PriorValue(m metric.Metric) (float64, bool)
	// DevelopmentCost returns the development cost of the component for the
	// formula's variant: text for overall code, a number for new code.
	DevelopmentCost() (measure.Value, bool)
	DebtRatingGrid() rating.Grid

	SetValue(v float64)
	SetText(s string)
	SetRating(r rating.Rating)
}

// LeafFunc sets the metric from the component's own issues.
type LeafFunc func(ctx Context, stats issues.Statistics)

// AggregateFunc combines the leaf value with the children's values.
type AggregateFunc func(ctx Context, f *Formula)

// Formula declares how one metric is computed.
type Formula struct {
	Metric    metric.Metric
	NewCode   bool
	DependsOn []metric.Metric
	Leaf      LeafFunc
	Aggregate AggregateFunc
}

// AddChildren adds the sum of the children's values to the leaf value.
// Without children the leaf value is kept as is.
func AddChildren(ctx Context, f *Formula) {
	var sum float64
	for _, v := range ctx.ChildrenValues() {
		sum += v
	}
	cur, _ := ctx.Value(f.Metric)
	ctx.SetValue(cur + sum)
}

// MaxRatingChildren keeps the worse of the component's own rating and the
// worst rating of its children. It does nothing when no child has a rating.
func MaxRatingChildren(ctx Context, f *Formula) {
	children := ctx.ChildrenValues()
	if len(children) == 0 {
		return
	}
	worst := rating.A
	if cur, ok := ctx.Value(f.Metric); ok {
		worst = ratingOf(cur)
	}
	for _, v := range children {
		worst = rating.Max(worst, ratingOf(v))
	}
	ctx.SetRating(worst)
}

// AccumulateChildren sets the persisted value of the component plus the
// sum of the children's values. Unlike AddChildren, the result carries over
// across passes. Without children the leaf value is kept as is.
func AccumulateChildren(ctx Context, f *Formula) {
	children := ctx.ChildrenValues()
	if len(children) == 0 {
		return
	}
	prior, _ := ctx.PriorValue(f.Metric)
	for _, v := range children {
		prior += v
	}
	ctx.SetValue(prior)
}

func ratingOf(v float64) rating.Rating {
	r := rating.Rating(int(v))
	switch {
	case r < rating.A:
		return rating.A
	case r > rating.E:
		return rating.E
	}
	return r
}

// Metrics returns the target metrics of the formulas, split by variant.
func Metrics(formulas []*Formula) (overall, newCode []metric.Metric) {
	for _, f := range formulas {
		if f.NewCode {
			newCode = append(newCode, f.Metric)
		} else {
			overall = append(overall, f.Metric)
		}
	}
	return overall, newCode
}
