package formula

import (
	"github.com/livemeasure/livemeasure/pkg/measure"
	"github.com/livemeasure/livemeasure/pkg/metric"
	"github.com/livemeasure/livemeasure/pkg/rating"
)

// fakeContext is a map-backed Context for exercising single formulas.
type fakeContext struct {
	target   metric.Metric
	values   map[string]float64
	texts    map[string]string
	children map[string][]float64
	prior    map[string]float64
	devCost  *measure.Value
	grid     rating.Grid
}

func newFakeContext(target metric.Metric) *fakeContext {
	return &fakeContext{
		target:   target,
		values:   map[string]float64{},
		texts:    map[string]string{},
		children: map[string][]float64{},
		prior:    map[string]float64{},
		grid:     rating.DefaultGrid,
	}
}

func (c *fakeContext) Value(m metric.Metric) (float64, bool) {
	v, ok := c.values[m.Key]
	return v, ok
}

func (c *fakeContext) Text(m metric.Metric) (string, bool) {
	v, ok := c.texts[m.Key]
	return v, ok
}

func (c *fakeContext) ChildrenValues() []float64 { return c.children[c.target.Key] }

func (c *fakeContext) PriorValue(m metric.Metric) (float64, bool) {
	v, ok := c.prior[m.Key]
	return v, ok
}

func (c *fakeContext) DevelopmentCost() (measure.Value, bool) {
	if c.devCost == nil {
		return measure.Value{}, false
	}
	return *c.devCost, true
}

func (c *fakeContext) DebtRatingGrid() rating.Grid { return c.grid }

func (c *fakeContext) SetValue(v float64)        { c.values[c.target.Key] = v }
func (c *fakeContext) SetText(s string)          { c.texts[c.target.Key] = s }
func (c *fakeContext) SetRating(r rating.Rating) { c.values[c.target.Key] = float64(r.Index()) }

func (c *fakeContext) on(m metric.Metric) *fakeContext {
	c.target = m
	return c
}
