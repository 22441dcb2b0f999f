package engine

import (
	"github.com/livemeasure/livemeasure/pkg/measure"
	"github.com/livemeasure/livemeasure/pkg/metric"
)

// Result holds the measures of one pass.
type Result struct {
	ID         string                 `json:"id"`
	Components map[string]measure.Set `json:"components"`
	// Order lists component IDs in the order they were computed, children
	// first.
	Order []string `json:"order"`
}

// Component returns the measures computed for a component, or nil.
func (r *Result) Component(id string) measure.Set {
	return r.Components[id]
}

// Value returns the numeric value of a metric on a component.
func (r *Result) Value(componentID string, m metric.Metric) (float64, bool) {
	return r.Components[componentID].Float(m)
}

// Snapshot copies the result into a snapshot, ready to serve as the prior
// values of the next pass.
func (r *Result) Snapshot() measure.Snapshot {
	snap := make(measure.Snapshot, len(r.Components))
	for id, set := range r.Components {
		snap[id] = set.Clone()
	}
	return snap
}
