package measure

import "github.com/livemeasure/livemeasure/pkg/metric"

// Snapshot is the persisted measures of a set of components, keyed by
// component ID. It answers the prior-value and development-cost lookups
// the engine needs.
type Snapshot map[string]Set

// Component returns the set of a component, or nil.
func (s Snapshot) Component(componentID string) Set {
	return s[componentID]
}

// Put stores a value, creating the component's set on demand.
func (s Snapshot) Put(componentID string, m metric.Metric, v Value) {
	set, ok := s[componentID]
	if !ok || set == nil {
		set = Set{}
		s[componentID] = set
	}
	set[m.Key] = v
}

// PriorValue returns the persisted numeric value of a metric.
func (s Snapshot) PriorValue(componentID string, m metric.Metric) (float64, bool) {
	return s[componentID].Float(m)
}

// DevelopmentCost returns the persisted development cost of a component:
// the textual development_cost measure for overall code and the numeric
// new_development_cost measure for new code.
func (s Snapshot) DevelopmentCost(componentID string, newCode bool) (Value, bool) {
	m := metric.DevelopmentCost
	if newCode {
		m = metric.NewDevelopmentCost
	}
	v, ok := s[componentID].Get(m)
	if !ok || v.Empty() {
		return Value{}, false
	}
	return v, true
}
