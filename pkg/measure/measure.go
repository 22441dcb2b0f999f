// Package measure holds computed and persisted measure values. A measure is
// the value of one metric on one component; it may be numeric, textual, or
// both (ratings carry their index and their letter).
package measure

import (
	"sort"
	"strconv"
	"strings"

	"github.com/livemeasure/livemeasure/pkg/metric"
)

// Value is a single measure value.
type Value struct {
	Number *float64 `json:"value,omitempty"`
	Data   *string  `json:"data,omitempty"`
}

// Num builds a numeric value.
func Num(v float64) Value { return Value{Number: &v} }

// Text builds a textual value.
func Text(s string) Value { return Value{Data: &s} }

// Float returns the numeric part of the value.
func (v Value) Float() (float64, bool) {
	if v.Number == nil {
		return 0, false
	}
	return *v.Number, true
}

// Text returns the textual part of the value.
func (v Value) Text() (string, bool) {
	if v.Data == nil {
		return "", false
	}
	return *v.Data, true
}

// Empty reports whether the value holds neither a number nor text.
func (v Value) Empty() bool { return v.Number == nil && v.Data == nil }

// Equal compares two values by content.
func (v Value) Equal(o Value) bool {
	a, aok := v.Float()
	b, bok := o.Float()
	if aok != bok || a != b {
		return false
	}
	s, sok := v.Text()
	t, tok := o.Text()
	return sok == tok && s == t
}

// ParseFloat reads a numeric value from text, the way development cost is
// persisted. Malformed text yields false.
func ParseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Set is the measures of one component keyed by metric key.
type Set map[string]Value

// Get returns the value of a metric.
func (s Set) Get(m metric.Metric) (Value, bool) {
	v, ok := s[m.Key]
	return v, ok
}

// Float returns the numeric value of a metric.
func (s Set) Float(m metric.Metric) (float64, bool) {
	v, ok := s[m.Key]
	if !ok {
		return 0, false
	}
	return v.Float()
}

// Keys returns the metric keys in the set, sorted.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of the set that shares no pointers with s.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		var c Value
		if v.Number != nil {
			n := *v.Number
			c.Number = &n
		}
		if v.Data != nil {
			d := *v.Data
			c.Data = &d
		}
		out[k] = c
	}
	return out
}
