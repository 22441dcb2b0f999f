// Package metric declares the measurable quantities computed by the live
// measure engine. Metrics are identified by a stable key; each carries its
// value type and whether it belongs to the "new code" variant.
package metric

import (
	"fmt"
	"sort"
)

// ValueType is the semantic type of a metric's value.
type ValueType string

const (
	TypeInt          ValueType = "INT"
	TypeFloat        ValueType = "FLOAT"
	TypePercent      ValueType = "PERCENT"
	TypeRating       ValueType = "RATING"
	TypeWorkDuration ValueType = "WORK_DUR" // minutes
	TypeData         ValueType = "DATA"     // textual value
)

// Metric describes one measurable quantity. Metrics are compared by Key.
type Metric struct {
	Key     string    `json:"key"`
	Name    string    `json:"name"`
	Type    ValueType `json:"type"`
	NewCode bool      `json:"new_code"`
}

func (m Metric) String() string { return m.Key }

var registry = map[string]Metric{}

func define(key, name string, typ ValueType, newCode bool) Metric {
	if _, ok := registry[key]; ok {
		panic(fmt.Sprintf("metric %s defined twice", key))
	}
	m := Metric{Key: key, Name: name, Type: typ, NewCode: newCode}
	registry[key] = m
	return m
}

// ByKey looks up a registered metric.
func ByKey(key string) (Metric, bool) {
	m, ok := registry[key]
	return m, ok
}

// All returns every registered metric sorted by key.
func All() []Metric {
	out := make([]Metric, 0, len(registry))
	for _, m := range registry {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
