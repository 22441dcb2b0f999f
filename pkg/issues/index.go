package issues

import (
	"encoding/json"
	"fmt"
	"os"
)

// Index holds one Counter per component. It is the in-memory statistics
// provider used by the CLI and the recompute service.
type Index struct {
	counters map[string]*Counter
}

// NewIndex groups issues by component.
func NewIndex(issues []Issue) *Index {
	idx := &Index{counters: make(map[string]*Counter)}
	for _, i := range issues {
		c, ok := idx.counters[i.ComponentID]
		if !ok {
			c = &Counter{}
			idx.counters[i.ComponentID] = c
		}
		c.Add(i)
	}
	return idx
}

// Statistics returns the statistics of a component. A component without
// issues gets Empty. newCode is accepted for the provider contract; every
// Counter answers both variants.
func (idx *Index) Statistics(componentID string, newCode bool) (Statistics, error) {
	if c, ok := idx.counters[componentID]; ok {
		return c, nil
	}
	return Empty, nil
}

// Components returns the number of components with at least one issue.
func (idx *Index) Components() int { return len(idx.counters) }

// LoadIssues reads a JSON array of issues from disk.
func LoadIssues(path string) ([]Issue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading issues: %w", err)
	}

	var list []Issue
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("unmarshaling issues: %w", err)
	}

	return list, nil
}
