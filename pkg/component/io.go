package component

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SaveTree writes a component tree to disk as JSON.
func SaveTree(path string, root *Component) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for tree: %w", err)
	}

	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling tree: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing tree: %w", err)
	}

	return nil
}

// LoadTree reads and validates a component tree from disk.
func LoadTree(path string) (*Component, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tree: %w", err)
	}

	var root Component
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("unmarshaling tree: %w", err)
	}
	if err := root.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tree: %w", err)
	}

	return &root, nil
}
