// Package component defines the component tree the engine aggregates over:
// a project at the root, directories in between, files at the leaves.
// The engine only reads the structure; it never mutates it.
package component

import "fmt"

// Qualifier classifies a component.
type Qualifier string

const (
	QualifierProject   Qualifier = "PRJ"
	QualifierDirectory Qualifier = "DIR"
	QualifierFile      Qualifier = "FIL"
)

// Component is one node of the tree.
type Component struct {
	ID        string       `json:"id"`
	Key       string       `json:"key,omitempty"`  // e.g. "my-project:src/main.go"
	Name      string       `json:"name,omitempty"` // display name
	Qualifier Qualifier    `json:"qualifier"`
	Children  []*Component `json:"children,omitempty"`
}

// IsLeaf reports whether the component is a file (or has no children).
func (c *Component) IsLeaf() bool {
	return c.Qualifier == QualifierFile || len(c.Children) == 0
}

// Validate checks that component IDs are present and unique and that no
// node is reachable twice.
func (c *Component) Validate() error {
	if c == nil {
		return fmt.Errorf("component tree is nil")
	}
	seen := make(map[string]bool)
	var visit func(n *Component) error
	visit = func(n *Component) error {
		if n == nil {
			return fmt.Errorf("nil child component")
		}
		if n.ID == "" {
			return fmt.Errorf("component %q has no id", n.Key)
		}
		if seen[n.ID] {
			return fmt.Errorf("duplicate component id %s", n.ID)
		}
		seen[n.ID] = true
		if n.Qualifier == QualifierFile && len(n.Children) > 0 {
			return fmt.Errorf("file component %s has children", n.ID)
		}
		for _, child := range n.Children {
			if err := visit(child); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(c)
}

// Find returns the component with the given ID in the subtree, or nil.
func (c *Component) Find(id string) *Component {
	if c == nil {
		return nil
	}
	if c.ID == id {
		return c
	}
	for _, child := range c.Children {
		if found := child.Find(id); found != nil {
			return found
		}
	}
	return nil
}

// Count returns the number of components in the subtree.
func (c *Component) Count() int {
	if c == nil {
		return 0
	}
	n := 1
	for _, child := range c.Children {
		n += child.Count()
	}
	return n
}
