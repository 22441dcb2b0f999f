package api

import (
	"sync"

	"github.com/livemeasure/livemeasure/pkg/measure"
)

// MeasureCache is a thread-safe LRU cache of project measure snapshots.
type MeasureCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]measure.Snapshot
	order   []string // oldest first
}

// NewMeasureCache creates a cache with the given maximum number of entries.
// If maxSize <= 0, it defaults to 20.
func NewMeasureCache(maxSize int) *MeasureCache {
	if maxSize <= 0 {
		maxSize = 20
	}
	return &MeasureCache{
		maxSize: maxSize,
		entries: make(map[string]measure.Snapshot),
	}
}

// Get retrieves the measures of a project, or nil if not cached.
func (c *MeasureCache) Get(projectID string) measure.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, ok := c.entries[projectID]
	if !ok {
		return nil
	}
	c.moveToEnd(projectID)
	return snap
}

// Put caches the measures of a project, evicting the oldest if full.
func (c *MeasureCache) Put(projectID string, snap measure.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[projectID]; ok {
		c.entries[projectID] = snap
		c.moveToEnd(projectID)
		return
	}

	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[projectID] = snap
	c.order = append(c.order, projectID)
}

// Invalidate drops a project from the cache.
func (c *MeasureCache) Invalidate(projectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[projectID]; !ok {
		return
	}
	delete(c.entries, projectID)
	for i, k := range c.order {
		if k == projectID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Len returns the number of cached projects.
func (c *MeasureCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MeasureCache) moveToEnd(projectID string) {
	for i, k := range c.order {
		if k == projectID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, projectID)
			return
		}
	}
}
