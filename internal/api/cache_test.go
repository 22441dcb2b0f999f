package api

import (
	"testing"

	"github.com/livemeasure/livemeasure/pkg/measure"
	"github.com/livemeasure/livemeasure/pkg/metric"
)

func snapshotWithBugs(n float64) measure.Snapshot {
	snap := measure.Snapshot{}
	snap.Put("prj", metric.Bugs, measure.Num(n))
	return snap
}

func TestMeasureCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewMeasureCache(2)
	c.Put("p1", snapshotWithBugs(1))
	c.Put("p2", snapshotWithBugs(2))

	// Touch p1 so p2 becomes the oldest.
	if c.Get("p1") == nil {
		t.Fatal("expected p1 to be cached")
	}
	c.Put("p3", snapshotWithBugs(3))

	if c.Get("p2") != nil {
		t.Error("expected p2 to be evicted")
	}
	if c.Get("p1") == nil || c.Get("p3") == nil {
		t.Error("expected p1 and p3 to be cached")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestMeasureCacheReplaceAndInvalidate(t *testing.T) {
	c := NewMeasureCache(0)
	c.Put("p1", snapshotWithBugs(1))
	c.Put("p1", snapshotWithBugs(5))

	got, _ := c.Get("p1").PriorValue("prj", metric.Bugs)
	if got != 5 {
		t.Errorf("bugs = %v, want 5", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}

	c.Invalidate("p1")
	c.Invalidate("p1")
	if c.Get("p1") != nil {
		t.Error("expected p1 to be invalidated")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}
