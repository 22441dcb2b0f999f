package rating

import "fmt"

// DefaultGrid holds the default maintainability thresholds: a debt density up
// to 5% is A, up to 10% is B, up to 20% is C, up to 50% is D, anything above is E.
var DefaultGrid = Grid{0.05, 0.1, 0.2, 0.5}

// Grid is the debt rating grid: ascending density upper bounds of grades A..D.
type Grid [4]float64

// NewGrid validates and builds a grid from a list of four ascending bounds.
func NewGrid(bounds []float64) (Grid, error) {
	var g Grid
	if len(bounds) != len(g) {
		return g, fmt.Errorf("rating grid must have %d values, got %d", len(g), len(bounds))
	}
	for i, b := range bounds {
		if b < 0 {
			return g, fmt.Errorf("rating grid value %v must not be negative", b)
		}
		if i > 0 && b <= bounds[i-1] {
			return g, fmt.Errorf("rating grid values must be strictly ascending: %v", bounds)
		}
		g[i] = b
	}
	return g, nil
}

// ForDensity returns the grade of a debt density (debt / development cost).
func (g Grid) ForDensity(density float64) Rating {
	for i, bound := range g {
		if density <= bound {
			return Rating(i + 1)
		}
	}
	return E
}

// GradeLowerBound returns the density above which a component leaves the
// previous grade: 0 for A, the upper bound of A for B, and so on.
func (g Grid) GradeLowerBound(r Rating) float64 {
	if r <= A {
		return 0
	}
	if r > E {
		r = E
	}
	return g[r-2]
}
