package formula

import (
	"errors"
	"fmt"
	"strings"

	"github.com/livemeasure/livemeasure/pkg/metric"
)

// Configuration errors returned by Schedule.
var (
	ErrInvalidFormula    = errors.New("invalid formula")
	ErrDuplicateMetric   = errors.New("metric computed by more than one formula")
	ErrSelfDependency    = errors.New("formula depends on its own metric")
	ErrUnknownDependency = errors.New("dependency has no producing formula")
	ErrCycle             = errors.New("dependency cycle between formulas")
)

// Plan is the evaluation order of a catalog, one list per variant. Every
// formula comes after the formulas producing its dependencies.
type Plan struct {
	overall []*Formula
	newCode []*Formula
}

// Formulas returns the ordered formulas of a variant.
func (p *Plan) Formulas(newCode bool) []*Formula {
	if newCode {
		return p.newCode
	}
	return p.overall
}

// Metrics returns the target metrics of a variant in evaluation order.
func (p *Plan) Metrics(newCode bool) []metric.Metric {
	fs := p.Formulas(newCode)
	out := make([]metric.Metric, len(fs))
	for i, f := range fs {
		out[i] = f.Metric
	}
	return out
}

// Len returns the number of formulas in both variants.
func (p *Plan) Len() int { return len(p.overall) + len(p.newCode) }

// Schedule orders the catalog. Formulas without a mutual dependency keep
// their declaration order, so the plan is the same on every run.
func Schedule(formulas []*Formula) (*Plan, error) {
	seen := make(map[string]bool, len(formulas))
	var overall, newCode []*Formula
	for _, f := range formulas {
		if err := validate(f); err != nil {
			return nil, err
		}
		if seen[f.Metric.Key] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMetric, f.Metric.Key)
		}
		seen[f.Metric.Key] = true
		if f.NewCode {
			newCode = append(newCode, f)
		} else {
			overall = append(overall, f)
		}
	}

	var err error
	plan := &Plan{}
	if plan.overall, err = order(overall); err != nil {
		return nil, fmt.Errorf("overall formulas: %w", err)
	}
	if plan.newCode, err = order(newCode); err != nil {
		return nil, fmt.Errorf("new code formulas: %w", err)
	}
	return plan, nil
}

// MustSchedule is Schedule for static catalogs; it panics on a
// configuration error.
func MustSchedule(formulas []*Formula) *Plan {
	p, err := Schedule(formulas)
	if err != nil {
		panic(fmt.Sprintf("formula catalog: %v", err))
	}
	return p
}

func validate(f *Formula) error {
	if f == nil {
		return fmt.Errorf("%w: nil formula", ErrInvalidFormula)
	}
	if f.Metric.Key == "" {
		return fmt.Errorf("%w: formula without metric", ErrInvalidFormula)
	}
	if f.Leaf == nil || f.Aggregate == nil {
		return fmt.Errorf("%w: %s lacks a leaf or aggregation computation", ErrInvalidFormula, f.Metric.Key)
	}
	if f.NewCode != f.Metric.NewCode {
		return fmt.Errorf("%w: %s new code flag does not match its metric", ErrInvalidFormula, f.Metric.Key)
	}
	for _, dep := range f.DependsOn {
		if dep.Key == f.Metric.Key {
			return fmt.Errorf("%w: %s", ErrSelfDependency, f.Metric.Key)
		}
	}
	return nil
}

// order is a topological sort that always emits the ready formula declared
// first.
func order(formulas []*Formula) ([]*Formula, error) {
	producer := make(map[string]int, len(formulas))
	for i, f := range formulas {
		producer[f.Metric.Key] = i
	}

	deps := make([][]int, len(formulas))
	for i, f := range formulas {
		for _, dep := range f.DependsOn {
			j, ok := producer[dep.Key]
			if !ok {
				return nil, fmt.Errorf("%w: %s depends on %s", ErrUnknownDependency, f.Metric.Key, dep.Key)
			}
			deps[i] = append(deps[i], j)
		}
	}

	done := make([]bool, len(formulas))
	out := make([]*Formula, 0, len(formulas))
	for len(out) < len(formulas) {
		next := -1
		for i := range formulas {
			if done[i] {
				continue
			}
			ready := true
			for _, j := range deps[i] {
				if !done[j] {
					ready = false
					break
				}
			}
			if ready {
				next = i
				break
			}
		}
		if next < 0 {
			var stuck []string
			for i, f := range formulas {
				if !done[i] {
					stuck = append(stuck, f.Metric.Key)
				}
			}
			return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(stuck, ", "))
		}
		done[next] = true
		out = append(out, formulas[next])
	}
	return out, nil
}
