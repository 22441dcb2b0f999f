package engine

import (
	"github.com/livemeasure/livemeasure/pkg/component"
	"github.com/livemeasure/livemeasure/pkg/formula"
	"github.com/livemeasure/livemeasure/pkg/measure"
	"github.com/livemeasure/livemeasure/pkg/metric"
	"github.com/livemeasure/livemeasure/pkg/rating"
)

// scratch is the formula.Context of the component being computed. One
// scratch serves a whole pass; reset points it at the next component.
type scratch struct {
	comp     *component.Component
	children []measure.Set
	values   measure.Set
	target   *formula.Formula

	prior PriorSource
	grid  rating.Grid

	childBuf []float64
}

var _ formula.Context = (*scratch)(nil)

func (s *scratch) reset(c *component.Component, done map[string]measure.Set) {
	s.comp = c
	s.target = nil
	clear(s.values)
	s.children = s.children[:0]
	for _, child := range c.Children {
		s.children = append(s.children, done[child.ID])
	}
}

func (s *scratch) Value(m metric.Metric) (float64, bool) {
	return s.values.Float(m)
}

func (s *scratch) Text(m metric.Metric) (string, bool) {
	v, ok := s.values.Get(m)
	if !ok {
		return "", false
	}
	return v.Text()
}

// ChildrenValues returns a buffer that is reused by the next call.
func (s *scratch) ChildrenValues() []float64 {
	s.childBuf = s.childBuf[:0]
	for _, set := range s.children {
		if v, ok := set.Float(s.target.Metric); ok {
			s.childBuf = append(s.childBuf, v)
		}
	}
	return s.childBuf
}

func (s *scratch) PriorValue(m metric.Metric) (float64, bool) {
	return s.prior.PriorValue(s.comp.ID, m)
}

func (s *scratch) DevelopmentCost() (measure.Value, bool) {
	return s.prior.DevelopmentCost(s.comp.ID, s.target.NewCode)
}

func (s *scratch) DebtRatingGrid() rating.Grid { return s.grid }

func (s *scratch) SetValue(v float64) {
	s.values[s.target.Metric.Key] = measure.Num(v)
}

func (s *scratch) SetText(text string) {
	s.values[s.target.Metric.Key] = measure.Text(text)
}

// SetRating stores the grade index with its letter.
func (s *scratch) SetRating(r rating.Rating) {
	v := measure.Num(float64(r.Index()))
	letter := r.String()
	v.Data = &letter
	s.values[s.target.Metric.Key] = v
}
