package issues

import "github.com/livemeasure/livemeasure/pkg/rating"

// Statistics exposes the issue aggregates of one component. Every query takes
// an onlyNew flag restricting it to issues on new code.
type Statistics interface {
	CountUnresolvedByType(t RuleType, onlyNew bool) int64
	CountUnresolvedBySeverity(s rating.Severity, onlyNew bool) int64
	CountUnresolved(onlyNew bool) int64
	CountByResolution(resolution string, onlyNew bool) int64
	CountByStatus(status string, onlyNew bool) int64
	SumEffortOfUnresolved(t RuleType, onlyNew bool) float64
	HighestSeverityOfUnresolved(t RuleType, onlyNew bool) (rating.Severity, bool)
	CountHotspotsByStatus(status string, onlyNew bool) int64
}

// Empty is the statistics of a component without issues. It is substituted
// when a provider cannot supply statistics.
var Empty Statistics = &Counter{}

type bucket struct {
	unresolvedByType     map[RuleType]int64
	unresolvedBySeverity map[rating.Severity]int64
	unresolved           int64
	byResolution         map[string]int64
	byStatus             map[string]int64
	effortByType         map[RuleType]float64
	highestByType        map[RuleType]rating.Severity
	hotspotsByStatus     map[string]int64
}

func newBucket() *bucket {
	return &bucket{
		unresolvedByType:     make(map[RuleType]int64),
		unresolvedBySeverity: make(map[rating.Severity]int64),
		byResolution:         make(map[string]int64),
		byStatus:             make(map[string]int64),
		effortByType:         make(map[RuleType]float64),
		highestByType:        make(map[RuleType]rating.Severity),
		hotspotsByStatus:     make(map[string]int64),
	}
}

func (b *bucket) add(i Issue) {
	if i.IsHotspot() {
		b.hotspotsByStatus[i.Status]++
		if i.Unresolved() {
			b.unresolvedByType[i.Type]++
		}
		return
	}
	if !i.Unresolved() {
		b.byResolution[i.Resolution]++
		return
	}
	b.unresolved++
	b.unresolvedByType[i.Type]++
	b.unresolvedBySeverity[i.Severity]++
	b.byStatus[i.Status]++
	b.effortByType[i.Type] += i.Effort
	if cur, ok := b.highestByType[i.Type]; !ok || i.Severity.Rank() > cur.Rank() {
		b.highestByType[i.Type] = i.Severity
	}
}

// Counter aggregates the issues of a single component. The zero value has
// no issues.
type Counter struct {
	all     *bucket
	onlyNew *bucket
}

// NewCounter builds a counter over the given issues.
func NewCounter(issues []Issue) *Counter {
	c := &Counter{}
	for _, i := range issues {
		c.Add(i)
	}
	return c
}

// Add accounts for one more issue.
func (c *Counter) Add(i Issue) {
	if c.all == nil {
		c.all, c.onlyNew = newBucket(), newBucket()
	}
	c.all.add(i)
	if i.NewCode {
		c.onlyNew.add(i)
	}
}

func (c *Counter) pick(onlyNew bool) *bucket {
	if c.all == nil {
		return nil
	}
	if onlyNew {
		return c.onlyNew
	}
	return c.all
}

// CountUnresolvedByType counts unresolved issues of a rule type. For
// hotspots this is the number of hotspots still to review.
func (c *Counter) CountUnresolvedByType(t RuleType, onlyNew bool) int64 {
	if b := c.pick(onlyNew); b != nil {
		return b.unresolvedByType[t]
	}
	return 0
}

// CountUnresolvedBySeverity counts unresolved issues, hotspots excluded.
func (c *Counter) CountUnresolvedBySeverity(s rating.Severity, onlyNew bool) int64 {
	if b := c.pick(onlyNew); b != nil {
		return b.unresolvedBySeverity[s]
	}
	return 0
}

// CountUnresolved counts unresolved issues, hotspots excluded.
func (c *Counter) CountUnresolved(onlyNew bool) int64 {
	if b := c.pick(onlyNew); b != nil {
		return b.unresolved
	}
	return 0
}

// CountByResolution counts resolved issues with the given resolution.
func (c *Counter) CountByResolution(resolution string, onlyNew bool) int64 {
	if b := c.pick(onlyNew); b != nil {
		return b.byResolution[resolution]
	}
	return 0
}

// CountByStatus counts unresolved issues with the given status.
func (c *Counter) CountByStatus(status string, onlyNew bool) int64 {
	if b := c.pick(onlyNew); b != nil {
		return b.byStatus[status]
	}
	return 0
}

// SumEffortOfUnresolved sums the remediation effort of unresolved issues.
func (c *Counter) SumEffortOfUnresolved(t RuleType, onlyNew bool) float64 {
	if b := c.pick(onlyNew); b != nil {
		return b.effortByType[t]
	}
	return 0
}

// HighestSeverityOfUnresolved returns the highest severity among the
// unresolved issues of a rule type, if there is any.
func (c *Counter) HighestSeverityOfUnresolved(t RuleType, onlyNew bool) (rating.Severity, bool) {
	if b := c.pick(onlyNew); b != nil {
		s, ok := b.highestByType[t]
		return s, ok
	}
	return "", false
}

// CountHotspotsByStatus counts hotspots in a review status, resolved or not.
func (c *Counter) CountHotspotsByStatus(status string, onlyNew bool) int64 {
	if b := c.pick(onlyNew); b != nil {
		return b.hotspotsByStatus[status]
	}
	return 0
}
