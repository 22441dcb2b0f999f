package formula

import (
	"github.com/livemeasure/livemeasure/pkg/issues"
	"github.com/livemeasure/livemeasure/pkg/metric"
	"github.com/livemeasure/livemeasure/pkg/rating"
)

type countFunc func(s issues.Statistics, onlyNew bool) int64

func issueCount(m metric.Metric, count countFunc) *Formula {
	onlyNew := m.NewCode
	return &Formula{
		Metric:    m,
		NewCode:   onlyNew,
		Aggregate: AddChildren,
		Leaf: func(ctx Context, s issues.Statistics) {
			ctx.SetValue(float64(count(s, onlyNew)))
		},
	}
}

func byType(t issues.RuleType) countFunc {
	return func(s issues.Statistics, onlyNew bool) int64 { return s.CountUnresolvedByType(t, onlyNew) }
}

func bySeverity(sev rating.Severity) countFunc {
	return func(s issues.Statistics, onlyNew bool) int64 { return s.CountUnresolvedBySeverity(sev, onlyNew) }
}

func byResolution(resolution string) countFunc {
	return func(s issues.Statistics, onlyNew bool) int64 { return s.CountByResolution(resolution, onlyNew) }
}

func byStatus(status string) countFunc {
	return func(s issues.Statistics, onlyNew bool) int64 { return s.CountByStatus(status, onlyNew) }
}

func unresolved(s issues.Statistics, onlyNew bool) int64 { return s.CountUnresolved(onlyNew) }

func effortSum(m metric.Metric, t issues.RuleType) *Formula {
	onlyNew := m.NewCode
	return &Formula{
		Metric:    m,
		NewCode:   onlyNew,
		Aggregate: AddChildren,
		Leaf: func(ctx Context, s issues.Statistics) {
			ctx.SetValue(s.SumEffortOfUnresolved(t, onlyNew))
		},
	}
}

// severityRating grades the highest severity of unresolved issues; no issue
// counts as INFO.
func severityRating(m metric.Metric, t issues.RuleType) *Formula {
	onlyNew := m.NewCode
	return &Formula{
		Metric:    m,
		NewCode:   onlyNew,
		Aggregate: MaxRatingChildren,
		Leaf: func(ctx Context, s issues.Statistics) {
			sev, ok := s.HighestSeverityOfUnresolved(t, onlyNew)
			if !ok {
				sev = rating.SeverityInfo
			}
			ctx.SetRating(rating.ForSeverity(sev))
		},
	}
}

func hotspotStatus(m metric.Metric, status string) *Formula {
	onlyNew := m.NewCode
	return &Formula{
		Metric:    m,
		NewCode:   onlyNew,
		Aggregate: AccumulateChildren,
		Leaf: func(ctx Context, s issues.Statistics) {
			ctx.SetValue(float64(s.CountHotspotsByStatus(status, onlyNew)))
		},
	}
}

func hotspotPercentFromStats(s issues.Statistics, onlyNew bool) *float64 {
	return rating.ReviewPercent(
		s.CountHotspotsByStatus(issues.StatusToReview, onlyNew),
		s.CountHotspotsByStatus(issues.StatusReviewed, onlyNew))
}

// hotspotsReviewed is computed from the issues on a leaf and from the two
// status counters once aggregated. It stays unset when there is no hotspot.
func hotspotsReviewed(m, toReview, reviewed metric.Metric) *Formula {
	onlyNew := m.NewCode
	return &Formula{
		Metric:    m,
		NewCode:   onlyNew,
		DependsOn: []metric.Metric{toReview, reviewed},
		Leaf: func(ctx Context, s issues.Statistics) {
			if p := hotspotPercentFromStats(s, onlyNew); p != nil {
				ctx.SetValue(*p)
			}
		},
		Aggregate: func(ctx Context, _ *Formula) {
			tr, _ := ctx.Value(toReview)
			rv, _ := ctx.Value(reviewed)
			if p := rating.ReviewPercent(int64(tr), int64(rv)); p != nil {
				ctx.SetValue(*p)
			}
		},
	}
}

// reviewRating maps an undefined percentage (no hotspot at all) to the
// worst grade. SonarQube's server grades the same case A, and leaving the
// rating unchanged would be a third reading; E is kept so a project with
// nothing reviewed never looks reviewed. The check run gate skips this
// rating when the percentage is undefined, so an empty project still passes.
func reviewRating(percent *float64) rating.Rating {
	if r, ok := rating.ForReviewPercent(percent); ok {
		return r
	}
	return rating.Worst
}

func securityReviewRating(m, percent metric.Metric) *Formula {
	onlyNew := m.NewCode
	return &Formula{
		Metric:    m,
		NewCode:   onlyNew,
		DependsOn: []metric.Metric{percent},
		Leaf: func(ctx Context, s issues.Statistics) {
			ctx.SetRating(reviewRating(hotspotPercentFromStats(s, onlyNew)))
		},
		Aggregate: func(ctx Context, _ *Formula) {
			var p *float64
			if v, ok := ctx.Value(percent); ok {
				p = &v
			}
			ctx.SetRating(reviewRating(p))
		},
	}
}

// derived computes the metric from other metrics of the same component, the
// same way on leaves and once aggregated.
func derived(m metric.Metric, deps []metric.Metric, compute func(ctx Context)) *Formula {
	return &Formula{
		Metric:    m,
		NewCode:   m.NewCode,
		DependsOn: deps,
		Leaf:      func(ctx Context, _ issues.Statistics) { compute(ctx) },
		Aggregate: func(ctx Context, _ *Formula) { compute(ctx) },
	}
}

var (
	debtInputs    = []metric.Metric{metric.TechnicalDebt, metric.DevelopmentCost}
	newDebtInputs = []metric.Metric{metric.NewTechnicalDebt, metric.NewDevelopmentCost}
)

var catalog = []*Formula{
	issueCount(metric.CodeSmells, byType(issues.TypeCodeSmell)),
	issueCount(metric.Bugs, byType(issues.TypeBug)),
	issueCount(metric.Vulnerabilities, byType(issues.TypeVulnerability)),
	issueCount(metric.SecurityHotspots, byType(issues.TypeSecurityHotspot)),
	issueCount(metric.Violations, unresolved),

	issueCount(metric.BlockerViolations, bySeverity(rating.SeverityBlocker)),
	issueCount(metric.CriticalViolations, bySeverity(rating.SeverityCritical)),
	issueCount(metric.MajorViolations, bySeverity(rating.SeverityMajor)),
	issueCount(metric.MinorViolations, bySeverity(rating.SeverityMinor)),
	issueCount(metric.InfoViolations, bySeverity(rating.SeverityInfo)),

	issueCount(metric.FalsePositiveIssues, byResolution(issues.ResolutionFalsePositive)),
	issueCount(metric.AcceptedIssues, byResolution(issues.ResolutionWontFix)),
	issueCount(metric.OpenIssues, byStatus(issues.StatusOpen)),
	issueCount(metric.ReopenedIssues, byStatus(issues.StatusReopened)),
	issueCount(metric.ConfirmedIssues, byStatus(issues.StatusConfirmed)),

	effortSum(metric.TechnicalDebt, issues.TypeCodeSmell),
	effortSum(metric.ReliabilityRemediationEffort, issues.TypeBug),
	effortSum(metric.SecurityRemediationEffort, issues.TypeVulnerability),

	derived(metric.DevelopmentCost, nil, copyOverallDevelopmentCost),
	derived(metric.DebtRatio, debtInputs, func(ctx Context) {
		ctx.SetValue(100.0 * debtDensity(ctx))
	}),
	derived(metric.MaintainabilityRating, debtInputs, func(ctx Context) {
		ctx.SetRating(ctx.DebtRatingGrid().ForDensity(debtDensity(ctx)))
	}),
	derived(metric.EffortToReachMaintainabilityRatingA, debtInputs, func(ctx Context) {
		ctx.SetValue(effortToReachMaintainabilityRatingA(ctx))
	}),

	severityRating(metric.ReliabilityRating, issues.TypeBug),
	severityRating(metric.SecurityRating, issues.TypeVulnerability),

	hotspotStatus(metric.SecurityHotspotsReviewedStatus, issues.StatusReviewed),
	hotspotStatus(metric.SecurityHotspotsToReviewStatus, issues.StatusToReview),
	hotspotsReviewed(metric.SecurityHotspotsReviewed,
		metric.SecurityHotspotsToReviewStatus, metric.SecurityHotspotsReviewedStatus),
	securityReviewRating(metric.SecurityReviewRating, metric.SecurityHotspotsReviewed),

	issueCount(metric.NewCodeSmells, byType(issues.TypeCodeSmell)),
	issueCount(metric.NewBugs, byType(issues.TypeBug)),
	issueCount(metric.NewVulnerabilities, byType(issues.TypeVulnerability)),
	issueCount(metric.NewSecurityHotspots, byType(issues.TypeSecurityHotspot)),
	issueCount(metric.NewViolations, unresolved),

	issueCount(metric.NewBlockerViolations, bySeverity(rating.SeverityBlocker)),
	issueCount(metric.NewCriticalViolations, bySeverity(rating.SeverityCritical)),
	issueCount(metric.NewMajorViolations, bySeverity(rating.SeverityMajor)),
	issueCount(metric.NewMinorViolations, bySeverity(rating.SeverityMinor)),
	issueCount(metric.NewInfoViolations, bySeverity(rating.SeverityInfo)),

	effortSum(metric.NewTechnicalDebt, issues.TypeCodeSmell),
	effortSum(metric.NewReliabilityRemediationEffort, issues.TypeBug),
	effortSum(metric.NewSecurityRemediationEffort, issues.TypeVulnerability),

	severityRating(metric.NewReliabilityRating, issues.TypeBug),
	severityRating(metric.NewSecurityRating, issues.TypeVulnerability),

	hotspotStatus(metric.NewSecurityHotspotsReviewedStatus, issues.StatusReviewed),
	hotspotStatus(metric.NewSecurityHotspotsToReviewStatus, issues.StatusToReview),
	hotspotsReviewed(metric.NewSecurityHotspotsReviewed,
		metric.NewSecurityHotspotsToReviewStatus, metric.NewSecurityHotspotsReviewedStatus),
	securityReviewRating(metric.NewSecurityReviewRating, metric.NewSecurityHotspotsReviewed),

	// Ratio formulas are declared before their inputs; the scheduler orders them.
	derived(metric.NewDebtRatio, newDebtInputs, func(ctx Context) {
		ctx.SetValue(100.0 * newDebtDensity(ctx))
	}),
	derived(metric.NewMaintainabilityRating, newDebtInputs, func(ctx Context) {
		ctx.SetRating(ctx.DebtRatingGrid().ForDensity(newDebtDensity(ctx)))
	}),
	derived(metric.NewDevelopmentCost, nil, copyNewDevelopmentCost),
}

// Catalog returns the formulas in declaration order. The formulas are shared
// and must not be modified.
func Catalog() []*Formula {
	out := make([]*Formula, len(catalog))
	copy(out, catalog)
	return out
}

var defaultPlan = MustSchedule(catalog)

// DefaultPlan returns the schedule of the built-in catalog.
func DefaultPlan() *Plan { return defaultPlan }
