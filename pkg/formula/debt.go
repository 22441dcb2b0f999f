package formula

import (
	"math"
	"strconv"

	"github.com/livemeasure/livemeasure/pkg/measure"
	"github.com/livemeasure/livemeasure/pkg/metric"
	"github.com/livemeasure/livemeasure/pkg/rating"
)

// overallDevelopmentCost reads the textual development cost. Missing or
// malformed text yields false.
func overallDevelopmentCost(ctx Context) (float64, bool) {
	text, ok := ctx.Text(metric.DevelopmentCost)
	if !ok {
		return 0, false
	}
	return measure.ParseFloat(text)
}

func debtDensity(ctx Context) float64 {
	debt, _ := ctx.Value(metric.TechnicalDebt)
	debt = math.Max(debt, 0)
	if cost, ok := overallDevelopmentCost(ctx); ok && cost > 0 {
		return debt / cost
	}
	return 0
}

func newDebtDensity(ctx Context) float64 {
	debt, _ := ctx.Value(metric.NewTechnicalDebt)
	debt = math.Max(debt, 0)
	if cost, ok := ctx.Value(metric.NewDevelopmentCost); ok && cost > 0 {
		return debt / cost
	}
	return 0
}

func effortToReachMaintainabilityRatingA(ctx Context) float64 {
	cost, _ := overallDevelopmentCost(ctx)
	effort, _ := ctx.Value(metric.TechnicalDebt)
	upperGradeCost := ctx.DebtRatingGrid().GradeLowerBound(rating.B) * cost
	if upperGradeCost < effort {
		return effort - upperGradeCost
	}
	return 0
}

// copyOverallDevelopmentCost stores the development cost as text, whatever
// form the provider supplied it in.
func copyOverallDevelopmentCost(ctx Context) {
	v, ok := ctx.DevelopmentCost()
	if !ok {
		return
	}
	if text, ok := v.Text(); ok {
		ctx.SetText(text)
		return
	}
	if n, ok := v.Float(); ok {
		ctx.SetText(strconv.FormatFloat(n, 'f', -1, 64))
	}
}

// copyNewDevelopmentCost stores the new code development cost as a number.
func copyNewDevelopmentCost(ctx Context) {
	v, ok := ctx.DevelopmentCost()
	if !ok {
		return
	}
	if n, ok := v.Float(); ok {
		ctx.SetValue(n)
		return
	}
	if text, ok := v.Text(); ok {
		if n, ok := measure.ParseFloat(text); ok {
			ctx.SetValue(n)
		}
	}
}
