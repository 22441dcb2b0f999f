package surface

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/livemeasure/livemeasure/pkg/measure"
	"github.com/livemeasure/livemeasure/pkg/metric"
	"github.com/livemeasure/livemeasure/pkg/rating"
)

// CheckRunRenderer produces GitHub Check Run data from a Report.
type CheckRunRenderer struct{}

func (r *CheckRunRenderer) Render(w io.Writer, report *Report) error {
	data, err := r.BuildCheckRunData(report)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// BuildCheckRunData creates the CheckRunData struct from a Report. The
// conclusion follows the worst new code rating when new code was computed,
// the worst overall rating otherwise. The security review rating only counts
// once there are hotspots to review.
func (r *CheckRunRenderer) BuildCheckRunData(report *Report) (CheckRunData, error) {
	root := report.root()
	if root == nil {
		return CheckRunData{}, fmt.Errorf("report has no measures for the root component")
	}

	worst, ok := worstGrade(root, gatedRatings(root))
	if !ok {
		worst = rating.Best
	}

	return CheckRunData{
		Title:      fmt.Sprintf("livemeasure: %s", ratingLine(root, headlineRatings)),
		Summary:    buildMarkdownSummary(root),
		Conclusion: gradeToConclusion(worst),
	}, nil
}

func gatedRatings(root measure.Set) []metric.Metric {
	ratings, reviewed := headlineRatings, metric.SecurityHotspotsReviewed
	if hasNewCode(root) {
		ratings, reviewed = newCodeRatings, metric.NewSecurityHotspotsReviewed
	}
	if _, ok := root.Get(reviewed); ok {
		return ratings
	}
	return ratings[:len(ratings)-1]
}

func gradeToConclusion(g rating.Rating) string {
	switch g {
	case rating.A, rating.B:
		return "success"
	case rating.C:
		return "neutral"
	default:
		return "failure"
	}
}

func ratingLine(set measure.Set, ms []metric.Metric) string {
	parts := make([]string, 0, len(ms))
	for _, m := range ms {
		parts = append(parts, fmt.Sprintf("%s %s", m.Name, letter(set, m)))
	}
	return strings.Join(parts, ", ")
}

func buildMarkdownSummary(root measure.Set) string {
	var sb strings.Builder

	sb.WriteString("## Ratings\n\n")
	sb.WriteString("| Rating | Overall | New code |\n|--------|---------|----------|\n")
	for i, m := range headlineRatings {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", m.Name, letter(root, m), letter(root, newCodeRatings[i])))
	}
	sb.WriteString("\n")

	sb.WriteString("## Issues\n\n")
	sb.WriteString("| Metric | Overall | New code |\n|--------|---------|----------|\n")
	rows := []struct {
		label        string
		overall, new metric.Metric
	}{
		{"Bugs", metric.Bugs, metric.NewBugs},
		{"Vulnerabilities", metric.Vulnerabilities, metric.NewVulnerabilities},
		{"Code smells", metric.CodeSmells, metric.NewCodeSmells},
		{"Security hotspots", metric.SecurityHotspots, metric.NewSecurityHotspots},
	}
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", row.label, count(root, row.overall), count(root, row.new)))
	}
	sb.WriteString(fmt.Sprintf("| Technical debt | %s | %s |\n",
		formatEffort(root, metric.TechnicalDebt), formatEffort(root, metric.NewTechnicalDebt)))
	sb.WriteString(fmt.Sprintf("| Debt ratio | %s | %s |\n",
		percent(root, metric.DebtRatio), percent(root, metric.NewDebtRatio)))

	return sb.String()
}
