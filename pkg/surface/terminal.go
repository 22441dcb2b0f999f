package surface

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/livemeasure/livemeasure/pkg/component"
	"github.com/livemeasure/livemeasure/pkg/measure"
	"github.com/livemeasure/livemeasure/pkg/metric"
	"github.com/livemeasure/livemeasure/pkg/rating"
)

// TerminalRenderer renders a Report as colored terminal output.
type TerminalRenderer struct {
	// MaxComponents caps the per-component table. Zero shows every component.
	MaxComponents int
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

func gradeColor(g rating.Rating) string {
	if noColor() {
		return ""
	}
	switch g {
	case rating.A, rating.B:
		return colorGreen
	case rating.C:
		return colorYellow
	case rating.D, rating.E:
		return colorRed
	default:
		return ""
	}
}

func noColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func bold(s string) string {
	if noColor() {
		return s
	}
	return colorBold + s + colorReset
}

func dim(s string) string {
	if noColor() {
		return s
	}
	return colorDim + s + colorReset
}

func colored(s, color string) string {
	if noColor() || color == "" {
		return s
	}
	return color + s + colorReset
}

func coloredGrade(set measure.Set, m metric.Metric) string {
	g, ok := grade(set, m)
	if !ok {
		return dim("-")
	}
	return colored(g.String(), gradeColor(g))
}

func (r *TerminalRenderer) Render(w io.Writer, report *Report) error {
	root := report.root()
	if root == nil {
		return fmt.Errorf("report has no measures for the root component")
	}

	// Header
	fmt.Fprintf(w, "%s\n", bold("livemeasure: "+displayName(report.Root)))
	fmt.Fprintf(w, "%s\n\n", dim(fmt.Sprintf("pass %s, %d components", report.Result.ID, len(report.Result.Order))))

	// Ratings
	fmt.Fprintln(w, "Ratings:")
	fmt.Fprintf(w, "  Reliability %s   Security %s   Maintainability %s   Security review %s\n\n",
		coloredGrade(root, metric.ReliabilityRating),
		coloredGrade(root, metric.SecurityRating),
		coloredGrade(root, metric.MaintainabilityRating),
		coloredGrade(root, metric.SecurityReviewRating))

	// Totals
	fmt.Fprintln(w, "Issues:")
	fmt.Fprintf(w, "  %s bugs, %s vulnerabilities, %s code smells, %s hotspots to review\n",
		count(root, metric.Bugs), count(root, metric.Vulnerabilities),
		count(root, metric.CodeSmells), count(root, metric.SecurityHotspots))
	fmt.Fprintf(w, "  Technical debt %s (ratio %s), %s to reach A\n",
		formatEffort(root, metric.TechnicalDebt), percent(root, metric.DebtRatio),
		formatEffort(root, metric.EffortToReachMaintainabilityRatingA))
	if _, ok := root.Get(metric.SecurityHotspotsReviewed); ok {
		fmt.Fprintf(w, "  Hotspots reviewed %s\n", percent(root, metric.SecurityHotspotsReviewed))
	}
	fmt.Fprintln(w)

	if hasNewCode(root) {
		fmt.Fprintln(w, "New code:")
		fmt.Fprintf(w, "  Reliability %s   Security %s   Maintainability %s   Security review %s\n",
			coloredGrade(root, metric.NewReliabilityRating),
			coloredGrade(root, metric.NewSecurityRating),
			coloredGrade(root, metric.NewMaintainabilityRating),
			coloredGrade(root, metric.NewSecurityReviewRating))
		fmt.Fprintf(w, "  %s new issues, %s new debt\n\n",
			count(root, metric.NewViolations), formatEffort(root, metric.NewTechnicalDebt))
	}

	r.renderComponents(w, report)
	return nil
}

// renderComponents lists the files that have issues, in traversal order.
func (r *TerminalRenderer) renderComponents(w io.Writer, report *Report) {
	var rows []*component.Component
	for _, id := range report.Result.Order {
		c := report.Root.Find(id)
		if c == nil || !c.IsLeaf() {
			continue
		}
		if v, _ := report.Result.Value(id, metric.Violations); v == 0 {
			continue
		}
		rows = append(rows, c)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "No issues.")
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintln(w, "Files:")
	shown := rows
	if r.MaxComponents > 0 && len(rows) > r.MaxComponents {
		shown = rows[:r.MaxComponents]
	}
	width := 0
	for _, c := range shown {
		width = max(width, len(displayName(c)))
	}
	for _, c := range shown {
		set := report.Result.Component(c.ID)
		name := displayName(c)
		fmt.Fprintf(w, "  %s%s  %s %s %s  %s issues, %s debt\n",
			name, strings.Repeat(" ", width-len(name)),
			coloredGrade(set, metric.ReliabilityRating),
			coloredGrade(set, metric.SecurityRating),
			coloredGrade(set, metric.MaintainabilityRating),
			count(set, metric.Violations), formatEffort(set, metric.TechnicalDebt))
	}
	if len(shown) < len(rows) {
		fmt.Fprintf(w, "  %s\n", dim(fmt.Sprintf("... and %d more", len(rows)-len(shown))))
	}
	fmt.Fprintln(w)
}

func displayName(c *component.Component) string {
	switch {
	case c.Key != "":
		return c.Key
	case c.Name != "":
		return c.Name
	default:
		return c.ID
	}
}
