// Package surface defines output rendering interfaces for computed measures.
// Implementations handle different output targets: terminal, GitHub Check Run, JSON.
package surface

import (
	"fmt"
	"io"

	"github.com/livemeasure/livemeasure/pkg/component"
	"github.com/livemeasure/livemeasure/pkg/engine"
	"github.com/livemeasure/livemeasure/pkg/measure"
	"github.com/livemeasure/livemeasure/pkg/metric"
	"github.com/livemeasure/livemeasure/pkg/rating"
)

// Renderer produces formatted output from a Report.
type Renderer interface {
	// Render writes the formatted report to the writer.
	Render(w io.Writer, report *Report) error
}

// Report pairs a pass result with the tree it was computed over.
type Report struct {
	Root   *component.Component `json:"root"`
	Result *engine.Result       `json:"result"`
}

// CheckRunData holds the data needed to create a GitHub Check Run.
type CheckRunData struct {
	Title      string `json:"title"`
	Summary    string `json:"summary"`    // Markdown body
	Conclusion string `json:"conclusion"` // success, neutral, failure
}

// ForOutput returns the renderer for an --output flag value.
func ForOutput(format string) (Renderer, error) {
	switch format {
	case "text", "":
		return &TerminalRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "checkrun":
		return &CheckRunRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, json or checkrun)", format)
	}
}

// headlineRatings are the grades shown for the project.
var headlineRatings = []metric.Metric{
	metric.ReliabilityRating,
	metric.SecurityRating,
	metric.MaintainabilityRating,
	metric.SecurityReviewRating,
}

var newCodeRatings = []metric.Metric{
	metric.NewReliabilityRating,
	metric.NewSecurityRating,
	metric.NewMaintainabilityRating,
	metric.NewSecurityReviewRating,
}

func (r *Report) root() measure.Set {
	if r.Root == nil || r.Result == nil {
		return nil
	}
	return r.Result.Component(r.Root.ID)
}

// grade reads a rating measure. Missing ratings report false.
func grade(set measure.Set, m metric.Metric) (rating.Rating, bool) {
	v, ok := set.Float(m)
	if !ok {
		return 0, false
	}
	g, err := rating.FromIndex(int(v))
	if err != nil {
		return 0, false
	}
	return g, true
}

// worstGrade returns the worst of the given ratings present in set.
func worstGrade(set measure.Set, ms []metric.Metric) (rating.Rating, bool) {
	worst, found := rating.Best, false
	for _, m := range ms {
		if g, ok := grade(set, m); ok {
			worst = rating.Max(worst, g)
			found = true
		}
	}
	return worst, found
}

func count(set measure.Set, m metric.Metric) string {
	v, ok := set.Float(m)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%d", int64(v))
}

func percent(set measure.Set, m metric.Metric) string {
	v, ok := set.Float(m)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", v)
}

// formatEffort renders minutes of remediation effort with 8-hour days.
func formatEffort(set measure.Set, m metric.Metric) string {
	v, ok := set.Float(m)
	if !ok {
		return "-"
	}
	minutes := int64(v)
	days := minutes / (8 * 60)
	hours := (minutes % (8 * 60)) / 60
	mins := minutes % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dmin", hours, mins)
	default:
		return fmt.Sprintf("%dmin", mins)
	}
}

func letter(set measure.Set, m metric.Metric) string {
	if g, ok := grade(set, m); ok {
		return g.String()
	}
	return "-"
}

func hasNewCode(set measure.Set) bool {
	for _, m := range newCodeRatings {
		if _, ok := set.Get(m); ok {
			return true
		}
	}
	return false
}
