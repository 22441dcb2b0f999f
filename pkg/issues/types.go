// Package issues defines the issue statistics the engine reads for each
// component, and an in-memory provider that computes them from a flat list
// of issues.
package issues

import "github.com/livemeasure/livemeasure/pkg/rating"

// RuleType is the category of the rule that raised an issue.
type RuleType string

const (
	TypeCodeSmell       RuleType = "CODE_SMELL"
	TypeBug             RuleType = "BUG"
	TypeVulnerability   RuleType = "VULNERABILITY"
	TypeSecurityHotspot RuleType = "SECURITY_HOTSPOT"
)

// Issue statuses.
const (
	StatusOpen      = "OPEN"
	StatusConfirmed = "CONFIRMED"
	StatusReopened  = "REOPENED"
	StatusResolved  = "RESOLVED"
	StatusClosed    = "CLOSED"
	StatusToReview  = "TO_REVIEW"
	StatusReviewed  = "REVIEWED"
)

// Issue resolutions. An empty resolution means the issue is unresolved.
const (
	ResolutionFixed         = "FIXED"
	ResolutionFalsePositive = "FALSE-POSITIVE"
	ResolutionWontFix       = "WONTFIX"
	ResolutionRemoved       = "REMOVED"
	ResolutionSafe          = "SAFE"
	ResolutionAcknowledged  = "ACKNOWLEDGED"
)

// Issue is a single issue raised on a component.
type Issue struct {
	Key         string          `json:"key"`
	ComponentID string          `json:"component_id"`
	Type        RuleType        `json:"type"`
	Severity    rating.Severity `json:"severity"`
	Status      string          `json:"status"`
	Resolution  string          `json:"resolution,omitempty"`
	Effort      float64         `json:"effort,omitempty"` // remediation effort in minutes
	NewCode     bool            `json:"new_code,omitempty"`
}

// Unresolved reports whether the issue has no resolution.
func (i Issue) Unresolved() bool { return i.Resolution == "" }

// IsHotspot reports whether the issue is a security hotspot.
func (i Issue) IsHotspot() bool { return i.Type == TypeSecurityHotspot }
