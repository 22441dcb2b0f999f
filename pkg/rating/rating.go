// Package rating defines the five-grade letter scale used by maintainability,
// reliability, security and security-review measures, together with the
// conversions from severities, debt densities and review percentages.
package rating

import "fmt"

// Rating is an ordinal grade. Higher numeric values are worse grades.
type Rating int

const (
	A Rating = iota + 1
	B
	C
	D
	E
)

// Best and Worst bound the scale.
const (
	Best  = A
	Worst = E
)

var letters = [...]string{"", "A", "B", "C", "D", "E"}

// String returns the letter of the grade.
func (r Rating) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Rating(%d)", int(r))
	}
	return letters[r]
}

// Index returns the numeric value stored for the rating (1 for A, 5 for E).
func (r Rating) Index() int { return int(r) }

// Valid reports whether r is one of A..E.
func (r Rating) Valid() bool { return r >= A && r <= E }

// FromIndex converts a stored numeric value back to a rating.
func FromIndex(i int) (Rating, error) {
	r := Rating(i)
	if !r.Valid() {
		return 0, fmt.Errorf("invalid rating index %d", i)
	}
	return r, nil
}

// Parse converts a letter ("A".."E") to a rating.
func Parse(s string) (Rating, error) {
	for i := A; i <= E; i++ {
		if letters[i] == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("invalid rating %q", s)
}

// Max returns the worse of the two grades.
func Max(a, b Rating) Rating {
	if a > b {
		return a
	}
	return b
}

// Severity is the severity of an issue, ordered from least to most severe.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityMinor    Severity = "MINOR"
	SeverityMajor    Severity = "MAJOR"
	SeverityCritical Severity = "CRITICAL"
	SeverityBlocker  Severity = "BLOCKER"
)

// Severities lists all severities from least to most severe.
var Severities = []Severity{SeverityInfo, SeverityMinor, SeverityMajor, SeverityCritical, SeverityBlocker}

// Rank orders severities (INFO is 0, BLOCKER is 4). Unknown severities rank -1.
func (s Severity) Rank() int {
	for i, sev := range Severities {
		if sev == s {
			return i
		}
	}
	return -1
}

// ForSeverity maps the highest severity of unresolved issues to a grade.
// Unknown severities are graded as INFO.
func ForSeverity(s Severity) Rating {
	switch s {
	case SeverityBlocker:
		return E
	case SeverityCritical:
		return D
	case SeverityMajor:
		return C
	case SeverityMinor:
		return B
	default:
		return A
	}
}
