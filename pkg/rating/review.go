package rating

import "math"

const percentEpsilon = 10e-6

// ForReviewPercent grades the percentage of security hotspots reviewed.
// ok is false when the percentage is undefined (no hotspots at all); callers
// decide what an undefined percentage means for them.
func ForReviewPercent(percent *float64) (r Rating, ok bool) {
	if percent == nil {
		return 0, false
	}
	p := *percent
	switch {
	case math.Abs(p-100) < percentEpsilon || p > 100:
		return A, true
	case p >= 80:
		return B, true
	case p >= 50:
		return C, true
	case p >= 30:
		return D, true
	default:
		return E, true
	}
}

// ReviewPercent computes reviewed / (reviewed + toReview) * 100.
// It returns nil when there is no hotspot at all.
func ReviewPercent(toReview, reviewed int64) *float64 {
	total := toReview + reviewed
	if total == 0 {
		return nil
	}
	p := float64(reviewed) * 100.0 / float64(total)
	return &p
}
