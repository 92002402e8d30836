package snapshot

import "math"

// Verdict is the three-tier classification of a diff percentage.
type Verdict string

const (
	VerdictPass   Verdict = "pass"
	VerdictReview Verdict = "review"
	VerdictFail   Verdict = "fail"
)

// Classification boundaries. ReviewThreshold itself is review,
// FailThreshold itself is fail.
const (
	ReviewThreshold = 0.10
	FailThreshold   = 0.15
)

// Classify maps a diff percentage to a verdict:
//
//	< 10%  pass (minor rendering differences)
//	10-15% review (requires manual approval)
//	>= 15% fail (investigation required)
//
// Values outside [0,1] are clamped first; NaN fails.
func Classify(diffPercentage float64) Verdict {
	if math.IsNaN(diffPercentage) {
		return VerdictFail
	}
	p := math.Max(0, math.Min(1, diffPercentage))

	switch {
	case p < ReviewThreshold:
		return VerdictPass
	case p < FailThreshold:
		return VerdictReview
	default:
		return VerdictFail
	}
}

// Severity orders verdicts: pass < review < fail.
func (v Verdict) Severity() int {
	switch v {
	case VerdictPass:
		return 0
	case VerdictReview:
		return 1
	case VerdictFail:
		return 2
	}
	return -1
}
