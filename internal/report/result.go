// Package report aggregates per-screenshot comparison outcomes into a batch
// report and renders it as HTML, Markdown and plain text.
package report

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/standardbeagle/shotcheck/internal/snapshot"
)

// ErrMissingDiffImage is returned when a review or fail outcome is built
// without a diff image to look at.
var ErrMissingDiffImage = errors.New("non-pass result requires a diff image path")

// Outcome is what a single comparison produced. The concrete types are
// Pass, Review, Fail, MissingBaseline and Errored.
type Outcome interface {
	// Status is the verdict bucket the outcome counts toward.
	Status() snapshot.Verdict
	// Percentage is the diff percentage reported for the outcome.
	Percentage() float64
	// DiffImage is the diff artifact path, empty when there is none.
	DiffImage() string

	isOutcome()
}

// Pass is a comparison under the review threshold.
type Pass struct {
	DiffPercentage float64
}

// Review is a comparison between the review and fail thresholds.
type Review struct {
	DiffPercentage float64
	DiffImagePath  string
}

// Fail is a comparison at or over the fail threshold.
type Fail struct {
	DiffPercentage float64
	DiffImagePath  string
}

// MissingBaseline marks a screenshot with no accepted baseline yet. It
// counts toward review.
type MissingBaseline struct{}

// Errored marks a screenshot that could not be compared. It counts toward
// failed.
type Errored struct {
	Err string
}

func (Pass) Status() snapshot.Verdict            { return snapshot.VerdictPass }
func (Review) Status() snapshot.Verdict          { return snapshot.VerdictReview }
func (Fail) Status() snapshot.Verdict            { return snapshot.VerdictFail }
func (MissingBaseline) Status() snapshot.Verdict { return snapshot.VerdictReview }
func (Errored) Status() snapshot.Verdict         { return snapshot.VerdictFail }

func (o Pass) Percentage() float64          { return o.DiffPercentage }
func (o Review) Percentage() float64        { return o.DiffPercentage }
func (o Fail) Percentage() float64          { return o.DiffPercentage }
func (MissingBaseline) Percentage() float64 { return 1 }
func (Errored) Percentage() float64         { return 1 }

func (Pass) DiffImage() string            { return "" }
func (o Review) DiffImage() string        { return o.DiffImagePath }
func (o Fail) DiffImage() string          { return o.DiffImagePath }
func (MissingBaseline) DiffImage() string { return "" }
func (Errored) DiffImage() string         { return "" }

func (Pass) isOutcome()            {}
func (Review) isOutcome()          {}
func (Fail) isOutcome()            {}
func (MissingBaseline) isOutcome() {}
func (Errored) isOutcome()         {}

// Classified builds the outcome for a measured diff percentage.
func Classified(diffPercentage float64, diffImagePath string) (Outcome, error) {
	switch snapshot.Classify(diffPercentage) {
	case snapshot.VerdictPass:
		return Pass{DiffPercentage: diffPercentage}, nil
	case snapshot.VerdictReview:
		if diffImagePath == "" {
			return nil, ErrMissingDiffImage
		}
		return Review{DiffPercentage: diffPercentage, DiffImagePath: diffImagePath}, nil
	default:
		if diffImagePath == "" {
			return nil, ErrMissingDiffImage
		}
		return Fail{DiffPercentage: diffPercentage, DiffImagePath: diffImagePath}, nil
	}
}

// Result is one screenshot of a batch.
type Result struct {
	ScreenshotPath     string
	BaselinePath       string
	Outcome            Outcome
	CFNTemplateVersion string
}

// Status returns the verdict bucket of the result.
func (r Result) Status() snapshot.Verdict { return r.Outcome.Status() }

// Errored reports whether the result records a comparison error.
func (r Result) Errored() bool {
	_, ok := r.Outcome.(Errored)
	return ok
}

// MissingBaseline reports whether the result has no baseline.
func (r Result) MissingBaseline() bool {
	_, ok := r.Outcome.(MissingBaseline)
	return ok
}

type resultJSON struct {
	ScreenshotPath     string           `json:"screenshot_path"`
	BaselinePath       string           `json:"baseline_path"`
	DiffPercentage     float64          `json:"diff_percentage"`
	Status             snapshot.Verdict `json:"status"`
	DiffImagePath      string           `json:"diff_image_path,omitempty"`
	Error              string           `json:"error,omitempty"`
	MissingBaseline    bool             `json:"missing_baseline,omitempty"`
	CFNTemplateVersion string           `json:"cfn_template_version,omitempty"`
}

// MarshalJSON flattens the outcome into the report wire format.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Outcome == nil {
		return nil, fmt.Errorf("result %s: no outcome", r.ScreenshotPath)
	}
	w := resultJSON{
		ScreenshotPath:     r.ScreenshotPath,
		BaselinePath:       r.BaselinePath,
		DiffPercentage:     r.Outcome.Percentage(),
		Status:             r.Outcome.Status(),
		DiffImagePath:      r.Outcome.DiffImage(),
		CFNTemplateVersion: r.CFNTemplateVersion,
	}
	switch o := r.Outcome.(type) {
	case Errored:
		w.Error = o.Err
	case MissingBaseline:
		w.MissingBaseline = true
	}
	return json.Marshal(w)
}

// UnmarshalJSON rebuilds the outcome variant and rejects invalid
// combinations such as a pass carrying a diff image.
func (r *Result) UnmarshalJSON(data []byte) error {
	var w resultJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var o Outcome
	switch w.Status {
	case snapshot.VerdictPass:
		if w.DiffImagePath != "" {
			return fmt.Errorf("result %s: pass must not carry a diff image", w.ScreenshotPath)
		}
		o = Pass{DiffPercentage: w.DiffPercentage}
	case snapshot.VerdictReview:
		switch {
		case w.MissingBaseline:
			o = MissingBaseline{}
		case w.DiffImagePath == "":
			return fmt.Errorf("result %s: %w", w.ScreenshotPath, ErrMissingDiffImage)
		default:
			o = Review{DiffPercentage: w.DiffPercentage, DiffImagePath: w.DiffImagePath}
		}
	case snapshot.VerdictFail:
		switch {
		case w.Error != "":
			o = Errored{Err: w.Error}
		case w.DiffImagePath == "":
			return fmt.Errorf("result %s: %w", w.ScreenshotPath, ErrMissingDiffImage)
		default:
			o = Fail{DiffPercentage: w.DiffPercentage, DiffImagePath: w.DiffImagePath}
		}
	default:
		return fmt.Errorf("result %s: unknown status %q", w.ScreenshotPath, w.Status)
	}

	*r = Result{
		ScreenshotPath:     w.ScreenshotPath,
		BaselinePath:       w.BaselinePath,
		Outcome:            o,
		CFNTemplateVersion: w.CFNTemplateVersion,
	}
	return nil
}
