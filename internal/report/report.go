package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/standardbeagle/shotcheck/internal/snapshot"
)

// Report is the read-only outcome of one regression batch.
type Report struct {
	BatchID   string    `json:"batch_id"`
	Timestamp time.Time `json:"timestamp"`
	Results   []Result  `json:"results"`
	Summary   Summary   `json:"summary"`
}

// Summary counts results per verdict. Passed+Review+Failed == Total.
// Errored is the share of Failed that could not be compared and
// MissingBaseline the share of Review that had nothing to compare against.
type Summary struct {
	Total           int `json:"total"`
	Passed          int `json:"passed"`
	Review          int `json:"review"`
	Failed          int `json:"failed"`
	Errored         int `json:"errored,omitempty"`
	MissingBaseline int `json:"missing_baseline,omitempty"`
}

// Summarize tallies results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status() {
		case snapshot.VerdictPass:
			s.Passed++
		case snapshot.VerdictReview:
			s.Review++
		case snapshot.VerdictFail:
			s.Failed++
		}
		switch r.Outcome.(type) {
		case Errored:
			s.Errored++
		case MissingBaseline:
			s.MissingBaseline++
		}
	}
	return s
}

// Builder assembles a report in insertion order.
type Builder struct {
	batchID   string
	timestamp time.Time
	results   []Result
}

// NewBuilder starts a report for a batch.
func NewBuilder(batchID string, timestamp time.Time) *Builder {
	return &Builder{batchID: batchID, timestamp: timestamp}
}

// Add appends a result.
func (b *Builder) Add(r Result) {
	b.results = append(b.results, r)
}

// AddComparison classifies a measured diff and appends the result.
func (b *Builder) AddComparison(screenshotPath, baselinePath string, diffPercentage float64, diffImagePath string) error {
	o, err := Classified(diffPercentage, diffImagePath)
	if err != nil {
		return fmt.Errorf("%s: %w", screenshotPath, err)
	}
	b.Add(Result{ScreenshotPath: screenshotPath, BaselinePath: baselinePath, Outcome: o})
	return nil
}

// AddError records a screenshot that could not be compared.
func (b *Builder) AddError(screenshotPath, baselinePath string, err error) {
	b.Add(Result{ScreenshotPath: screenshotPath, BaselinePath: baselinePath, Outcome: Errored{Err: err.Error()}})
}

// AddMissingBaseline records a screenshot with no baseline.
func (b *Builder) AddMissingBaseline(screenshotPath, baselinePath string) {
	b.Add(Result{ScreenshotPath: screenshotPath, BaselinePath: baselinePath, Outcome: MissingBaseline{}})
}

// Len returns the number of results added so far.
func (b *Builder) Len() int { return len(b.results) }

// Build returns the report. Later Adds do not affect it.
func (b *Builder) Build() *Report {
	return Build(b.batchID, b.timestamp, b.results)
}

// Build creates a report from an ordered result list.
func Build(batchID string, timestamp time.Time, results []Result) *Report {
	rs := make([]Result, len(results))
	copy(rs, results)
	return &Report{
		BatchID:   batchID,
		Timestamp: timestamp.UTC(),
		Results:   rs,
		Summary:   Summarize(rs),
	}
}

// Filter returns the results whose outcome matches keep, in order.
func (r *Report) Filter(keep func(Result) bool) []Result {
	var out []Result
	for _, res := range r.Results {
		if keep(res) {
			out = append(out, res)
		}
	}
	return out
}

// ByStatus returns the results of one verdict bucket, in order.
func (r *Report) ByStatus(v snapshot.Verdict) []Result {
	return r.Filter(func(res Result) bool { return res.Status() == v })
}

// NeedsReview reports whether any result is review or fail.
func (r *Report) NeedsReview() bool {
	return r.Summary.Review > 0 || r.Summary.Failed > 0
}

// Validate checks that the summary matches the results.
func (r *Report) Validate() error {
	if r.BatchID == "" {
		return fmt.Errorf("report: batch_id is required")
	}
	for i, res := range r.Results {
		if res.Outcome == nil {
			return fmt.Errorf("report: results[%d] has no outcome", i)
		}
	}
	if want := Summarize(r.Results); r.Summary != want {
		return fmt.Errorf("report: summary %+v does not match results %+v", r.Summary, want)
	}
	return nil
}

// JSON encodes the report as indented JSON.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Decode parses and validates a JSON report.
func Decode(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Load reads a JSON report file.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return Decode(data)
}
