package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/shotcheck/internal/snapshot"
)

var testTime = time.Date(2025, 11, 29, 3, 0, 0, 0, time.UTC)

// sampleReport is the pass / review(0.11) / fail(0.18) batch.
func sampleReport(t *testing.T) *Report {
	t.Helper()
	b := NewBuilder("2025-11-29T03:00:00Z-abc123", testTime)
	require.NoError(t, b.AddComparison("current/drupal/home.png", "baselines/drupal/home.png", 0.02, ""))
	require.NoError(t, b.AddComparison("current/drupal/admin.png", "baselines/drupal/admin.png", 0.11, "diffs/b/drupal/admin.png"))
	require.NoError(t, b.AddComparison("current/drupal/ai.png", "baselines/drupal/ai.png", 0.18, "diffs/b/drupal/ai.png"))
	return b.Build()
}

func TestBuilder_Summary(t *testing.T) {
	r := sampleReport(t)

	want := Summary{Total: 3, Passed: 1, Review: 1, Failed: 1}
	if diff := cmp.Diff(want, r.Summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, r.NeedsReview())
	assert.NoError(t, r.Validate())
}

func TestBuilder_PreservesOrder(t *testing.T) {
	b := NewBuilder("b", testTime)
	paths := []string{"z.png", "a.png", "m.png", "b.png"}
	for i, p := range paths {
		require.NoError(t, b.AddComparison(p, "base/"+p, float64(i)*0.06, "diff/"+p))
	}

	r := b.Build()
	require.Len(t, r.Results, len(paths))
	for i, p := range paths {
		assert.Equal(t, p, r.Results[i].ScreenshotPath)
	}
}

func TestBuilder_Invariant(t *testing.T) {
	b := NewBuilder("b", testTime)
	for i := 0; i < 50; i++ {
		pct := float64(i) / 49
		require.NoError(t, b.AddComparison("s", "b", pct, "d"))
	}
	b.AddError("e", "b", errors.New("decode image: bad"))
	b.AddMissingBaseline("m", "b (not found)")

	r := b.Build()
	s := r.Summary
	assert.Equal(t, 52, s.Total)
	assert.Equal(t, s.Total, s.Passed+s.Review+s.Failed)
	assert.Equal(t, 1, s.Errored)
	assert.Equal(t, 1, s.MissingBaseline)
	assert.Len(t, r.ByStatus(snapshot.VerdictPass), s.Passed)
	assert.Len(t, r.ByStatus(snapshot.VerdictReview), s.Review)
	assert.Len(t, r.ByStatus(snapshot.VerdictFail), s.Failed)
}

func TestBuilder_BuildIsSnapshot(t *testing.T) {
	b := NewBuilder("b", testTime)
	require.NoError(t, b.AddComparison("a", "b", 0, ""))
	r := b.Build()
	require.NoError(t, b.AddComparison("c", "d", 0, ""))

	assert.Len(t, r.Results, 1)
	assert.Equal(t, 2, b.Len())
}

func TestBuilder_Empty(t *testing.T) {
	r := NewBuilder("empty", testTime).Build()
	assert.Equal(t, Summary{}, r.Summary)
	assert.False(t, r.NeedsReview())
}

func TestClassified_RequiresDiffImage(t *testing.T) {
	_, err := Classified(0.12, "")
	assert.ErrorIs(t, err, ErrMissingDiffImage)
	_, err = Classified(0.5, "")
	assert.ErrorIs(t, err, ErrMissingDiffImage)

	o, err := Classified(0.05, "ignored.png")
	require.NoError(t, err)
	assert.Equal(t, Pass{DiffPercentage: 0.05}, o)
	assert.Empty(t, o.DiffImage(), "pass outcomes never carry a diff image")
}

func TestOutcome_Buckets(t *testing.T) {
	tests := []struct {
		outcome Outcome
		status  snapshot.Verdict
		pct     float64
	}{
		{Pass{DiffPercentage: 0.01}, snapshot.VerdictPass, 0.01},
		{Review{DiffPercentage: 0.12, DiffImagePath: "d"}, snapshot.VerdictReview, 0.12},
		{Fail{DiffPercentage: 0.4, DiffImagePath: "d"}, snapshot.VerdictFail, 0.4},
		{MissingBaseline{}, snapshot.VerdictReview, 1},
		{Errored{Err: "x"}, snapshot.VerdictFail, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.outcome.Status(), "%T", tt.outcome)
		assert.Equal(t, tt.pct, tt.outcome.Percentage(), "%T", tt.outcome)
	}
}

func TestReport_JSONRoundTrip(t *testing.T) {
	b := NewBuilder("batch-7", testTime)
	require.NoError(t, b.AddComparison("a", "ba", 0.01, ""))
	require.NoError(t, b.AddComparison("c", "bc", 0.13, "dc"))
	b.AddMissingBaseline("m", "bm (not found)")
	b.AddError("e", "be", errors.New("image dimensions mismatch: baseline 10x10 vs current 10x12"))
	b.Add(Result{ScreenshotPath: "f", BaselinePath: "bf", Outcome: Fail{DiffPercentage: 0.9, DiffImagePath: "df"}, CFNTemplateVersion: "v2"})
	r := b.Build()

	data, err := r.JSON()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	if diff := cmp.Diff(r, decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReport_JSONFields(t *testing.T) {
	data, err := sampleReport(t).JSON()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "2025-11-29T03:00:00Z-abc123", raw["batch_id"])
	assert.Equal(t, "2025-11-29T03:00:00Z", raw["timestamp"])

	results := raw["results"].([]any)
	pass := results[0].(map[string]any)
	assert.Equal(t, "pass", pass["status"])
	assert.NotContains(t, pass, "diff_image_path")

	review := results[1].(map[string]any)
	assert.Equal(t, "review", review["status"])
	assert.Equal(t, 0.11, review["diff_percentage"])
	assert.Equal(t, "diffs/b/drupal/admin.png", review["diff_image_path"])

	summary := raw["summary"].(map[string]any)
	assert.Equal(t, map[string]any{"total": 3.0, "passed": 1.0, "review": 1.0, "failed": 1.0}, summary)
}

func TestDecode_RejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"pass with diff image": `{"batch_id":"b","results":[{"screenshot_path":"a","status":"pass","diff_image_path":"d"}],"summary":{"total":1,"passed":1}}`,
		"fail without image":   `{"batch_id":"b","results":[{"screenshot_path":"a","status":"fail","diff_percentage":0.5}],"summary":{"total":1,"failed":1}}`,
		"unknown status":       `{"batch_id":"b","results":[{"screenshot_path":"a","status":"meh"}],"summary":{"total":1}}`,
		"summary mismatch":     `{"batch_id":"b","results":[{"screenshot_path":"a","status":"pass"}],"summary":{"total":1,"failed":1}}`,
		"missing batch id":     `{"results":[],"summary":{}}`,
		"not json":             `{{`,
	}
	for name, input := range tests {
		_, err := Decode([]byte(input))
		assert.Error(t, err, name)
	}
}

func TestLoad(t *testing.T) {
	data, err := sampleReport(t).JSON()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, data, 0644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Summary.Total)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
