package report

import (
	"fmt"
	"strings"
)

// TextSummary returns a compact plain-text summary for console and CI logs.
func TextSummary(r *Report) string {
	s := r.Summary

	status := "✅ All screenshots match baselines"
	switch {
	case s.Failed > 0:
		status = fmt.Sprintf("❌ %d screenshot(s) failed (>15%% diff)", s.Failed)
		if s.Errored > 0 {
			status += fmt.Sprintf(", %d could not be compared", s.Errored)
		}
	case s.Review > 0:
		status = fmt.Sprintf("⚠️ %d screenshot(s) need review (10-15%% diff)", s.Review)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Visual Regression Report - %s\n\n", r.BatchID)
	fmt.Fprintf(&b, "%s\n\n", status)
	fmt.Fprintf(&b, "Passed %d/%d\n\n", s.Passed, s.Total)
	b.WriteString("Summary:\n")
	fmt.Fprintf(&b, "- Passed: %d\n", s.Passed)
	fmt.Fprintf(&b, "- Review: %d\n", s.Review)
	fmt.Fprintf(&b, "- Failed: %d\n", s.Failed)
	if s.Errored > 0 {
		fmt.Fprintf(&b, "- Errored: %d (included in Failed)\n", s.Errored)
	}
	if s.MissingBaseline > 0 {
		fmt.Fprintf(&b, "- Missing baseline: %d (included in Review)\n", s.MissingBaseline)
	}
	fmt.Fprintf(&b, "- Total: %d", s.Total)

	return b.String()
}

// Format names a rendering target.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

// Render dispatches to the renderer for a format.
func Render(r *Report, f Format) (string, error) {
	switch f {
	case FormatHTML:
		return HTML(r)
	case FormatMarkdown, "md", "pr":
		return PRBody(r)
	case FormatText, "txt":
		return TextSummary(r), nil
	case FormatJSON:
		data, err := r.JSON()
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "", fmt.Errorf("unknown format %q (want html, markdown, text or json)", f)
}
