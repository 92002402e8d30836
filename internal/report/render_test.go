package report

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPRBody(t *testing.T) {
	r := sampleReport(t)

	body, err := PRBody(r)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(body, "## 📸 Screenshot Baseline Update Required"))
	assert.Contains(t, body, r.BatchID)
	assert.Contains(t, body, "| ✅ Passed | 1 |")
	assert.Contains(t, body, "| ⚠️ Needs Review | 1 |")
	assert.Contains(t, body, "| ❌ Failed | 1 |")
	assert.Contains(t, body, "| **Total** | **3** |")
	assert.Contains(t, body, "- `current/drupal/admin.png` - **11.00%** difference")
	assert.Contains(t, body, "- `current/drupal/ai.png` - **18.00%** difference")
	assert.Contains(t, body, "[View Diff](diffs/b/drupal/ai.png)")
	assert.NotContains(t, body, "`current/drupal/home.png` - **", "passed screenshots are not listed")
	assert.Contains(t, body, "<details>")
}

func TestPRBody_ErroredAndMissing(t *testing.T) {
	b := NewBuilder("batch-err", testTime)
	b.AddError("current/x/a.png", "baselines/x/a.png", errors.New("decode image: png: invalid format"))
	b.AddMissingBaseline("current/x/new.png", "baselines/x/new.png (not found)")

	body, err := PRBody(b.Build())
	require.NoError(t, err)

	assert.Contains(t, body, "_1 of the failed screenshots could not be compared._")
	assert.Contains(t, body, "- `current/x/a.png` - decode image: png: invalid format")
	assert.Contains(t, body, "- `current/x/new.png` - **no baseline** (new screenshot)")
}

func TestHTML(t *testing.T) {
	r := sampleReport(t)

	html, err := HTML(r)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<title>Visual Regression Report - "+r.BatchID+"</title>")
	assert.Contains(t, html, `<td class="passed">1</td>`)
	assert.Contains(t, html, `<td class="review">1</td>`)
	assert.Contains(t, html, `<td class="failed">1</td>`)
	assert.Contains(t, html, "Needs Review")
	assert.Contains(t, html, "Difference: 11.00%")
	assert.Contains(t, html, `src="diffs/b/drupal/ai.png"`)
	assert.Contains(t, html, "2025-11-29 03:00:00 UTC")

	// Only the two non-pass results carry a diff triplet
	assert.Equal(t, 2, strings.Count(html, `alt="Diff"`))

	// Most severe section first
	assert.Less(t, strings.Index(html, "Failed (1)"), strings.Index(html, "Needs Review (1)"))
	assert.Less(t, strings.Index(html, "Needs Review (1)"), strings.Index(html, "Passed (1)"))
}

func TestHTML_EscapesPaths(t *testing.T) {
	b := NewBuilder("<batch>", testTime)
	require.NoError(t, b.AddComparison(`current/<script>alert(1)</script>.png`, "b", 0.5, "javascript:alert(1)"))

	html, err := HTML(b.Build())
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.NotContains(t, html, `src="javascript:`)
	assert.Contains(t, html, "&lt;batch&gt;")
}

func TestHTML_BatchIDWithOffset(t *testing.T) {
	id := "2025-11-29T03:00:00+01:00"
	b := NewBuilder(id, testTime)
	require.NoError(t, b.AddComparison("current/a/b.png", "baselines/a/b.png", 0, ""))

	html, err := HTML(b.Build())
	require.NoError(t, err)

	assert.Contains(t, html, "<title>Visual Regression Report - "+id+"</title>")
	assert.Contains(t, html, "<strong>Batch ID:</strong> "+id+"</div>")
	assert.NotContains(t, html, "&#43;")
}

func TestHTML_Errored(t *testing.T) {
	b := NewBuilder("batch-err", testTime)
	b.AddError("current/x/a.png", "baselines/x/a.png", errors.New("boom"))

	html, err := HTML(b.Build())
	require.NoError(t, err)

	assert.Contains(t, html, "Errored (1)")
	assert.Contains(t, html, "Comparison error: boom")
	assert.Contains(t, html, "1 failed screenshot(s) could not be compared.")
}

func TestTextSummary(t *testing.T) {
	r := sampleReport(t)
	text := TextSummary(r)

	assert.Contains(t, text, "Visual Regression Report - "+r.BatchID)
	assert.Contains(t, text, "❌ 1 screenshot(s) failed (>15% diff)")
	assert.Contains(t, text, "Passed 1/3")
	assert.Contains(t, text, "- Total: 3")
}

func TestTextSummary_States(t *testing.T) {
	b := NewBuilder("ok", testTime)
	require.NoError(t, b.AddComparison("a", "b", 0, ""))
	assert.Contains(t, TextSummary(b.Build()), "✅ All screenshots match baselines")

	require.NoError(t, b.AddComparison("c", "d", 0.12, "e"))
	assert.Contains(t, TextSummary(b.Build()), "⚠️ 1 screenshot(s) need review (10-15% diff)")
}

func TestRenderers_Pure(t *testing.T) {
	r := sampleReport(t)

	for _, f := range []Format{FormatHTML, FormatMarkdown, FormatText, FormatJSON} {
		first, err := Render(r, f)
		require.NoError(t, err, f)
		second, err := Render(r, f)
		require.NoError(t, err, f)

		assert.Equal(t, first, second, "format %s must be deterministic", f)
		assert.Contains(t, first, r.BatchID, "format %s must contain the batch id", f)
	}

	_, err := Render(r, "pdf")
	assert.Error(t, err)
}
