package report

import (
	"fmt"
	"strings"
)

// PRBody formats a report as the Markdown body of a baseline-update pull
// request.
func PRBody(r *Report) (string, error) {
	raw, err := r.JSON()
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	var b strings.Builder
	s := r.Summary

	b.WriteString("## 📸 Screenshot Baseline Update Required\n\n")
	fmt.Fprintf(&b, "**Batch ID:** `%s`\n", r.BatchID)
	fmt.Fprintf(&b, "**Timestamp:** %s\n\n", formatTimestamp(r.Timestamp))

	b.WriteString("### Summary\n\n")
	b.WriteString("| Status | Count |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(&b, "| ✅ Passed | %d |\n", s.Passed)
	fmt.Fprintf(&b, "| ⚠️ Needs Review | %d |\n", s.Review)
	fmt.Fprintf(&b, "| ❌ Failed | %d |\n", s.Failed)
	fmt.Fprintf(&b, "| **Total** | **%d** |\n", s.Total)
	if s.Errored > 0 {
		fmt.Fprintf(&b, "\n_%d of the failed screenshots could not be compared._\n", s.Errored)
	}
	b.WriteString("\n---\n\n")

	if failed := r.Filter(isFailedDiff); len(failed) > 0 {
		b.WriteString("### ❌ Auto-Failed Screenshots (>15% difference)\n\n")
		b.WriteString("These screenshots have significant changes and require investigation before baseline update:\n\n")
		writeDiffList(&b, failed)
	}

	if errored := r.Filter(Result.Errored); len(errored) > 0 {
		b.WriteString("### 🚫 Screenshots That Could Not Be Compared\n\n")
		for _, res := range errored {
			fmt.Fprintf(&b, "- `%s` - %s\n", res.ScreenshotPath, errorText(res))
		}
		b.WriteString("\n")
	}

	if review := r.Filter(isReview); len(review) > 0 {
		b.WriteString("### ⚠️ Screenshots Needing Review (10-15% difference)\n\n")
		b.WriteString("These screenshots have moderate changes and need manual approval:\n\n")
		writeDiffList(&b, review)
	}

	b.WriteString("---\n\n")
	b.WriteString("### Actions Required\n\n")
	b.WriteString("1. **Review the diff images** in the links above\n")
	b.WriteString("2. **Verify the changes** are intentional (e.g., from CloudFormation template updates)\n")
	b.WriteString("3. **Approve this PR** if changes look correct\n")
	b.WriteString("4. **Close this PR** if changes indicate a problem\n\n")
	b.WriteString("Once approved and merged, the baseline update workflow will promote the new screenshots to baselines.\n\n")
	b.WriteString("---\n\n")

	b.WriteString("<details>\n<summary>📋 Full Report Details</summary>\n\n")
	b.WriteString("```json\n")
	b.Write(raw)
	b.WriteString("\n```\n\n</details>\n")

	return b.String(), nil
}

func writeDiffList(b *strings.Builder, results []Result) {
	for _, res := range results {
		if res.MissingBaseline() {
			fmt.Fprintf(b, "- `%s` - **no baseline** (new screenshot)\n", res.ScreenshotPath)
			continue
		}
		fmt.Fprintf(b, "- `%s` - **%s** difference\n", res.ScreenshotPath, formatPercent(res.Outcome.Percentage()))
		if p := res.Outcome.DiffImage(); p != "" {
			fmt.Fprintf(b, "  - [View Diff](%s)\n", p)
		}
	}
	b.WriteString("\n")
}
