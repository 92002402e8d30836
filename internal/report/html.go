package report

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"path/filepath"
	"strings"
	"time"
)

//go:embed templates/report.html.tmpl
var templates embed.FS

var htmlTemplate = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"percent":   formatPercent,
	"timestamp": formatTimestamp,
	"label":     statusLabel,
	"errorText": errorText,
	"src":       imageSource,
	"text":      plainText,
	"title":     titleElement,
}).ParseFS(templates, "templates/report.html.tmpl"))

type htmlSection struct {
	Icon    string
	Title   string
	Results []Result
}

type htmlData struct {
	Report   *Report
	Sections []htmlSection
}

// HTML renders a self-contained HTML report. Sections appear most severe
// first; empty sections are omitted.
func HTML(r *Report) (string, error) {
	data := htmlData{Report: r}
	for _, s := range []htmlSection{
		{Icon: "❌", Title: "Failed", Results: r.Filter(isFailedDiff)},
		{Icon: "🚫", Title: "Errored", Results: r.Filter(Result.Errored)},
		{Icon: "⚠️", Title: "Needs Review", Results: r.Filter(isReview)},
		{Icon: "✅", Title: "Passed", Results: r.Filter(isPass)},
	} {
		if len(s.Results) > 0 {
			data.Sections = append(data.Sections, s)
		}
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

func isPass(r Result) bool {
	_, ok := r.Outcome.(Pass)
	return ok
}

func isReview(r Result) bool {
	switch r.Outcome.(type) {
	case Review, MissingBaseline:
		return true
	}
	return false
}

func isFailedDiff(r Result) bool {
	_, ok := r.Outcome.(Fail)
	return ok
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p*100)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

func statusLabel(r Result) string {
	switch r.Outcome.(type) {
	case Errored:
		return "error"
	case MissingBaseline:
		return "no baseline"
	}
	return string(r.Status())
}

func errorText(r Result) string {
	if e, ok := r.Outcome.(Errored); ok {
		return e.Err
	}
	return ""
}

// imageSource marks screenshot paths as URLs. Filesystem paths are
// written with forward slashes; script URLs are dropped.
func imageSource(p string) template.URL {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(p)), "javascript:") {
		return "#"
	}
	if !strings.Contains(p, "://") {
		p = filepath.ToSlash(p)
	}
	return template.URL(p) //nolint:gosec // paths come from our own storage layout
}

// plainText entity-encodes only the HTML-special characters <>&'" so
// identifiers such as RFC 3339 offsets keep a literal '+'.
func plainText(s string) template.HTML {
	return template.HTML(html.EscapeString(s)) //nolint:gosec // escaped above
}

// titleElement builds the whole <title> element; inside it html/template
// escapes '+' even for trusted HTML.
func titleElement(batchID string) template.HTML {
	return "<title>Visual Regression Report - " + plainText(batchID) + "</title>"
}
