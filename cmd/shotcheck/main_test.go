package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/shotcheck/internal/manifest"
	"github.com/standardbeagle/shotcheck/internal/report"
	"github.com/standardbeagle/shotcheck/internal/snapshot"
)

// redPNG returns a 10x10 white PNG with the first n pixels red.
func redPNG(t *testing.T, n int) []byte {
	t.Helper()
	img := snapshot.NewImage(10, 10)
	img.Fill(255, 255, 255, 255)
	for i := 0; i < n; i++ {
		img.Set(i%10, i/10, 255, 0, 0, 255)
	}
	data, err := img.EncodePNG()
	require.NoError(t, err)
	return data
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestCompareFiles(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.png", redPNG(t, 0))
	cur := writeFile(t, dir, "cur.png", redPNG(t, 20))
	diff := filepath.Join(dir, "diffs", "d.png")

	var out bytes.Buffer
	v, err := compareFiles(&out, snapshot.NewDiffer(snapshot.RenderOptions{}), base, cur, diff)
	require.NoError(t, err)

	assert.Equal(t, snapshot.VerdictFail, v)
	assert.Contains(t, out.String(), "Significant changes (20.00%)")
	assert.Contains(t, out.String(), "(20 of 100 pixels)")
	assert.FileExists(t, diff)

	_, err = compareFiles(&out, snapshot.NewDiffer(snapshot.RenderOptions{}), filepath.Join(dir, "none.png"), cur, "")
	assert.ErrorContains(t, err, "load baseline")
}

func testReport(t *testing.T, failPct float64) *report.Report {
	t.Helper()
	b := report.NewBuilder("2025-11-29T03:00:00Z-abc123", time.Date(2025, 11, 29, 3, 0, 0, 0, time.UTC))
	require.NoError(t, b.AddComparison("current/drupal/home.png", "baselines/drupal/home.png", 0.01, ""))
	require.NoError(t, b.AddComparison("current/drupal/admin.png", "baselines/drupal/admin.png", failPct, "diffs/x/admin.png"))
	return b.Build()
}

func TestWriteReports(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")

	paths, err := writeReports(dir, testReport(t, 0.2))
	require.NoError(t, err)

	base := filepath.Join(dir, "2025-11-29T03-00-00Z-abc123")
	assert.Equal(t, reportPaths{
		JSON:    base + ".json",
		HTML:    base + ".html",
		Summary: base + "-summary.txt",
		PRBody:  base + "-pr-body.md",
	}, paths)
	for _, p := range []string{paths.JSON, paths.HTML, paths.Summary, paths.PRBody} {
		assert.FileExists(t, p)
	}

	loaded, err := report.Load(paths.JSON)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Summary.Failed)
}

func TestWriteReports_NoPRBodyWhenClean(t *testing.T) {
	b := report.NewBuilder("clean", time.Now())
	require.NoError(t, b.AddComparison("current/a/b.png", "baselines/a/b.png", 0, ""))

	paths, err := writeReports(t.TempDir(), b.Build())
	require.NoError(t, err)
	assert.Empty(t, paths.PRBody)
}

func TestEmitGitHubOutputs(t *testing.T) {
	rep := testReport(t, 0.12)
	outs := githubOutputs(rep, reportPaths{JSON: "r.json", HTML: "r.html", PRBody: "r.md"})

	t.Setenv("GITHUB_OUTPUT", "")
	var buf bytes.Buffer
	require.NoError(t, emitGitHubOutputs(&buf, outs))
	assert.Equal(t, strings.Join([]string{
		"needs_review=true",
		"passed=1",
		"review=1",
		"failed=0",
		"total=2",
		"report_path=r.json",
		"html_path=r.html",
		"pr_body_path=r.md",
	}, "\n")+"\n", buf.String())

	file := filepath.Join(t.TempDir(), "github_output")
	require.NoError(t, os.WriteFile(file, []byte("existing=1\n"), 0644))
	t.Setenv("GITHUB_OUTPUT", file)

	buf.Reset()
	require.NoError(t, emitGitHubOutputs(&buf, outs))
	assert.Empty(t, buf.String())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "existing=1\nneeds_review=true\n"))
}

func TestRunCommand(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SHOTCHECK_ROOT", "")
	t.Setenv("SHOTCHECK_OUTPUT", "")
	ghOut := filepath.Join(t.TempDir(), "gh")
	t.Setenv("GITHUB_OUTPUT", ghOut)

	root := t.TempDir()
	output := t.TempDir()
	storage, err := snapshot.NewStorage(root)
	require.NoError(t, err)
	require.NoError(t, storage.WriteCurrent("drupal", "home.png", redPNG(t, 0)))
	require.NoError(t, storage.WriteBaseline("drupal", "home.png", redPNG(t, 0), snapshot.BaselineMeta{}))
	require.NoError(t, storage.WriteCurrent("drupal", "admin.png", redPNG(t, 50)))
	require.NoError(t, storage.WriteBaseline("drupal", "admin.png", redPNG(t, 0), snapshot.BaselineMeta{}))

	m := &manifest.Manifest{
		BatchID: "batch-9",
		Scenarios: []manifest.Scenario{{
			Name:   "drupal",
			Status: manifest.StatusSuccess,
			Screenshots: []manifest.Screenshot{
				{Page: "home", Filename: "home.png"},
				{Page: "admin", Filename: "admin.png"},
			},
		}},
	}
	manifestPath := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, m.Save(manifestPath))
	metricsPath := filepath.Join(t.TempDir(), "shotcheck.prom")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"run", manifestPath, "--root", root, "--output", output, "--metrics", metricsPath})
	err = rootCmd.ExecuteContext(context.Background())

	require.True(t, errors.Is(err, errRegressions), "got %v", err)
	assert.Contains(t, out.String(), "1 passed")
	assert.Contains(t, out.String(), "1 failed")
	assert.FileExists(t, filepath.Join(output, "batch-9.json"))
	assert.FileExists(t, filepath.Join(output, "batch-9-pr-body.md"))
	assert.FileExists(t, metricsPath)
	assert.FileExists(t, filepath.Join(root, "diffs", "batch-9", "drupal", "admin.png"))

	gh, err := os.ReadFile(ghOut)
	require.NoError(t, err)
	assert.Contains(t, string(gh), "failed=1\n")
	assert.Contains(t, string(gh), "needs_review=true\n")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "shotcheck v"+appVersion+"\n", out.String())
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"init", dir})
	require.NoError(t, rootCmd.Execute())
	assert.FileExists(t, filepath.Join(dir, ".shotcheck.kdl"))

	rootCmd.SetArgs([]string{"init", dir})
	assert.ErrorContains(t, rootCmd.Execute(), "already exists")
}

func TestNewMCPServer(t *testing.T) {
	manager, err := snapshot.NewManager(t.TempDir(), snapshot.RenderOptions{})
	require.NoError(t, err)
	assert.NotNil(t, newMCPServer(manager))
}
