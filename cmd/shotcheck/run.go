package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/standardbeagle/shotcheck/internal/manifest"
	"github.com/standardbeagle/shotcheck/internal/metrics"
	"github.com/standardbeagle/shotcheck/internal/pipeline"
	"github.com/standardbeagle/shotcheck/internal/report"
	"github.com/standardbeagle/shotcheck/internal/snapshot"
)

var runMetricsPath string

var runCmd = &cobra.Command{
	Use:   "run <manifest>",
	Short: "Compare a capture batch against baselines",
	Long: `Compare every screenshot of a capture manifest against its baseline.

Writes <batch>.json, <batch>.html and <batch>-summary.txt to the output
directory, plus <batch>-pr-body.md when anything needs review. GitHub
Actions outputs go to $GITHUB_OUTPUT, or stdout when it is unset.

Exits 1 when any screenshot failed.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runMetricsPath, "metrics", "", "Write Prometheus textfile metrics to this path")
}

func runRun(cmd *cobra.Command, args []string) error {
	m, err := manifest.Load(args[0])
	if err != nil {
		return err
	}
	for _, s := range m.FailedScenarios() {
		logger.Warn("scenario capture failed", zap.String("scenario", s.Name), zap.Strings("errors", s.Errors))
	}

	storage, err := snapshot.NewStorage(cfg.Root)
	if err != nil {
		return err
	}
	backend := pipeline.NewStorageBackend(storage)

	rep, runErr := pipeline.NewRunner(backend, backend, cfg.Pipeline(logger)).Run(cmd.Context(), m)
	if rep == nil {
		return runErr
	}

	paths, err := writeReports(cfg.Output, rep)
	if err != nil {
		return err
	}

	if runMetricsPath != "" {
		mt := metrics.New()
		mt.Publish(rep)
		if err := mt.WriteTextfile(runMetricsPath); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if err := emitGitHubOutputs(out, githubOutputs(rep, paths)); err != nil {
		return err
	}
	printRunSummary(out, rep, paths)

	if runErr != nil {
		if errors.Is(runErr, pipeline.ErrCircuitOpen) {
			logger.Warn("run stopped early", zap.Error(runErr))
		}
		return runErr
	}
	if rep.Summary.Failed > 0 {
		return errRegressions
	}
	return nil
}

// reportPaths are the files written for one batch. PRBody is empty when
// nothing needs review.
type reportPaths struct {
	JSON    string
	HTML    string
	Summary string
	PRBody  string
}

type reportFile struct {
	path   string
	format report.Format
}

func writeReports(dir string, rep *report.Report) (reportPaths, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return reportPaths{}, fmt.Errorf("create output dir: %w", err)
	}

	base := filepath.Join(dir, snapshot.SafeID(rep.BatchID))
	paths := reportPaths{
		JSON:    base + ".json",
		HTML:    base + ".html",
		Summary: base + "-summary.txt",
	}

	files := []reportFile{
		{paths.JSON, report.FormatJSON},
		{paths.HTML, report.FormatHTML},
		{paths.Summary, report.FormatText},
	}
	if rep.NeedsReview() {
		paths.PRBody = base + "-pr-body.md"
		files = append(files, reportFile{paths.PRBody, report.FormatMarkdown})
	}

	for _, f := range files {
		content, err := report.Render(rep, f.format)
		if err != nil {
			return reportPaths{}, err
		}
		if err := os.WriteFile(f.path, []byte(content), 0644); err != nil {
			return reportPaths{}, fmt.Errorf("write %s: %w", f.path, err)
		}
	}
	return paths, nil
}

type output struct {
	Key   string
	Value string
}

func githubOutputs(rep *report.Report, paths reportPaths) []output {
	s := rep.Summary
	return []output{
		{"needs_review", strconv.FormatBool(rep.NeedsReview())},
		{"passed", strconv.Itoa(s.Passed)},
		{"review", strconv.Itoa(s.Review)},
		{"failed", strconv.Itoa(s.Failed)},
		{"total", strconv.Itoa(s.Total)},
		{"report_path", paths.JSON},
		{"html_path", paths.HTML},
		{"pr_body_path", paths.PRBody},
	}
}

// emitGitHubOutputs appends key=value lines to $GITHUB_OUTPUT, or writes
// them to w when it is unset.
func emitGitHubOutputs(w io.Writer, outs []output) error {
	if path := os.Getenv("GITHUB_OUTPUT"); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open GITHUB_OUTPUT: %w", err)
		}
		defer f.Close()
		w = f
	}
	for _, o := range outs {
		if _, err := fmt.Fprintf(w, "%s=%s\n", o.Key, o.Value); err != nil {
			return fmt.Errorf("write output %s: %w", o.Key, err)
		}
	}
	return nil
}

func printRunSummary(w io.Writer, rep *report.Report, paths reportPaths) {
	s := rep.Summary
	fmt.Fprintf(w, "\n%s\n", paint(dimStyle, "Batch "+rep.BatchID))
	fmt.Fprintf(w, "  %s %s\n", verdictIcon(snapshot.VerdictPass), paint(passStyle, fmt.Sprintf("%d passed", s.Passed)))
	fmt.Fprintf(w, "  %s %s\n", verdictIcon(snapshot.VerdictReview), paint(reviewStyle, fmt.Sprintf("%d need review", s.Review)))
	fmt.Fprintf(w, "  %s %s\n", verdictIcon(snapshot.VerdictFail), paint(failStyle, fmt.Sprintf("%d failed", s.Failed)))
	if s.Errored > 0 {
		fmt.Fprintf(w, "     %s\n", paint(dimStyle, fmt.Sprintf("%d could not be compared", s.Errored)))
	}
	fmt.Fprintf(w, "\nReport: %s\nHTML:   %s\n", paths.JSON, paths.HTML)
	if paths.PRBody != "" {
		fmt.Fprintf(w, "PR body: %s\n", paths.PRBody)
	}
}
