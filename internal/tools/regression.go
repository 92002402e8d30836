// Package tools exposes the regression engine as MCP tools.
package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/standardbeagle/shotcheck/internal/manifest"
	"github.com/standardbeagle/shotcheck/internal/pipeline"
	"github.com/standardbeagle/shotcheck/internal/report"
	"github.com/standardbeagle/shotcheck/internal/snapshot"
)

// RegressionInput defines input for the regression tool
type RegressionInput struct {
	Action         string   `json:"action" jsonschema:"Action to perform: compare, run, render, classify, promote, list or delete"`
	Baseline       string   `json:"baseline,omitempty" jsonschema:"Baseline image path (compare)"`
	Current        string   `json:"current,omitempty" jsonschema:"Current image path (compare)"`
	DiffOutput     string   `json:"diff_output,omitempty" jsonschema:"Where to write the diff PNG (compare, optional)"`
	Manifest       string   `json:"manifest,omitempty" jsonschema:"Capture manifest path, JSON or YAML (run, promote)"`
	Report         string   `json:"report,omitempty" jsonschema:"Report JSON path (render)"`
	Format         string   `json:"format,omitempty" jsonschema:"Render format: html, markdown, text or json (default text)"`
	DiffPercentage *float64 `json:"diff_percentage,omitempty" jsonschema:"Fraction of differing pixels 0.0-1.0 (classify)"`
	CFNVersion     string   `json:"cfn_template_version,omitempty" jsonschema:"Template version recorded on promoted baselines (promote)"`
	Scenario       string   `json:"scenario,omitempty" jsonschema:"Scenario name (delete)"`
	Filename       string   `json:"filename,omitempty" jsonschema:"Screenshot filename (delete)"`
}

// RegressionOutput defines output for the regression tool
type RegressionOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// CompareData is the data of a compare action.
type CompareData struct {
	DiffPercentage float64          `json:"diff_percentage"`
	DiffPixels     int              `json:"diff_pixels"`
	TotalPixels    int              `json:"total_pixels"`
	Status         snapshot.Verdict `json:"status"`
	DiffImagePath  string           `json:"diff_image_path,omitempty"`
}

// Regression serves the regression tool actions.
type Regression struct {
	manager  *snapshot.Manager
	pipeline pipeline.Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewRegression creates the tool over a snapshot manager. cfg configures
// batch runs.
func NewRegression(manager *snapshot.Manager, cfg pipeline.Config, logger *zap.Logger) *Regression {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Logger = logger
	return &Regression{manager: manager, pipeline: cfg, logger: logger, now: time.Now}
}

// RegisterRegressionTools registers regression-related MCP tools
func RegisterRegressionTools(server *mcp.Server, tool *Regression) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "regression",
		Description: `Compare screenshots against baselines and report visual regressions.

Classification: diff < 10% pass, 10-15% review, >= 15% fail.

Actions:
- compare: Compare two image files
- run: Compare every screenshot of a capture manifest against its baseline
- render: Render a report JSON as html, markdown, text or json
- classify: Classify a diff percentage
- promote: Promote a batch's current screenshots to baselines
- list: List baselines
- delete: Delete one baseline and its metadata

Example compare:
  regression {action: "compare", baseline: "baselines/drupal/home.png", current: "current/drupal/home.png"}

Example run:
  regression {action: "run", manifest: "manifests/batch.json"}`,
	}, tool.Handle)
}

// Handle dispatches one tool call.
func (t *Regression) Handle(ctx context.Context, req *mcp.CallToolRequest, input RegressionInput) (*mcp.CallToolResult, RegressionOutput, error) {
	t.logger.Debug("regression tool call", zap.String("action", input.Action))

	switch input.Action {
	case "compare":
		return t.handleCompare(input)
	case "run":
		return t.handleRun(ctx, input)
	case "render":
		return t.handleRender(input)
	case "classify":
		return t.handleClassify(input)
	case "promote":
		return t.handlePromote(input)
	case "list":
		return t.handleList()
	case "delete":
		return t.handleDelete(input)
	default:
		return errorResult(fmt.Sprintf("Unknown action: %s. Valid actions: compare, run, render, classify, promote, list, delete", input.Action)), RegressionOutput{}, nil
	}
}

func (t *Regression) handleCompare(input RegressionInput) (*mcp.CallToolResult, RegressionOutput, error) {
	if input.Baseline == "" || input.Current == "" {
		return errorResult("Missing required parameters: baseline and current"), RegressionOutput{}, nil
	}

	result, err := t.manager.CompareFiles(input.Baseline, input.Current)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to compare: %v", err)), RegressionOutput{}, nil
	}

	data := CompareData{
		DiffPercentage: result.DiffPercentage,
		DiffPixels:     result.DiffPixels,
		TotalPixels:    result.TotalPixels,
		Status:         result.Verdict(),
	}
	if input.DiffOutput != "" {
		if err := writeFile(input.DiffOutput, result.DiffImage); err != nil {
			return errorResult(fmt.Sprintf("Failed to write diff image: %v", err)), RegressionOutput{}, nil
		}
		data.DiffImagePath = input.DiffOutput
	}

	message := fmt.Sprintf("%s %s (%d of %d pixels)", statusIcon(data.Status), snapshot.DescribeDiff(data.DiffPercentage), data.DiffPixels, data.TotalPixels)
	if data.DiffImagePath != "" {
		message += "\nDiff: " + data.DiffImagePath
	}

	return nil, RegressionOutput{
		Success: data.Status == snapshot.VerdictPass,
		Message: message,
		Data:    data,
	}, nil
}

func (t *Regression) handleRun(ctx context.Context, input RegressionInput) (*mcp.CallToolResult, RegressionOutput, error) {
	if input.Manifest == "" {
		return errorResult("Missing required parameter: manifest"), RegressionOutput{}, nil
	}

	m, err := manifest.Load(input.Manifest)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load manifest: %v", err)), RegressionOutput{}, nil
	}

	backend := pipeline.NewStorageBackend(t.manager.Storage())
	rep, err := pipeline.NewRunner(backend, backend, t.pipeline).Run(ctx, m)
	if rep == nil {
		return errorResult(fmt.Sprintf("Failed to run batch: %v", err)), RegressionOutput{}, nil
	}

	message := report.TextSummary(rep)
	if err != nil {
		message += fmt.Sprintf("\nRun stopped early: %v\n", err)
	}

	return nil, RegressionOutput{
		Success: err == nil && rep.Summary.Failed == 0,
		Message: message,
		Data:    rep,
	}, nil
}

func (t *Regression) handleRender(input RegressionInput) (*mcp.CallToolResult, RegressionOutput, error) {
	if input.Report == "" {
		return errorResult("Missing required parameter: report"), RegressionOutput{}, nil
	}
	format := input.Format
	if format == "" {
		format = string(report.FormatText)
	}

	rep, err := report.Load(input.Report)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load report: %v", err)), RegressionOutput{}, nil
	}

	content, err := report.Render(rep, report.Format(format))
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to render report: %v", err)), RegressionOutput{}, nil
	}

	return nil, RegressionOutput{Success: true, Message: content}, nil
}

func (t *Regression) handleClassify(input RegressionInput) (*mcp.CallToolResult, RegressionOutput, error) {
	if input.DiffPercentage == nil {
		return errorResult("Missing required parameter: diff_percentage"), RegressionOutput{}, nil
	}

	v := snapshot.Classify(*input.DiffPercentage)
	return nil, RegressionOutput{
		Success: true,
		Message: fmt.Sprintf("%s %s: %s", statusIcon(v), v, snapshot.DescribeDiff(*input.DiffPercentage)),
		Data:    map[string]any{"status": v},
	}, nil
}

func (t *Regression) handlePromote(input RegressionInput) (*mcp.CallToolResult, RegressionOutput, error) {
	if input.Manifest == "" {
		return errorResult("Missing required parameter: manifest"), RegressionOutput{}, nil
	}

	m, err := manifest.Load(input.Manifest)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load manifest: %v", err)), RegressionOutput{}, nil
	}

	result, err := t.manager.Promote(m, input.CFNVersion, t.now())
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to promote baselines: %v", err)), RegressionOutput{}, nil
	}

	message := fmt.Sprintf("✓ Promoted %d screenshot(s) from batch %s (template %s)", result.Copied, result.BatchID, result.CFNVersion)
	if len(result.Missing) > 0 {
		message += fmt.Sprintf("\nMissing from current/: %s", strings.Join(result.Missing, ", "))
	}

	return nil, RegressionOutput{
		Success: len(result.Missing) == 0,
		Message: message,
		Data:    result,
	}, nil
}

func (t *Regression) handleList() (*mcp.CallToolResult, RegressionOutput, error) {
	keys, err := t.manager.ListBaselines()
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to list baselines: %v", err)), RegressionOutput{}, nil
	}

	if len(keys) == 0 {
		return nil, RegressionOutput{Success: true, Message: "No baselines found", Data: keys}, nil
	}

	message := fmt.Sprintf("Available baselines (%d):\n\n", len(keys))
	for i, k := range keys {
		message += fmt.Sprintf("%d. %s\n", i+1, k)
	}
	return nil, RegressionOutput{Success: true, Message: message, Data: keys}, nil
}

func (t *Regression) handleDelete(input RegressionInput) (*mcp.CallToolResult, RegressionOutput, error) {
	if input.Scenario == "" || input.Filename == "" {
		return errorResult("Missing required parameters: scenario and filename"), RegressionOutput{}, nil
	}

	if err := t.manager.DeleteBaseline(input.Scenario, input.Filename); err != nil {
		return errorResult(fmt.Sprintf("Failed to delete baseline: %v", err)), RegressionOutput{}, nil
	}

	return nil, RegressionOutput{
		Success: true,
		Message: fmt.Sprintf("✓ Baseline '%s' deleted", snapshot.BaselineKey(input.Scenario, input.Filename)),
	}, nil
}

// Helper functions

func statusIcon(v snapshot.Verdict) string {
	switch v {
	case snapshot.VerdictPass:
		return "✓"
	case snapshot.VerdictReview:
		return "⚠️"
	default:
		return "❌"
	}
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
