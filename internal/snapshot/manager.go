package snapshot

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/standardbeagle/shotcheck/internal/manifest"
)

// Manager orchestrates snapshot operations
type Manager struct {
	storage *Storage
	differ  *Differ
}

// NewManager creates a new snapshot manager
func NewManager(storagePath string, opts RenderOptions) (*Manager, error) {
	storage, err := NewStorage(storagePath)
	if err != nil {
		return nil, fmt.Errorf("create storage: %w", err)
	}

	return &Manager{
		storage: storage,
		differ:  NewDiffer(opts),
	}, nil
}

// Storage returns the underlying storage.
func (m *Manager) Storage() *Storage { return m.storage }

// CompareFiles decodes and compares two image files.
func (m *Manager) CompareFiles(baselinePath, currentPath string) (*ComparisonResult, error) {
	return m.differ.CompareFiles(baselinePath, currentPath)
}

// Promote copies every screenshot of a batch from current/ to baselines/,
// tagging each with the template version, and writes a baseline manifest.
// Screenshots missing from current/ are reported, not fatal.
func (m *Manager) Promote(batch *manifest.Manifest, cfnVersion string, now time.Time) (*PromotionResult, error) {
	if err := batch.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	if cfnVersion == "" {
		cfnVersion = "unknown"
	}
	gitCommit, gitBranch := getGitInfo()

	result := &PromotionResult{
		BatchID:    batch.BatchID,
		Keys:       make([]string, 0, batch.Count()),
		CFNVersion: cfnVersion,
	}

	for _, item := range batch.Items() {
		data, err := m.storage.ReadCurrent(item.Scenario, item.Filename)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				result.Missing = append(result.Missing, CurrentKey(item.Scenario, item.Filename))
				continue
			}
			return nil, fmt.Errorf("read current screenshot: %w", err)
		}

		meta := BaselineMeta{
			CFNTemplateVersion: cfnVersion,
			BaselineUpdated:    now.UTC(),
			SourceBatchID:      batch.BatchID,
			GitCommit:          gitCommit,
			GitBranch:          gitBranch,
		}
		if err := m.storage.WriteBaseline(item.Scenario, item.Filename, data, meta); err != nil {
			return nil, fmt.Errorf("save baseline: %w", err)
		}

		result.Keys = append(result.Keys, BaselineKey(item.Scenario, item.Filename))
		result.Copied++
	}

	bm := BaselineManifest{
		Manifest:           *batch,
		BaselineUpdated:    now.UTC(),
		CFNTemplateVersion: cfnVersion,
		SourceBatchID:      batch.BatchID,
	}
	result.ManifestKey = BaselinesDir + "/manifest-" + SafeID(batch.BatchID) + ".json"
	if err := m.storage.WriteJSON(result.ManifestKey, bm); err != nil {
		return nil, fmt.Errorf("save baseline manifest: %w", err)
	}

	return result, nil
}

// ListBaselines returns all available baselines
func (m *Manager) ListBaselines() ([]string, error) {
	return m.storage.ListBaselines()
}

// DeleteBaseline removes a baseline
func (m *Manager) DeleteBaseline(scenario, filename string) error {
	return m.storage.DeleteBaseline(scenario, filename)
}

// DescribeDiff returns a one-line human description of a diff percentage.
func DescribeDiff(diffPercentage float64) string {
	percent := diffPercentage * 100

	switch {
	case percent == 0:
		return "No visual changes detected"
	case percent < 0.1:
		return "Minimal changes (< 0.1%)"
	case percent < ReviewThreshold*100:
		return fmt.Sprintf("Minor changes (%.2f%%)", percent)
	case percent < FailThreshold*100:
		return fmt.Sprintf("Moderate changes (%.2f%%), needs review", percent)
	default:
		return fmt.Sprintf("Significant changes (%.2f%%)", percent)
	}
}

func getGitInfo() (commit, branch string) {
	if output, err := exec.Command("git", "rev-parse", "HEAD").Output(); err == nil {
		commit = strings.TrimSpace(string(output))
		if len(commit) > 7 {
			commit = commit[:7]
		}
	}

	if output, err := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD").Output(); err == nil {
		branch = strings.TrimSpace(string(output))
	}

	return
}
