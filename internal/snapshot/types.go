package snapshot

import (
	"time"

	"github.com/standardbeagle/shotcheck/internal/manifest"
)

// BaselineMeta is stored next to each promoted baseline screenshot.
type BaselineMeta struct {
	CFNTemplateVersion string    `json:"cfn-template-version"`
	BaselineUpdated    time.Time `json:"baseline-updated"`
	SourceBatchID      string    `json:"source-batch-id"`
	GitCommit          string    `json:"git-commit,omitempty"`
	GitBranch          string    `json:"git-branch,omitempty"`
}

// BaselineManifest records which capture batch a set of baselines came from.
type BaselineManifest struct {
	manifest.Manifest
	BaselineUpdated    time.Time `json:"baseline_updated"`
	CFNTemplateVersion string    `json:"cfn_template_version"`
	SourceBatchID      string    `json:"source_batch_id"`
}

// PromotionResult summarises a baseline promotion.
type PromotionResult struct {
	BatchID     string   `json:"batch_id"`
	Copied      int      `json:"copied"`
	Keys        []string `json:"keys"`
	ManifestKey string   `json:"manifest_key"`
	Missing     []string `json:"missing,omitempty"`
	CFNVersion  string   `json:"cfn_template_version"`
}
