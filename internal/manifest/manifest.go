// Package manifest describes one capture batch: which scenarios ran and
// which screenshots each produced.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ScenarioStatus is the capture outcome of a scenario.
type ScenarioStatus string

const (
	StatusSuccess ScenarioStatus = "success"
	StatusPartial ScenarioStatus = "partial"
	StatusFailed  ScenarioStatus = "failed"
)

// Manifest lists every screenshot captured in a batch.
type Manifest struct {
	BatchID         string     `json:"batch_id" yaml:"batch_id"`
	Timestamp       time.Time  `json:"timestamp" yaml:"timestamp"`
	DurationSeconds float64    `json:"duration_seconds" yaml:"duration_seconds"`
	Scenarios       []Scenario `json:"scenarios" yaml:"scenarios"`
}

// Scenario groups the screenshots of one deployed scenario.
type Scenario struct {
	Name        string         `json:"scenario_name" yaml:"scenario_name"`
	Status      ScenarioStatus `json:"status" yaml:"status"`
	Screenshots []Screenshot   `json:"screenshots" yaml:"screenshots"`
	Errors      []string       `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Screenshot is one captured console page.
type Screenshot struct {
	Page               string     `json:"page" yaml:"page"`
	Filename           string     `json:"filename" yaml:"filename"`
	Dimensions         Dimensions `json:"dimensions" yaml:"dimensions"`
	SizeBytes          int64      `json:"size_bytes" yaml:"size_bytes"`
	Timestamp          time.Time  `json:"timestamp" yaml:"timestamp"`
	CFNTemplateVersion string     `json:"cfn_template_version,omitempty" yaml:"cfn_template_version,omitempty"`
}

// Dimensions is the viewport size a screenshot was taken at.
type Dimensions struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Item is a screenshot flattened with its scenario name.
type Item struct {
	Scenario string
	Screenshot
}

// NewBatchID returns an RFC 3339 instant with a short random suffix.
func NewBatchID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return now.UTC().Format(time.RFC3339) + "-" + suffix
}

// New creates a manifest for a finished capture batch.
func New(batchID string, scenarios []Scenario, duration time.Duration, now time.Time) *Manifest {
	return &Manifest{
		BatchID:         batchID,
		Timestamp:       now.UTC(),
		DurationSeconds: duration.Seconds(),
		Scenarios:       scenarios,
	}
}

// Count returns the number of screenshots across all scenarios.
func (m *Manifest) Count() int {
	n := 0
	for _, s := range m.Scenarios {
		n += len(s.Screenshots)
	}
	return n
}

// Items flattens the manifest in scenario order.
func (m *Manifest) Items() []Item {
	items := make([]Item, 0, m.Count())
	for _, s := range m.Scenarios {
		for _, shot := range s.Screenshots {
			items = append(items, Item{Scenario: s.Name, Screenshot: shot})
		}
	}
	return items
}

// FailedScenarios returns the scenarios whose capture failed outright.
func (m *Manifest) FailedScenarios() []Scenario {
	var out []Scenario
	for _, s := range m.Scenarios {
		if s.Status == StatusFailed {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the fields a regression run depends on.
func (m *Manifest) Validate() error {
	var errs []error
	if m.BatchID == "" {
		errs = append(errs, errors.New("batch_id is required"))
	}
	for i, s := range m.Scenarios {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("scenarios[%d]: scenario_name is required", i))
		} else if !plainName(s.Name) {
			errs = append(errs, fmt.Errorf("scenarios[%d]: scenario_name %q must not contain a path", i, s.Name))
		}
		switch s.Status {
		case "", StatusSuccess, StatusPartial, StatusFailed:
		default:
			errs = append(errs, fmt.Errorf("scenarios[%d]: unknown status %q", i, s.Status))
		}
		for j, shot := range s.Screenshots {
			if shot.Filename == "" {
				errs = append(errs, fmt.Errorf("scenarios[%d].screenshots[%d]: filename is required", i, j))
			} else if !plainName(shot.Filename) {
				errs = append(errs, fmt.Errorf("scenarios[%d].screenshots[%d]: filename %q must not contain a path", i, j, shot.Filename))
			}
		}
	}
	return errors.Join(errs...)
}

// plainName reports whether name is usable as a single path segment.
func plainName(name string) bool {
	return !strings.ContainsAny(name, `/\`) && name != "." && name != ".."
}

// Parse decodes manifest data; format is "json", "yaml" or "yml".
func Parse(data []byte, format string) (*Manifest, error) {
	var m Manifest
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse manifest yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse manifest json: %w", err)
		}
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// Load reads a manifest from a .json, .yaml or .yml file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

// Save writes the manifest as indented JSON.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
