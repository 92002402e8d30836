package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kdl "github.com/sblinch/kdl-go"
)

// KDL configuration file names
const (
	GlobalConfigFile  = "config.kdl"
	ProjectConfigFile = ".shotcheck.kdl"
)

// KDLConfig represents the KDL configuration structure.
// Uses kdl struct tags for unmarshaling.
type KDLConfig struct {
	Root      string      `kdl:"root"`
	Output    string      `kdl:"output"`
	Workers   int         `kdl:"workers"`
	FetchRate float64     `kdl:"fetch-rate"`
	Retry     *KDLRetry   `kdl:"retry"`
	Breaker   *KDLBreaker `kdl:"breaker"`
	Diff      *KDLDiff    `kdl:"diff"`
}

// KDLRetry holds retry settings; durations are milliseconds.
type KDLRetry struct {
	Attempts     int `kdl:"attempts"`
	BackoffMinMs int `kdl:"backoff-min-ms"`
	BackoffMaxMs int `kdl:"backoff-max-ms"`
}

// KDLBreaker holds circuit breaker settings.
type KDLBreaker struct {
	Threshold   float64 `kdl:"threshold"`
	MinRequests int     `kdl:"min-requests"`
	Window      int     `kdl:"window"`
	CooldownMs  int     `kdl:"cooldown-ms"`
}

// KDLDiff holds diff rendering settings.
type KDLDiff struct {
	Dim bool `kdl:"dim"`
}

// Load resolves the configuration for dir: the nearest .shotcheck.kdl
// walking up from dir, else the global config, else defaults. Environment
// overrides are applied last. The returned path is empty when no file was
// found.
func Load(dir string) (*Config, string, error) {
	path := FindProjectConfigFile(dir)
	if path == "" {
		if global := GlobalConfigPath(); global != "" {
			if _, err := os.Stat(global); err == nil {
				path = global
			}
		}
	}

	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadConfigFile(path); err != nil {
			return nil, path, err
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, path, nil
}

// FindProjectConfigFile searches for .shotcheck.kdl starting from dir and
// walking up.
func FindProjectConfigFile(dir string) string {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(absDir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(absDir)
		if parent == absDir {
			// Reached root
			break
		}
		absDir = parent
	}

	return ""
}

// LoadConfigFile loads configuration from a specific file path. A relative
// root or output is resolved against the file's directory.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := ParseKDLConfig(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base := filepath.Dir(path)
	if !filepath.IsAbs(cfg.Root) {
		cfg.Root = filepath.Join(base, cfg.Root)
	}
	if !filepath.IsAbs(cfg.Output) {
		cfg.Output = filepath.Join(base, cfg.Output)
	}
	return cfg, nil
}

// ParseKDLConfig parses KDL configuration data over the defaults.
func ParseKDLConfig(data string) (*Config, error) {
	var kdlCfg KDLConfig
	if err := kdl.Unmarshal([]byte(data), &kdlCfg); err != nil {
		return nil, fmt.Errorf("parse kdl: %w", err)
	}

	return kdlConfigToConfig(&kdlCfg), nil
}

// kdlConfigToConfig converts KDL config to our Config type. Zero values
// keep the default.
func kdlConfigToConfig(kdlCfg *KDLConfig) *Config {
	cfg := DefaultConfig()

	if kdlCfg.Root != "" {
		cfg.Root = kdlCfg.Root
	}
	if kdlCfg.Output != "" {
		cfg.Output = kdlCfg.Output
	}
	if kdlCfg.Workers > 0 {
		cfg.Workers = kdlCfg.Workers
	}
	if kdlCfg.FetchRate != 0 {
		cfg.FetchRate = kdlCfg.FetchRate
	}

	if r := kdlCfg.Retry; r != nil {
		if r.Attempts != 0 {
			cfg.Retry.Attempts = r.Attempts
		}
		if r.BackoffMinMs != 0 {
			cfg.Retry.BackoffMin = time.Duration(r.BackoffMinMs) * time.Millisecond
		}
		if r.BackoffMaxMs != 0 {
			cfg.Retry.BackoffMax = time.Duration(r.BackoffMaxMs) * time.Millisecond
		}
	}

	if b := kdlCfg.Breaker; b != nil {
		if b.Threshold != 0 {
			cfg.Breaker.Threshold = b.Threshold
		}
		if b.MinRequests != 0 {
			cfg.Breaker.MinRequests = b.MinRequests
		}
		if b.Window != 0 {
			cfg.Breaker.Window = b.Window
		}
		if b.CooldownMs != 0 {
			cfg.Breaker.Cooldown = time.Duration(b.CooldownMs) * time.Millisecond
		}
	}

	if kdlCfg.Diff != nil {
		cfg.Diff.Dim = kdlCfg.Diff.Dim
	}

	return cfg
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "shotcheck", GlobalConfigFile)
}

// WriteDefaultConfig writes a default config file with documentation.
func WriteDefaultConfig(path string) error {
	defaultKDL := `// shotcheck configuration

// Storage root with baselines/, current/ and diffs/
root ".shotcheck"
// Report output directory
output "reports"

// Concurrent comparisons
workers 4
// Storage calls per second (0 = unlimited)
fetch-rate 0

retry {
    attempts 3
    backoff-min-ms 200
    backoff-max-ms 5000
}

// Stop the batch when more than half of the storage calls fail
breaker {
    threshold 0.5
    min-requests 4
    window 20
    // 0 keeps the breaker open for the rest of the batch
    cooldown-ms 0
}

diff {
    // Draw unchanged pixels dimmed instead of transparent
    dim false
}
`
	// Create directory if needed
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(strings.TrimSpace(defaultKDL)+"\n"), 0644)
}
