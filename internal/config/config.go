// Package config contains configuration types for shotcheck.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/standardbeagle/shotcheck/internal/breaker"
	"github.com/standardbeagle/shotcheck/internal/pipeline"
	"github.com/standardbeagle/shotcheck/internal/snapshot"
)

// Environment overrides.
const (
	EnvRoot   = "SHOTCHECK_ROOT"
	EnvOutput = "SHOTCHECK_OUTPUT"
)

// Config holds the complete shotcheck configuration.
type Config struct {
	// Root is the storage root holding baselines/, current/ and diffs/.
	Root string
	// Output is the directory reports are written to.
	Output string

	// Workers bounds concurrent comparisons.
	Workers int
	// FetchRate limits storage calls per second (0 = unlimited).
	FetchRate float64

	Retry   RetryConfig
	Breaker BreakerConfig
	Diff    DiffConfig
}

// RetryConfig controls retries of storage calls.
type RetryConfig struct {
	// Attempts is the total number of tries per call.
	Attempts int
	// BackoffMin is the first retry delay.
	BackoffMin time.Duration
	// BackoffMax caps the retry delay.
	BackoffMax time.Duration
}

// BreakerConfig controls the batch circuit breaker.
type BreakerConfig struct {
	// Threshold is the failure rate above which the breaker opens.
	Threshold float64
	// MinRequests is the sample size needed before tripping.
	MinRequests int
	// Window is the rolling outcome window size.
	Window int
	// Cooldown is the open period before a probe (0 = stay open).
	Cooldown time.Duration
}

// DiffConfig controls diff image rendering.
type DiffConfig struct {
	// Dim draws unchanged pixels at half brightness instead of transparent.
	Dim bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	retry := breaker.DefaultPolicy()
	brk := breaker.DefaultConfig()
	return &Config{
		Root:    ".shotcheck",
		Output:  "reports",
		Workers: 4,
		Retry: RetryConfig{
			Attempts:   retry.Attempts,
			BackoffMin: retry.BackoffMin,
			BackoffMax: retry.BackoffMax,
		},
		Breaker: BreakerConfig{
			Threshold:   brk.Threshold,
			MinRequests: brk.MinRequests,
			Window:      brk.Window,
			Cooldown:    brk.Cooldown,
		},
	}
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvRoot); v != "" {
		c.Root = v
	}
	if v := os.Getenv(EnvOutput); v != "" {
		c.Output = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	if c.Root == "" {
		errs = append(errs, errors.New("root is required"))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.FetchRate < 0 {
		errs = append(errs, fmt.Errorf("fetch-rate must not be negative, got %g", c.FetchRate))
	}
	if c.Retry.Attempts <= 0 {
		errs = append(errs, fmt.Errorf("retry attempts must be positive, got %d", c.Retry.Attempts))
	}
	if c.Retry.BackoffMax > 0 && c.Retry.BackoffMax < c.Retry.BackoffMin {
		errs = append(errs, errors.New("retry backoff-max-ms must not be below backoff-min-ms"))
	}
	if c.Breaker.Threshold <= 0 || c.Breaker.Threshold > 1 {
		errs = append(errs, fmt.Errorf("breaker threshold must be in (0,1], got %g", c.Breaker.Threshold))
	}
	if c.Breaker.MinRequests > c.Breaker.Window {
		errs = append(errs, errors.New("breaker min-requests must not exceed window"))
	}
	return errors.Join(errs...)
}

// Pipeline returns the batch runner configuration.
func (c *Config) Pipeline(logger *zap.Logger) pipeline.Config {
	return pipeline.Config{
		Workers:   c.Workers,
		FetchRate: c.FetchRate,
		Retry: breaker.Policy{
			Attempts:   c.Retry.Attempts,
			BackoffMin: c.Retry.BackoffMin,
			BackoffMax: c.Retry.BackoffMax,
			Multiplier: 2,
		},
		Breaker: breaker.Config{
			Threshold:   c.Breaker.Threshold,
			MinRequests: c.Breaker.MinRequests,
			Window:      c.Breaker.Window,
			Cooldown:    c.Breaker.Cooldown,
		},
		Diff:   c.RenderOptions(),
		Logger: logger,
	}
}

// RenderOptions returns the diff rendering options.
func (c *Config) RenderOptions() snapshot.RenderOptions {
	return snapshot.RenderOptions{Dim: c.Diff.Dim}
}
