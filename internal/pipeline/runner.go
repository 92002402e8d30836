// Package pipeline runs a regression batch: it fetches every screenshot of
// a manifest with its baseline, compares them and assembles the report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/standardbeagle/shotcheck/internal/breaker"
	"github.com/standardbeagle/shotcheck/internal/manifest"
	"github.com/standardbeagle/shotcheck/internal/report"
	"github.com/standardbeagle/shotcheck/internal/snapshot"
)

// ErrCircuitOpen is returned with a partial report when the breaker opened
// and some screenshots were skipped.
var ErrCircuitOpen = errors.New("circuit open")

// Config configures a Runner.
type Config struct {
	// Workers bounds concurrent comparisons.
	Workers int

	// FetchRate limits collaborator calls per second. Zero is unlimited.
	FetchRate float64

	// Retry is applied to every collaborator call.
	Retry breaker.Policy

	// Breaker guards collaborator calls across the whole batch.
	Breaker breaker.Config

	// Diff controls diff image rendering.
	Diff snapshot.RenderOptions

	// Logger receives per-item logs. Nil disables logging.
	Logger *zap.Logger

	// Now overrides the report clock (tests).
	Now func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers: 4,
		Retry:   breaker.DefaultPolicy(),
		Breaker: breaker.DefaultConfig(),
	}
}

// Runner compares manifest batches.
type Runner struct {
	source  Source
	sink    Sink
	differ  *snapshot.Differ
	limiter *rate.Limiter
	breaker *breaker.Breaker
	retry   breaker.Policy
	workers int
	logger  *zap.Logger
	now     func() time.Time
}

// NewRunner creates a runner reading from source and writing diffs to sink.
func NewRunner(source Source, sink Sink, config Config) *Runner {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	limit, burst := rate.Inf, 1
	if config.FetchRate > 0 {
		limit = rate.Limit(config.FetchRate)
		burst = max(1, int(config.FetchRate))
	}

	return &Runner{
		source:  source,
		sink:    sink,
		differ:  snapshot.NewDiffer(config.Diff),
		limiter: rate.NewLimiter(limit, burst),
		breaker: breaker.New(config.Breaker),
		retry:   config.Retry,
		workers: config.Workers,
		logger:  config.Logger,
		now:     config.Now,
	}
}

// Breaker exposes the runner's circuit breaker.
func (r *Runner) Breaker() *breaker.Breaker { return r.breaker }

// Run compares every screenshot of m. Results keep manifest order. When
// the breaker opened mid-run the partial report is returned together with
// ErrCircuitOpen; when ctx is cancelled, with ctx.Err().
func (r *Runner) Run(ctx context.Context, m *manifest.Manifest) (*report.Report, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	items := m.Items()
	results := make([]report.Result, len(items))
	var skipped atomic.Int32

	r.logger.Info("regression run started",
		zap.String("batch_id", m.BatchID),
		zap.Int("screenshots", len(items)),
		zap.Int("workers", r.workers))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.workers)
	for i, item := range items {
		eg.Go(func() error {
			res, open := r.process(egCtx, m.BatchID, item)
			results[i] = res
			if open {
				skipped.Add(1)
			}
			return nil
		})
	}
	_ = eg.Wait()

	rep := report.Build(m.BatchID, r.now(), results)
	r.logger.Info("regression run finished",
		zap.String("batch_id", m.BatchID),
		zap.Int("passed", rep.Summary.Passed),
		zap.Int("review", rep.Summary.Review),
		zap.Int("failed", rep.Summary.Failed),
		zap.Int("errored", rep.Summary.Errored))

	if err := ctx.Err(); err != nil {
		return rep, err
	}
	if n := skipped.Load(); n > 0 {
		r.logger.Warn("circuit breaker opened, screenshots skipped", zap.Int32("skipped", n))
		return rep, ErrCircuitOpen
	}
	return rep, nil
}

// process compares one screenshot. The bool reports a breaker skip.
func (r *Runner) process(ctx context.Context, batchID string, item manifest.Item) (report.Result, bool) {
	currentKey := snapshot.CurrentKey(item.Scenario, item.Filename)
	baselineKey := snapshot.BaselineKey(item.Scenario, item.Filename)
	res := report.Result{
		ScreenshotPath:     currentKey,
		BaselinePath:       baselineKey,
		CFNTemplateVersion: item.CFNTemplateVersion,
	}
	log := r.logger.With(zap.String("scenario", item.Scenario), zap.String("file", item.Filename))

	fail := func(err error) (report.Result, bool) {
		if errors.Is(err, breaker.ErrOpen) {
			res.Outcome = report.Errored{Err: ErrCircuitOpen.Error()}
			log.Debug("skipped, circuit open")
			return res, true
		}
		res.Outcome = report.Errored{Err: err.Error()}
		log.Warn("comparison failed", zap.Error(err))
		return res, false
	}

	var currentData, baselineData []byte
	err := r.call(ctx, func(ctx context.Context) (err error) {
		currentData, err = r.source.Current(ctx, item.Scenario, item.Filename)
		return err
	})
	if err != nil {
		return fail(fmt.Errorf("fetch current: %w", err))
	}

	err = r.call(ctx, func(ctx context.Context) (err error) {
		baselineData, err = r.source.Baseline(ctx, item.Scenario, item.Filename)
		return err
	})
	if errors.Is(err, snapshot.ErrNotFound) {
		res.BaselinePath = baselineKey + " (not found)"
		res.Outcome = report.MissingBaseline{}
		log.Info("no baseline, flagged for review")
		return res, false
	}
	if err != nil {
		return fail(fmt.Errorf("fetch baseline: %w", err))
	}

	current, err := snapshot.Decode(currentData)
	if err != nil {
		return fail(fmt.Errorf("current: %w", err))
	}
	baseline, err := snapshot.Decode(baselineData)
	if err != nil {
		return fail(fmt.Errorf("baseline: %w", err))
	}

	cmp, err := r.differ.Compare(baseline, current)
	if err != nil {
		return fail(err)
	}

	var diffPath string
	if cmp.Verdict() != snapshot.VerdictPass {
		key := snapshot.DiffKey(batchID, item.Scenario, item.Filename)
		err = r.call(ctx, func(ctx context.Context) (err error) {
			diffPath, err = r.sink.PutDiff(ctx, key, cmp.DiffImage)
			return err
		})
		if err != nil {
			return fail(fmt.Errorf("store diff: %w", err))
		}
	}

	res.Outcome, err = report.Classified(cmp.DiffPercentage, diffPath)
	if err != nil {
		return fail(err)
	}
	log.Info("compared screenshot",
		zap.String("verdict", string(res.Status())),
		zap.Float64("diff_percentage", cmp.DiffPercentage))
	return res, false
}

// call runs fn rate limited, retried and guarded by the breaker. A missing
// object is a valid answer and is neither retried nor counted as failure.
func (r *Runner) call(ctx context.Context, fn func(context.Context) error) error {
	return breaker.Retry(ctx, r.retry, func(ctx context.Context) error {
		if err := r.limiter.Wait(ctx); err != nil {
			return breaker.Permanent(err)
		}
		if err := r.breaker.Allow(); err != nil {
			return breaker.Permanent(err)
		}

		err := fn(ctx)
		missing := errors.Is(err, snapshot.ErrNotFound)
		cancelled := ctx.Err() != nil
		r.breaker.Record(err == nil || missing || cancelled)
		if missing || cancelled {
			return breaker.Permanent(err)
		}
		return err
	})
}
