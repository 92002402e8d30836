package breaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestBreaker_StartsClosed(t *testing.T) {
	b := New(DefaultConfig())
	assert.Equal(t, StateClosed, b.State())
	assert.NoError(t, b.Allow())
	assert.Equal(t, Stats{State: StateClosed}, b.Stats())
}

func TestBreaker_TripsAboveThreshold(t *testing.T) {
	b := New(Config{Threshold: 0.5, MinRequests: 4, Window: 10})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State(), "below MinRequests the rate is not evaluated")

	b.RecordSuccess()
	// 3/4 = 0.75 > 0.5
	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Allow(), ErrOpen)
	assert.True(t, b.IsOpen())
}

func TestBreaker_RateAtThresholdStaysClosed(t *testing.T) {
	b := New(Config{Threshold: 0.5, MinRequests: 2, Window: 10})

	b.RecordFailure()
	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State(), "exactly half is not above the threshold")

	stats := b.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Failures)
	assert.Equal(t, 0.5, stats.Rate)
}

func TestBreaker_RollingWindow(t *testing.T) {
	b := New(Config{Threshold: 0.5, MinRequests: 4, Window: 4})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())

	// Old failures fall out of the window
	b.RecordSuccess()
	b.RecordSuccess()
	stats := b.Stats()
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 0, stats.Failures)
}

func TestBreaker_StaysOpenWithoutCooldown(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	b := New(Config{Threshold: 0.1, MinRequests: 1, Window: 5, Now: clock.Now})

	b.RecordFailure()
	clock.Advance(time.Hour)
	assert.ErrorIs(t, b.Allow(), ErrOpen)

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.NoError(t, b.Allow())
}

func TestBreaker_HalfOpen(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	b := New(Config{Threshold: 0.1, MinRequests: 1, Window: 5, Cooldown: time.Minute, Now: clock.Now})

	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Allow(), ErrOpen)

	clock.Advance(time.Minute)
	require.NoError(t, b.Allow(), "cooldown elapsed, one probe admitted")
	assert.Equal(t, StateHalfOpen, b.State())
	assert.ErrorIs(t, b.Allow(), ErrOpen, "second caller rejected while the probe is in flight")

	// Failed probe re-opens
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())

	clock.Advance(time.Minute)
	require.NoError(t, b.Allow())
	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.Stats().Total, "closing clears the window")
}

func TestBreaker_Concurrent(t *testing.T) {
	// A rate can never exceed 1, so interleaving cannot trip it
	b := New(Config{Threshold: 1, MinRequests: 10, Window: 100})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if b.Allow() == nil {
				b.Record(i%2 == 0)
			}
		}(i)
	}
	wg.Wait()

	stats := b.Stats()
	assert.Equal(t, 50, stats.Total)
	assert.Equal(t, 25, stats.Failures)
	assert.Equal(t, StateClosed, stats.State)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), Policy{Attempts: 3, BackoffMin: time.Millisecond, Multiplier: 2}, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	sentinel := errors.New("down")
	err := Retry(context.Background(), Policy{Attempts: 2}, func(context.Context) error {
		calls++
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 2, calls)
}

func TestRetry_Permanent(t *testing.T) {
	calls := 0
	sentinel := errors.New("not found")
	err := Retry(context.Background(), DefaultPolicy(), func(context.Context) error {
		calls++
		return Permanent(sentinel)
	})

	assert.Equal(t, sentinel, err)
	assert.False(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
	assert.Nil(t, Permanent(nil))
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, Policy{Attempts: 5, BackoffMin: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return errors.New("flaky")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
