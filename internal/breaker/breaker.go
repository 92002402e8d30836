// Package breaker guards flaky collaborator calls with a circuit breaker
// and retry with exponential backoff.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Allow while the breaker is rejecting calls.
var ErrOpen = errors.New("circuit breaker open")

// State is the breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Config configures a Breaker.
type Config struct {
	// Threshold is the failure rate above which the breaker opens (0-1).
	Threshold float64

	// MinRequests is how many outcomes the window must hold before the
	// rate is evaluated.
	MinRequests int

	// Window is the number of most recent outcomes considered.
	Window int

	// Cooldown is how long the breaker stays open before letting a single
	// probe through. Zero keeps it open until Reset.
	Cooldown time.Duration

	// Now overrides the clock (tests).
	Now func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:   0.5,
		MinRequests: 4,
		Window:      20,
		Cooldown:    0,
	}
}

// Stats is a point-in-time view of the breaker.
type Stats struct {
	State    State
	Total    int
	Failures int
	Rate     float64
}

// Breaker is a closed / open / half-open state machine driven by the
// failure rate over a rolling window. Safe for concurrent use.
type Breaker struct {
	mu     sync.Mutex
	config Config

	state    State
	outcomes []bool // ring buffer, true = failure
	next     int
	filled   int
	failures int
	openedAt time.Time
	probing  bool
}

// New creates a breaker. Zero config fields fall back to defaults.
func New(config Config) *Breaker {
	def := DefaultConfig()
	if config.Threshold <= 0 {
		config.Threshold = def.Threshold
	}
	if config.Window <= 0 {
		config.Window = def.Window
	}
	if config.MinRequests <= 0 {
		config.MinRequests = 1
	}
	if config.MinRequests > config.Window {
		config.MinRequests = config.Window
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Breaker{
		config:   config,
		outcomes: make([]bool, config.Window),
	}
}

// Allow reports whether a call may proceed. In half-open state exactly one
// probe is admitted until its outcome is recorded.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.config.Cooldown <= 0 || b.config.Now().Sub(b.openedAt) < b.config.Cooldown {
			return ErrOpen
		}
		b.state = StateHalfOpen
		b.probing = true
		return nil
	case StateHalfOpen:
		if b.probing {
			return ErrOpen
		}
		b.probing = true
		return nil
	}
	return nil
}

// Record feeds the outcome of an admitted call.
func (b *Breaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.probing = false
		if success {
			b.state = StateClosed
			b.clear()
		} else {
			b.trip()
		}
		return
	case StateOpen:
		// Late result from a call admitted before the trip
		return
	}

	b.push(!success)
	if b.filled >= b.config.MinRequests && b.rate() > b.config.Threshold {
		b.trip()
	}
}

// RecordSuccess is Record(true).
func (b *Breaker) RecordSuccess() { b.Record(true) }

// RecordFailure is Record(false).
func (b *Breaker) RecordFailure() { b.Record(false) }

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsOpen reports whether calls are currently rejected outright.
func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// Stats returns the window statistics.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{State: b.state, Total: b.filled, Failures: b.failures, Rate: b.rate()}
}

// Reset closes the breaker and forgets all outcomes.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.probing = false
	b.clear()
}

func (b *Breaker) trip() {
	b.state = StateOpen
	b.openedAt = b.config.Now()
}

func (b *Breaker) push(failure bool) {
	if b.filled == len(b.outcomes) {
		if b.outcomes[b.next] {
			b.failures--
		}
	} else {
		b.filled++
	}
	b.outcomes[b.next] = failure
	if failure {
		b.failures++
	}
	b.next = (b.next + 1) % len(b.outcomes)
}

func (b *Breaker) clear() {
	for i := range b.outcomes {
		b.outcomes[i] = false
	}
	b.next, b.filled, b.failures = 0, 0, 0
}

func (b *Breaker) rate() float64 {
	if b.filled == 0 {
		return 0
	}
	return float64(b.failures) / float64(b.filled)
}
