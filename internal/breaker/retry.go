package breaker

import (
	"context"
	"errors"
	"time"
)

// Policy configures Retry.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// BackoffMin is the delay before the second try.
	BackoffMin time.Duration

	// BackoffMax caps the delay between tries.
	BackoffMax time.Duration

	// Multiplier grows the delay after each failed try.
	Multiplier float64
}

// DefaultPolicy returns sensible defaults.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		BackoffMin: 200 * time.Millisecond,
		BackoffMax: 5 * time.Second,
		Multiplier: 2,
	}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps an error that must not be retried.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Retry calls fn until it succeeds, returns a Permanent error, the
// attempts run out, or ctx is done. The last error is returned with any
// Permanent wrapper removed.
func Retry(ctx context.Context, p Policy, fn func(context.Context) error) error {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}

	delay := p.BackoffMin
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt >= p.Attempts {
			return err
		}

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(err, ctx.Err())
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return errors.Join(err, ctx.Err())
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if p.BackoffMax > 0 && delay > p.BackoffMax {
			delay = p.BackoffMax
		}
	}
}
