package resilience

import (
	"context"
	"errors"
	"math/rand"
	"time"

	apperrors "github.com/kbukum/cmdflow/errors"
)

// Policy controls how a failing command is re-run. Zero fields take the
// values of DefaultPolicy.
type Policy struct {
	// Attempts is the total number of runs, the first one included.
	Attempts int
	// Backoff is the wait after the first failure. Each later wait is
	// Factor times longer, up to MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration
	Factor     float64
	// Jitter spreads each wait by up to this fraction in both directions.
	Jitter float64
	// Retryable reports whether a failure is worth another run.
	Retryable func(error) bool
	// OnRetry is called after a failed attempt, before waiting.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultPolicy runs a command up to three times.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		Backoff:    100 * time.Millisecond,
		MaxBackoff: 10 * time.Second,
		Factor:     2,
		Jitter:     0.1,
		Retryable:  Retryable,
	}
}

// Retries returns the default policy with n runs after the first.
func Retries(n int) Policy {
	p := DefaultPolicy()
	p.Attempts = n + 1
	return p
}

// Retryable never retries cancellation. An AppError is retried only when it
// is marked retryable; any other error is retried.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Retryable
	}
	return true
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.Attempts <= 0 {
		p.Attempts = d.Attempts
	}
	if p.Backoff <= 0 {
		p.Backoff = d.Backoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = d.MaxBackoff
	}
	if p.Factor <= 0 {
		p.Factor = d.Factor
	}
	if p.Retryable == nil {
		p.Retryable = d.Retryable
	}
	return p
}

// Wait returns the delay after failed attempt n, counting from 1.
func (p Policy) Wait(n int) time.Duration {
	p = p.withDefaults()
	wait := float64(p.Backoff)
	for i := 1; i < n && wait < float64(p.MaxBackoff); i++ {
		wait *= p.Factor
	}
	if p.Jitter > 0 {
		wait += wait * p.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(min(max(wait, 0), float64(p.MaxBackoff)))
}

// Retry calls fn until it succeeds, fails with an error Retryable rejects, or
// runs out of attempts. fn receives the attempt number, counting from 1.
//
// When every attempt fails, the last error is returned; an AppError also
// gets an "attempts" detail. A done ctx stops the loop with ctx.Err().
func Retry[T any](ctx context.Context, p Policy, fn func(attempt int) (T, error)) (T, error) {
	var zero T
	p = p.withDefaults()

	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := fn(n)
		if err == nil {
			return result, nil
		}
		if !p.Retryable(err) {
			return zero, err
		}
		if n == p.Attempts {
			if appErr, ok := apperrors.AsAppError(err); ok {
				appErr.WithDetail("attempts", n)
			}
			return zero, err
		}

		wait := p.Wait(n)
		if p.OnRetry != nil {
			p.OnRetry(n, err, wait)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
