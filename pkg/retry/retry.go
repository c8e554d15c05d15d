// Package retry implements the bounded exponential backoff policy applied
// to ledger mutations and downstream notifications.
package retry

import (
	"context"
	"errors"
	"time"
)

// DefaultMaxAttempts matches the provider-side retry budget: three tries
// before the failure is surfaced or swallowed, depending on the caller.
const DefaultMaxAttempts = 3

// Policy describes how many times an operation is attempted and how long to
// wait between attempts. The zero value is not usable; construct with
// Default or fill both fields.
type Policy struct {
	MaxAttempts int
	// Backoff returns the wait before retrying after the given attempt
	// (1-based). Nil means no wait.
	Backoff func(attempt int) time.Duration

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Default returns the standard policy: 3 attempts with 2^attempt seconds
// between them (2s, 4s).
func Default() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     ExponentialSeconds,
	}
}

// ExponentialSeconds waits 2^attempt seconds: 2s after the first failure,
// 4s after the second, and so on.
func ExponentialSeconds(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// permanentError marks a failure that another attempt cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do stops immediately and returns the wrapped
// error instead of burning the remaining attempts on it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn until it succeeds or the attempt budget is exhausted. The last
// error is returned. An error wrapped with Permanent stops the loop at
// once. Context cancellation interrupts a pending backoff and returns the
// context error.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		var pe *permanentError
		if errors.As(lastErr, &pe) {
			return pe.err
		}
		if attempt == p.MaxAttempts {
			break
		}
		if p.Backoff != nil {
			if err := sleep(ctx, p.Backoff(attempt)); err != nil {
				return err
			}
		}
	}
	return lastErr
}

// WithSleeper returns a copy of the policy using the given sleep function.
// Tests use it to observe backoff without waiting.
func (p Policy) WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Policy {
	p.sleep = sleep
	return p
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
