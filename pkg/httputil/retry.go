package httputil

import (
	"context"
	"errors"
	"time"
)

// MaxDelay caps the wait between two attempts, including server-requested
// Retry-After waits.
const MaxDelay = 10 * time.Second

// RetryableError marks a transient failure for [Retry]. After, when
// positive, replaces the backoff before the next attempt.
type RetryableError struct {
	Err   error
	After time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry runs fn up to attempts times. Only [RetryableError] failures are
// retried; the backoff starts at delay and doubles, bounded by MaxDelay.
// The last error is returned once attempts run out, ctx.Err() on cancel.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		lastErr = fn()
		var re *RetryableError
		if lastErr == nil || !errors.As(lastErr, &re) {
			return lastErr
		}
		if i == attempts-1 {
			break
		}

		wait := delay
		if re.After > 0 {
			wait = re.After
		}
		t := time.NewTimer(min(wait, MaxDelay))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay = min(delay*2, MaxDelay)
	}
	return lastErr
}
