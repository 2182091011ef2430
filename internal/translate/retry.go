package translate

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy defines how many times a failed call is attempted and how long
// to wait before the next attempt.
type RetryPolicy struct {
	MaxAttempts int
	// Backoff returns the wait after the given failed attempt (1-based).
	Backoff func(attempt int) time.Duration
}

// LinearBackoff waits base * attempt.
func LinearBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * base
	}
}

// DefaultRetryPolicy makes 3 attempts waiting 500ms, then 1s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: LinearBackoff(500 * time.Millisecond)}
}

// NoDelay returns a policy with the given attempts and no waiting.
func NoDelay(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts}
}

// GetRetryDelay returns the wait after a failed attempt.
func (rp RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if rp.Backoff == nil || attempt < 1 {
		return 0
	}
	return rp.Backoff(attempt)
}

// Do runs fn until it succeeds or attempts run out. The last error is
// returned; a done context stops retrying early.
func (rp RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := max(rp.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				return err
			}
			return fmt.Errorf("%w (after: %v)", err, lastErr)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", attempt, attempts, err)

		if attempt < attempts {
			if delay := rp.GetRetryDelay(attempt); delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return fmt.Errorf("%w (after: %v)", ctx.Err(), lastErr)
				case <-timer.C:
				}
			}
		}
	}
	return lastErr
}
