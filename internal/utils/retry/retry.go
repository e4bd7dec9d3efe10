// Package retry runs an operation a bounded number of times.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Backoff returns the wait before the next try, given the 1-based attempt that just failed.
type Backoff func(attempt int, base time.Duration) time.Duration

// Fixed waits base between every attempt.
func Fixed(_ int, base time.Duration) time.Duration { return base }

// Linear waits base multiplied by the failed attempt number.
func Linear(attempt int, base time.Duration) time.Duration {
	return base * time.Duration(attempt)
}

type Policy struct {
	Attempts int
	Delay    time.Duration
	Backoff  Backoff
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it succeeds, returns a permanent error, the attempts are
// exhausted or ctx is done. The last error is returned wrapped.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = Fixed
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(attempt, p.Delay)):
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
