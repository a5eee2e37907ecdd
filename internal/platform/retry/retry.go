// Package retry runs operations with classified exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Action is the retry decision for a failed attempt.
type Action int

const (
	Stop  Action = iota // permanent error, abort immediately
	Retry               // transient error, use normal backoff
	After               // rate-limited, use longer backoff
)

// Classify maps an error to the action to take for it.
type Classify func(err error) Action

// Policy describes how an operation is retried.
type Policy struct {
	MaxAttempts      int
	InitialBackoff   time.Duration
	RateLimitBackoff time.Duration
	Classify         Classify
	OnRetry          func(attempt int, err error, backoff time.Duration)
}

type Operation[T any] func() (T, error)

// Do runs op under the policy. A Stop classification wraps the error in
// PermanentError and aborts; Retry doubles the backoff each attempt;
// After restarts backoff from the rate-limit floor.
func Do[T any](ctx context.Context, p Policy, op Operation[T]) (T, error) {
	classify := p.Classify
	if classify == nil {
		classify = func(error) Action { return Retry }
	}

	backoff := p.InitialBackoff
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		val, err := op()
		if err == nil {
			return val, nil
		}

		action := classify(err)
		if action == Stop {
			var zero T
			return zero, &PermanentError{Err: err}
		}

		if attempt == p.MaxAttempts {
			var zero T
			return zero, fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
		}

		if action == After {
			backoff = p.RateLimitBackoff
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, backoff)
		}

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			var zero T
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}

	panic("unreachable: MaxAttempts must be >= 1")
}

// PermanentError marks an error the classifier deemed not retryable.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }
