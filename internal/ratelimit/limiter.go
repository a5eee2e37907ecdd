// Package ratelimit bounds outbound calls to the upstream news provider
// with a token bucket matching the provider's documented quota.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/Srujanx/financial-sentiment-dashboard/internal/domain"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/metrics"
)

// Limiter wraps a token bucket of capacity C refilled at R tokens/second.
// It is shared exclusively by the fetch path behind cache misses and is
// never bypassed.
type Limiter struct {
	bucket      *rate.Limiter
	waitTimeout time.Duration
}

// New creates a limiter with the given refill rate, capacity, and the
// bounded wait used by interactive callers.
func New(refillPerSec float64, capacity int, waitTimeout time.Duration) *Limiter {
	return &Limiter{
		bucket:      rate.NewLimiter(rate.Limit(refillPerSec), capacity),
		waitTimeout: waitTimeout,
	}
}

// Acquire takes one token, waiting up to the configured timeout when the
// bucket is empty. Interactive query path. Exhaustion of the wait budget
// yields domain.ErrRateLimited.
func (l *Limiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.waitTimeout)
	defer cancel()

	if err := l.bucket.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("rate limiter wait: %w", ctx.Err())
		}
		metrics.RateLimitRejections.Inc()
		return fmt.Errorf("%w: upstream call budget exhausted", domain.ErrRateLimited)
	}
	return nil
}

// TryAcquire takes one token without waiting. Background refresh path.
func (l *Limiter) TryAcquire() error {
	if !l.bucket.Allow() {
		metrics.RateLimitRejections.Inc()
		return fmt.Errorf("%w: upstream call budget exhausted", domain.ErrRateLimited)
	}
	return nil
}

// TokensAvailable reports the tokens currently in the bucket.
func (l *Limiter) TokensAvailable() float64 {
	return l.bucket.Tokens()
}
