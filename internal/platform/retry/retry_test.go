package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Srujanx/financial-sentiment-dashboard/internal/platform/retry"
)

var fastPolicy = retry.Policy{
	MaxAttempts:      3,
	InitialBackoff:   1 * time.Millisecond,
	RateLimitBackoff: 5 * time.Millisecond,
}

func stopPolicy() retry.Policy {
	p := fastPolicy
	p.Classify = func(error) retry.Action { return retry.Stop }
	return p
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	_, err := retry.Do(context.Background(), fastPolicy, func() (struct{}, error) {
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	calls := 0
	val, err := retry.Do(context.Background(), fastPolicy, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if val != 42 {
		t.Fatalf("expected 42, got %d", val)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	_, err := retry.Do(context.Background(), stopPolicy(), func() (struct{}, error) {
		calls++
		return struct{}{}, permanent
	})
	var permErr *retry.PermanentError
	if !errors.As(err, &permErr) {
		t.Fatalf("expected PermanentError, got %T: %v", err, err)
	}
	if !errors.Is(err, permanent) {
		t.Fatalf("expected wrapped permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDo_ExhaustedRetries(t *testing.T) {
	transient := errors.New("transient")
	calls := 0
	_, err := retry.Do(context.Background(), fastPolicy, func() (struct{}, error) {
		calls++
		return struct{}{}, transient
	})
	if !errors.Is(err, transient) {
		t.Fatalf("expected wrapped transient error, got %v", err)
	}
	if calls != fastPolicy.MaxAttempts {
		t.Fatalf("expected %d calls, got %d", fastPolicy.MaxAttempts, calls)
	}
}

func TestDo_RateLimitedUsesLongerBackoff(t *testing.T) {
	p := fastPolicy
	p.Classify = func(error) retry.Action { return retry.After }

	var backoffs []time.Duration
	p.OnRetry = func(_ int, _ error, backoff time.Duration) {
		backoffs = append(backoffs, backoff)
	}

	_, _ = retry.Do(context.Background(), p, func() (struct{}, error) {
		return struct{}{}, errors.New("429")
	})

	if len(backoffs) != 2 {
		t.Fatalf("expected 2 retries, got %d", len(backoffs))
	}
	for _, b := range backoffs {
		if b < p.RateLimitBackoff {
			t.Fatalf("expected rate limit backoff >= %v, got %v", p.RateLimitBackoff, b)
		}
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := fastPolicy
	p.InitialBackoff = time.Minute

	_, err := retry.Do(ctx, p, func() (struct{}, error) {
		return struct{}{}, errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
