package domain

import (
	"context"
	"time"
)

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// NewsSource is the upstream news provider collaborator. Returned
// payloads carry no ordering guarantee.
type NewsSource interface {
	Fetch(ctx context.Context, ticker string, window Window) ([]RawPayload, error)
}

// Health is the operational snapshot exposed by the query façade.
type Health struct {
	CacheSize           int       `json:"cache_size"`
	RateLimiterTokens   float64   `json:"rate_limiter_tokens_available"`
	LastSuccessfulFetch time.Time `json:"last_successful_fetch"`
}
