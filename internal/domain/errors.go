package domain

import "errors"

var (
	// ErrMalformedInput marks a raw batch that is structurally
	// incompatible with RawPayload. Batch-fatal in the normalizer.
	ErrMalformedInput = errors.New("malformed input")

	// ErrModelInference marks a per-article scoring failure. The scoring
	// engine drops the article and counts it; never batch-fatal.
	ErrModelInference = errors.New("model inference failed")

	// ErrUpstreamUnavailable marks a failed upstream news fetch.
	ErrUpstreamUnavailable = errors.New("upstream news source unavailable")

	// ErrUpstreamRateLimited marks an upstream quota rejection.
	ErrUpstreamRateLimited = errors.New("upstream rate limit exceeded")

	// ErrRateLimited is returned when the local call budget for the
	// upstream provider is exhausted. Retryable after backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrFetchFailed is returned when a refresh fails and no stale entry
	// is servable.
	ErrFetchFailed = errors.New("fetch failed")
)
