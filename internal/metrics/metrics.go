// Package metrics defines the Prometheus collectors for the core engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache layer metrics
var (
	// CacheHits tracks fresh cache hits (no compute triggered)
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentiment_cache_hits_total",
			Help: "Total fresh cache hits",
		},
	)

	// CacheMisses tracks misses and expiries that triggered a compute
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentiment_cache_misses_total",
			Help: "Total cache misses (including expired entries)",
		},
	)

	// CacheStaleServed tracks entries served stale after a failed refresh
	CacheStaleServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentiment_cache_stale_served_total",
			Help: "Total stale entries served after a failed refresh",
		},
	)

	// CacheSharedLoads tracks callers that piggybacked on another
	// caller's in-flight compute instead of starting their own
	CacheSharedLoads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentiment_cache_shared_loads_total",
			Help: "Total calls that shared an in-flight compute",
		},
	)

	// CacheEvictions tracks entries purged by the retention sweep
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentiment_cache_evictions_total",
			Help: "Total entries evicted by the retention sweep",
		},
	)

	// CacheSize tracks the current number of cached entries
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentiment_cache_entries",
			Help: "Current number of cache entries",
		},
	)
)

// Upstream fetch metrics
var (
	// UpstreamFetchesTotal tracks upstream news fetches by status
	UpstreamFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_upstream_fetches_total",
			Help: "Total upstream news fetches by status",
		},
		[]string{"status"},
	)

	// UpstreamFetchDuration tracks upstream fetch latency in seconds
	UpstreamFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "news_upstream_fetch_duration_seconds",
			Help:    "Upstream news fetch duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// RateLimitRejections tracks local call-budget rejections
	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "news_rate_limit_rejections_total",
			Help: "Total fetches rejected by the local call budget",
		},
	)
)

// Scoring and normalization metrics
var (
	// ScoringFailures tracks per-article model failures (article dropped)
	ScoringFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentiment_scoring_failures_total",
			Help: "Total articles dropped due to model inference errors",
		},
	)

	// ScoredArticles tracks successfully scored articles
	ScoredArticles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentiment_scored_articles_total",
			Help: "Total articles successfully scored",
		},
	)

	// ScoringDuration tracks scoring latency per batch in seconds
	ScoringDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentiment_scoring_batch_duration_seconds",
			Help:    "Scoring duration per batch in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// NormalizerRejected tracks payloads dropped during normalization
	NormalizerRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "news_normalizer_rejected_total",
			Help: "Total raw payloads rejected during normalization",
		},
	)
)

// Circuit breaker metrics
var (
	// CircuitBreakerState tracks breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)

	// CircuitBreakerStateChanges tracks breaker transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by new state",
		},
		[]string{"component", "state"},
	)
)
