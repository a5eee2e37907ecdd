package app

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Srujanx/financial-sentiment-dashboard/internal/aggregate"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/cache"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/domain"
	apperrors "github.com/Srujanx/financial-sentiment-dashboard/internal/errors"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/normalizer"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/ratelimit"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/scoring"
)

const (
	maxAnalyzeTextLen = 5000
	maxAnalyzeBatch   = 50
)

var tickerPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

// Service is the application layer — the only component that references
// multiple engine packages. It orchestrates the query use cases.
type Service struct {
	source    domain.NewsSource
	scorer    domain.Scorer
	norm      *normalizer.Normalizer
	engine    *scoring.Engine
	cache     *cache.Cache
	limiter   *ratelimit.Limiter
	allowlist map[string]struct{}

	bucketWidth      time.Duration
	trendBucketWidth time.Duration
}

// Options bundles the façade's tuning knobs.
type Options struct {
	// BucketWidth is the cache bucket width; windows are covered by
	// whole buckets of this size.
	BucketWidth time.Duration
	// TrendBucketWidth is the sub-interval width of the trend series.
	TrendBucketWidth time.Duration
	// AllowedTickers optionally restricts queries to a fixed set.
	// Empty means any well-formed ticker.
	AllowedTickers []string
}

func NewService(
	source domain.NewsSource,
	scorer domain.Scorer,
	norm *normalizer.Normalizer,
	engine *scoring.Engine,
	store *cache.Cache,
	limiter *ratelimit.Limiter,
	opts Options,
) *Service {
	var allowlist map[string]struct{}
	if len(opts.AllowedTickers) > 0 {
		allowlist = make(map[string]struct{}, len(opts.AllowedTickers))
		for _, t := range opts.AllowedTickers {
			allowlist[strings.ToUpper(t)] = struct{}{}
		}
	}

	return &Service{
		source:           source,
		scorer:           scorer,
		norm:             norm,
		engine:           engine,
		cache:            store,
		limiter:          limiter,
		allowlist:        allowlist,
		bucketWidth:      opts.BucketWidth,
		trendBucketWidth: opts.TrendBucketWidth,
	}
}

// GetSentiment returns the aggregated sentiment view for a ticker over a
// window. Buckets covering the window are resolved concurrently; when
// some buckets fail and others succeed the result is marked Partial, and
// when any bucket was served past its TTL it is marked Stale. Only when
// every bucket fails does the call return an error.
func (s *Service) GetSentiment(ctx context.Context, ticker string, window domain.Window) (*domain.AggregateResult, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	merged, partial, stale, err := s.resolveWindow(ctx, ticker, window)
	if err != nil {
		return nil, err
	}

	result := aggregate.Compute(merged, ticker, window, s.trendBucketWidth)
	result.Partial = partial
	result.Stale = stale
	return &result, nil
}

// NewsResult is the scored article feed for a ticker/window.
type NewsResult struct {
	Ticker   string                 `json:"ticker"`
	Window   domain.Window          `json:"window"`
	Articles []domain.ScoredArticle `json:"articles"`
	Partial  bool                   `json:"partial,omitempty"`
	Stale    bool                   `json:"stale,omitempty"`
}

// GetNews returns the scored articles for a ticker over a window, newest
// first, with the same partial/stale semantics as GetSentiment.
func (s *Service) GetNews(ctx context.Context, ticker string, window domain.Window) (*NewsResult, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	merged, partial, stale, err := s.resolveWindow(ctx, ticker, window)
	if err != nil {
		return nil, err
	}

	articles := make([]domain.ScoredArticle, 0, len(merged))
	for _, a := range merged {
		if window.Contains(a.Article.PublishedAt) {
			articles = append(articles, a)
		}
	}
	sort.Slice(articles, func(i, j int) bool {
		return articles[i].Article.PublishedAt.After(articles[j].Article.PublishedAt)
	})

	return &NewsResult{
		Ticker:   ticker,
		Window:   window,
		Articles: articles,
		Partial:  partial,
		Stale:    stale,
	}, nil
}

// resolveWindow fans out over the cache buckets covering the window and
// merges their articles. It fails only when every bucket does.
func (s *Service) resolveWindow(ctx context.Context, ticker string, window domain.Window) ([]domain.ScoredArticle, bool, bool, error) {
	if err := s.validateTicker(ticker); err != nil {
		return nil, false, false, err
	}
	if !window.End.After(window.Start) {
		return nil, false, false, apperrors.ValidationError("window end must be after window start")
	}

	keys := cache.BucketKeys(ticker, window, s.bucketWidth)

	var (
		mu      sync.Mutex
		merged  []domain.ScoredArticle
		stale   bool
		failed  int
		lastErr error
	)

	// No shared context: a failing bucket must not cancel its siblings.
	var g errgroup.Group
	for _, key := range keys {
		g.Go(func() error {
			entry, err := s.cache.GetOrCompute(ctx, key, s.computeBucket(key))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("Bucket resolution failed",
					"ticker", key.Ticker,
					"bucket", key.Bucket,
					"error", err,
				)
				failed++
				lastErr = err
				return nil
			}
			merged = append(merged, entry.Articles...)
			stale = stale || entry.Stale
			return nil
		})
	}
	_ = g.Wait()

	if failed == len(keys) {
		return nil, false, false, lastErr
	}
	return merged, failed > 0, stale, nil
}

// computeBucket builds the miss path for one cache key: acquire the
// upstream call budget, fetch, normalize, score.
func (s *Service) computeBucket(key cache.Key) cache.ComputeFn {
	bucketWindow := domain.Window{
		Start: key.Bucket,
		End:   key.Bucket.Add(s.bucketWidth),
	}

	return func(ctx context.Context) ([]domain.ScoredArticle, error) {
		if err := s.limiter.Acquire(ctx); err != nil {
			return nil, err
		}

		raw, err := s.source.Fetch(ctx, key.Ticker, bucketWindow)
		if err != nil {
			return nil, err
		}

		normed, err := s.norm.Normalize(raw)
		if err != nil {
			return nil, err
		}

		return s.engine.Score(ctx, normed.Articles)
	}
}

// AnalyzeText scores one ad-hoc text without touching the cache.
func (s *Service) AnalyzeText(ctx context.Context, text string) (domain.SentimentScore, error) {
	if err := validateAnalyzeText(text); err != nil {
		return domain.SentimentScore{}, err
	}

	label, confidence, err := s.scorer.Classify(ctx, text)
	if err != nil {
		return domain.SentimentScore{}, err
	}
	return domain.SentimentScore{Label: label, Confidence: confidence}, nil
}

// BatchResult is the per-text outcome of AnalyzeBatch. Score is nil when
// that text failed to classify; Error then carries the reason.
type BatchResult struct {
	Score *domain.SentimentScore `json:"score,omitempty"`
	Error string                 `json:"error,omitempty"`
}

// AnalyzeBatch scores up to maxAnalyzeBatch texts. Validation failures
// fail the whole batch; per-text inference failures are reported in
// place so one bad text does not void the rest.
func (s *Service) AnalyzeBatch(ctx context.Context, texts []string) ([]BatchResult, error) {
	if len(texts) == 0 {
		return nil, apperrors.ValidationError("batch must contain at least one text")
	}
	if len(texts) > maxAnalyzeBatch {
		return nil, apperrors.ValidationError("batch exceeds maximum size").
			WithContext("max", maxAnalyzeBatch).
			WithContext("got", len(texts))
	}
	for _, text := range texts {
		if err := validateAnalyzeText(text); err != nil {
			return nil, err
		}
	}

	results := make([]BatchResult, len(texts))
	for i, text := range texts {
		label, confidence, err := s.scorer.Classify(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			results[i] = BatchResult{Error: err.Error()}
			continue
		}
		results[i] = BatchResult{Score: &domain.SentimentScore{Label: label, Confidence: confidence}}
	}
	return results, nil
}

// Health reports the operational snapshot for readiness probes.
func (s *Service) Health(_ context.Context) domain.Health {
	return domain.Health{
		CacheSize:           s.cache.Size(),
		RateLimiterTokens:   s.limiter.TokensAvailable(),
		LastSuccessfulFetch: s.cache.LastSuccessfulFetch(),
	}
}

func (s *Service) validateTicker(ticker string) error {
	if !tickerPattern.MatchString(ticker) {
		return apperrors.ValidationError("ticker must be 1-5 uppercase letters").
			WithContext("ticker", ticker)
	}
	if s.allowlist != nil {
		if _, ok := s.allowlist[ticker]; !ok {
			return apperrors.NotFoundError("ticker is not tracked").
				WithContext("ticker", ticker)
		}
	}
	return nil
}

func validateAnalyzeText(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperrors.ValidationError("text must not be blank")
	}
	if len(text) > maxAnalyzeTextLen {
		return apperrors.ValidationError("text exceeds maximum length").
			WithContext("max", maxAnalyzeTextLen).
			WithContext("got", len(text))
	}
	return nil
}
