package app

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Srujanx/financial-sentiment-dashboard/internal/cache"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/domain"
	apperrors "github.com/Srujanx/financial-sentiment-dashboard/internal/errors"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/normalizer"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/ratelimit"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/scoring"
)

var (
	day1 = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	day2 = day1.Add(24 * time.Hour)
	day3 = day1.Add(48 * time.Hour)
)

type fakeSource struct {
	mu    sync.Mutex
	calls atomic.Int32
	fn    func(ticker string, window domain.Window) ([]domain.RawPayload, error)
}

func (f *fakeSource) Fetch(_ context.Context, ticker string, window domain.Window) ([]domain.RawPayload, error) {
	f.calls.Add(1)
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	return fn(ticker, window)
}

func (f *fakeSource) setFn(fn func(string, domain.Window) ([]domain.RawPayload, error)) {
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
}

// fakeScorer reads the label out of the text itself, so tests control
// sentiment through article titles.
type fakeScorer struct{}

func (fakeScorer) Classify(_ context.Context, text string) (domain.Label, float64, error) {
	switch {
	case strings.Contains(text, "surge"):
		return domain.LabelPositive, 0.9, nil
	case strings.Contains(text, "plunge"):
		return domain.LabelNegative, 0.8, nil
	case strings.Contains(text, "broken"):
		return "", 0, domain.ErrModelInference
	default:
		return domain.LabelNeutral, 0.7, nil
	}
}

func payload(title, url string, published time.Time) domain.RawPayload {
	return domain.RawPayload{
		Title:         title,
		Summary:       "summary",
		URL:           url,
		Source:        "wire",
		TimePublished: published,
		Relevance:     0.9,
	}
}

func day1Payloads() []domain.RawPayload {
	return []domain.RawPayload{
		payload("AAPL shares surge", "https://example.com/1", day1.Add(9*time.Hour)),
		payload("AAPL shares plunge", "https://example.com/2", day1.Add(12*time.Hour)),
		payload("AAPL holds steady", "https://example.com/3", day1.Add(15*time.Hour)),
	}
}

type fixture struct {
	service *Service
	source  *fakeSource
	clock   *clockwork.FakeClock
	cache   *cache.Cache
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	source := &fakeSource{}
	source.setFn(func(string, domain.Window) ([]domain.RawPayload, error) {
		return day1Payloads(), nil
	})

	clock := clockwork.NewFakeClock()
	store := cache.New(time.Hour, 24*time.Hour, 72*time.Hour, clock)
	engine := scoring.NewEngine(fakeScorer{}, clock)
	limiter := ratelimit.New(1000, 1000, time.Second)

	if opts.BucketWidth == 0 {
		opts.BucketWidth = 24 * time.Hour
	}
	if opts.TrendBucketWidth == 0 {
		opts.TrendBucketWidth = time.Hour
	}

	return &fixture{
		service: NewService(source, fakeScorer{}, normalizer.New(0.4), engine, store, limiter, opts),
		source:  source,
		clock:   clock,
		cache:   store,
	}
}

func TestGetSentimentColdCache(t *testing.T) {
	f := newFixture(t, Options{})

	result, err := f.service.GetSentiment(context.Background(), "AAPL", domain.Window{Start: day1, End: day2})
	require.NoError(t, err)

	assert.Equal(t, "AAPL", result.Ticker)
	assert.Equal(t, domain.Distribution{Positive: 1, Negative: 1, Neutral: 1}, result.Distribution)
	// (1*0.9 + -1*0.8 + 0*0.7) / 3
	assert.InDelta(t, 0.0333, result.MeanScore, 0.001)
	assert.Len(t, result.TrendSeries, 24)
	assert.False(t, result.Partial)
	assert.False(t, result.Stale)
	assert.Equal(t, int32(1), f.source.calls.Load())
}

func TestGetSentimentWarmCacheSkipsFetch(t *testing.T) {
	f := newFixture(t, Options{})
	window := domain.Window{Start: day1, End: day2}

	_, err := f.service.GetSentiment(context.Background(), "AAPL", window)
	require.NoError(t, err)
	_, err = f.service.GetSentiment(context.Background(), "AAPL", window)
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.source.calls.Load())
}

func TestGetSentimentConcurrentCallsShareOneFetch(t *testing.T) {
	f := newFixture(t, Options{})
	f.source.setFn(func(string, domain.Window) ([]domain.RawPayload, error) {
		time.Sleep(20 * time.Millisecond)
		return day1Payloads(), nil
	})
	window := domain.Window{Start: day1, End: day2}

	var wg sync.WaitGroup
	results := make([]*domain.AggregateResult, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.service.GetSentiment(context.Background(), "AAPL", window)
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0].Distribution, results[1].Distribution)
	assert.Equal(t, int32(1), f.source.calls.Load(), "concurrent cold reads collapse to one fetch")
}

func TestGetSentimentPartialDegradation(t *testing.T) {
	f := newFixture(t, Options{})
	f.source.setFn(func(_ string, window domain.Window) ([]domain.RawPayload, error) {
		if window.Start.Equal(day2) {
			return nil, domain.ErrUpstreamUnavailable
		}
		return day1Payloads(), nil
	})

	result, err := f.service.GetSentiment(context.Background(), "AAPL", domain.Window{Start: day1, End: day3})
	require.NoError(t, err)

	assert.True(t, result.Partial)
	assert.Equal(t, 3, result.Distribution.Total(), "articles from the surviving bucket")
	assert.Len(t, result.TrendSeries, 48, "trend still spans the full window")
}

func TestGetSentimentAllBucketsFailed(t *testing.T) {
	f := newFixture(t, Options{})
	f.source.setFn(func(string, domain.Window) ([]domain.RawPayload, error) {
		return nil, domain.ErrUpstreamUnavailable
	})

	_, err := f.service.GetSentiment(context.Background(), "AAPL", domain.Window{Start: day1, End: day2})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetchFailed)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestGetSentimentServesStaleWhenUpstreamDown(t *testing.T) {
	f := newFixture(t, Options{})
	window := domain.Window{Start: day1, End: day2}

	warm, err := f.service.GetSentiment(context.Background(), "AAPL", window)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	f.source.setFn(func(string, domain.Window) ([]domain.RawPayload, error) {
		return nil, domain.ErrUpstreamUnavailable
	})

	result, err := f.service.GetSentiment(context.Background(), "AAPL", window)
	require.NoError(t, err)
	assert.True(t, result.Stale)
	assert.Equal(t, warm.Distribution, result.Distribution)
}

func TestGetNewsSortedNewestFirst(t *testing.T) {
	f := newFixture(t, Options{})

	result, err := f.service.GetNews(context.Background(), "AAPL", domain.Window{Start: day1, End: day2})
	require.NoError(t, err)
	require.Len(t, result.Articles, 3)

	assert.Equal(t, "AAPL holds steady", result.Articles[0].Article.Title)
	assert.Equal(t, "AAPL shares plunge", result.Articles[1].Article.Title)
	assert.Equal(t, "AAPL shares surge", result.Articles[2].Article.Title)
	assert.Equal(t, domain.LabelNegative, result.Articles[1].Score.Label)
	assert.False(t, result.Partial)
}

func TestGetNewsExcludesArticlesOutsideWindow(t *testing.T) {
	f := newFixture(t, Options{})

	// Narrow window inside the bucket: only the 09:00 article qualifies.
	window := domain.Window{Start: day1.Add(8 * time.Hour), End: day1.Add(10 * time.Hour)}
	result, err := f.service.GetNews(context.Background(), "AAPL", window)
	require.NoError(t, err)
	require.Len(t, result.Articles, 1)
	assert.Equal(t, "AAPL shares surge", result.Articles[0].Article.Title)
}

func TestGetSentimentTickerValidation(t *testing.T) {
	f := newFixture(t, Options{})
	window := domain.Window{Start: day1, End: day2}

	_, err := f.service.GetSentiment(context.Background(), "TOOLONG1", window)
	requireErrorType(t, err, apperrors.TypeValidation)

	_, err = f.service.GetSentiment(context.Background(), "", window)
	requireErrorType(t, err, apperrors.TypeValidation)

	// Lowercase input is accepted and canonicalized.
	result, err := f.service.GetSentiment(context.Background(), "aapl", window)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", result.Ticker)
}

func TestGetSentimentAllowlist(t *testing.T) {
	f := newFixture(t, Options{AllowedTickers: []string{"MSFT"}})
	window := domain.Window{Start: day1, End: day2}

	_, err := f.service.GetSentiment(context.Background(), "AAPL", window)
	requireErrorType(t, err, apperrors.TypeNotFound)

	_, err = f.service.GetSentiment(context.Background(), "MSFT", window)
	require.NoError(t, err)
}

func TestGetSentimentInvalidWindow(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.service.GetSentiment(context.Background(), "AAPL", domain.Window{Start: day2, End: day1})
	requireErrorType(t, err, apperrors.TypeValidation)
}

func TestAnalyzeText(t *testing.T) {
	f := newFixture(t, Options{})

	score, err := f.service.AnalyzeText(context.Background(), "markets surge on earnings")
	require.NoError(t, err)
	assert.Equal(t, domain.LabelPositive, score.Label)
	assert.InDelta(t, 0.9, score.Confidence, 1e-9)

	_, err = f.service.AnalyzeText(context.Background(), "   ")
	requireErrorType(t, err, apperrors.TypeValidation)

	_, err = f.service.AnalyzeText(context.Background(), strings.Repeat("x", maxAnalyzeTextLen+1))
	requireErrorType(t, err, apperrors.TypeValidation)

	_, err = f.service.AnalyzeText(context.Background(), "broken text")
	assert.ErrorIs(t, err, domain.ErrModelInference)
}

func TestAnalyzeBatch(t *testing.T) {
	f := newFixture(t, Options{})

	results, err := f.service.AnalyzeBatch(context.Background(), []string{
		"markets surge",
		"broken text",
		"quiet session",
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.NotNil(t, results[0].Score)
	assert.Equal(t, domain.LabelPositive, results[0].Score.Label)

	assert.Nil(t, results[1].Score, "failed text reported in place")
	assert.NotEmpty(t, results[1].Error)

	require.NotNil(t, results[2].Score)
	assert.Equal(t, domain.LabelNeutral, results[2].Score.Label)
}

func TestAnalyzeBatchValidation(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.service.AnalyzeBatch(context.Background(), nil)
	requireErrorType(t, err, apperrors.TypeValidation)

	_, err = f.service.AnalyzeBatch(context.Background(), make([]string, maxAnalyzeBatch+1))
	requireErrorType(t, err, apperrors.TypeValidation)

	_, err = f.service.AnalyzeBatch(context.Background(), []string{"ok", ""})
	requireErrorType(t, err, apperrors.TypeValidation)
}

func TestHealthSnapshot(t *testing.T) {
	f := newFixture(t, Options{})

	health := f.service.Health(context.Background())
	assert.Equal(t, 0, health.CacheSize)
	assert.True(t, health.LastSuccessfulFetch.IsZero())

	_, err := f.service.GetSentiment(context.Background(), "AAPL", domain.Window{Start: day1, End: day2})
	require.NoError(t, err)

	health = f.service.Health(context.Background())
	assert.Equal(t, 1, health.CacheSize)
	assert.False(t, health.LastSuccessfulFetch.IsZero())
	assert.Positive(t, health.RateLimiterTokens)
}

func requireErrorType(t *testing.T, err error, want apperrors.ErrorType) {
	t.Helper()
	require.Error(t, err)
	var structured *apperrors.Error
	require.ErrorAs(t, err, &structured)
	assert.Equal(t, want, structured.Type)
}
