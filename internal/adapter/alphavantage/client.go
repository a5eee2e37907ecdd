// Package alphavantage implements the NewsSource collaborator on top of
// the Alpha Vantage NEWS_SENTIMENT endpoint.
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"github.com/Srujanx/financial-sentiment-dashboard/internal/domain"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/metrics"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/platform/retry"
)

const (
	requestTimeout = 10 * time.Second
	fetchLimit     = 50
	// Alpha Vantage timestamps look like 20250314T093000.
	timeLayout      = "20060102T150405"
	queryTimeLayout = "20060102T1504"
)

// Client fetches ticker news from Alpha Vantage. Calls are wrapped in a
// circuit breaker and a classified retry so a flapping upstream neither
// hammers the quota nor fails queries that a second attempt would serve.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	breaker    circuitbreaker.CircuitBreaker[any]
	policy     retry.Policy
}

var _ domain.NewsSource = (*Client)(nil)

func NewClient(baseURL, apiKey string) *Client {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(0.6, 5, 30*time.Second).
		WithDelay(time.Minute).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "alphavantage",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			metrics.CircuitBreakerStateChanges.WithLabelValues("alphavantage", e.NewState.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues("alphavantage").Set(stateToFloat(e.NewState))
		}).
		Build()

	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		breaker:    cb,
		policy: retry.Policy{
			MaxAttempts:      3,
			InitialBackoff:   500 * time.Millisecond,
			RateLimitBackoff: 5 * time.Second,
			Classify:         classifyFetchError,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				slog.Warn("Retrying upstream fetch", "attempt", attempt, "backoff", backoff, "error", err)
			},
		},
	}
}

func stateToFloat(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

func classifyFetchError(err error) retry.Action {
	switch {
	case errors.Is(err, domain.ErrUpstreamRateLimited):
		return retry.After
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return retry.Retry
	default:
		return retry.Stop
	}
}

// Fetch returns the raw news payloads Alpha Vantage reports for the
// ticker within the window. Payload order is not meaningful.
func (c *Client) Fetch(ctx context.Context, ticker string, window domain.Window) ([]domain.RawPayload, error) {
	started := time.Now()
	payloads, err := retry.Do(ctx, c.policy, func() ([]domain.RawPayload, error) {
		return c.fetchOnce(ctx, ticker, window)
	})
	metrics.UpstreamFetchDuration.Observe(time.Since(started).Seconds())

	if err != nil {
		metrics.UpstreamFetchesTotal.WithLabelValues("error").Inc()
		var permanent *retry.PermanentError
		if errors.As(err, &permanent) {
			return nil, permanent.Err
		}
		return nil, err
	}

	metrics.UpstreamFetchesTotal.WithLabelValues("ok").Inc()
	return payloads, nil
}

func (c *Client) fetchOnce(ctx context.Context, ticker string, window domain.Window) ([]domain.RawPayload, error) {
	if !c.breaker.TryAcquirePermit() {
		return nil, fmt.Errorf("%w: circuit breaker open", domain.ErrUpstreamUnavailable)
	}

	payloads, err := c.doRequest(ctx, ticker, window)
	if err != nil {
		c.breaker.RecordError(err)
		return nil, err
	}
	c.breaker.RecordSuccess()
	return payloads, nil
}

func (c *Client) doRequest(ctx context.Context, ticker string, window domain.Window) ([]domain.RawPayload, error) {
	query := url.Values{
		"function": {"NEWS_SENTIMENT"},
		"tickers":  {ticker},
		"apikey":   {c.apiKey},
		"limit":    {strconv.Itoa(fetchLimit)},
	}
	if !window.Start.IsZero() {
		query.Set("time_from", window.Start.UTC().Format(queryTimeLayout))
	}
	if !window.End.IsZero() {
		query.Set("time_to", window.End.UTC().Format(queryTimeLayout))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: HTTP 429", domain.ErrUpstreamRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var body feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", domain.ErrUpstreamUnavailable, err)
	}

	// Alpha Vantage reports failures inside a 200 response.
	if body.ErrorMessage != "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrUpstreamUnavailable, body.ErrorMessage)
	}
	if body.Note != "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrUpstreamRateLimited, body.Note)
	}

	return mapFeed(ticker, body.Feed), nil
}

type feedResponse struct {
	ErrorMessage string     `json:"Error Message"`
	Note         string     `json:"Note"`
	Feed         []feedItem `json:"feed"`
}

type feedItem struct {
	Title           string            `json:"title"`
	Summary         string            `json:"summary"`
	URL             string            `json:"url"`
	Source          string            `json:"source"`
	TimePublished   string            `json:"time_published"`
	TickerSentiment []tickerSentiment `json:"ticker_sentiment"`
}

type tickerSentiment struct {
	Ticker         string `json:"ticker"`
	RelevanceScore string `json:"relevance_score"`
}

// mapFeed extracts payloads relevant to the requested ticker. Items
// without a matching ticker_sentiment block are skipped; unparseable
// fields degrade to zero values and are left to the normalizer.
func mapFeed(ticker string, feed []feedItem) []domain.RawPayload {
	payloads := make([]domain.RawPayload, 0, len(feed))
	for _, item := range feed {
		var relevance float64
		found := false
		for _, ts := range item.TickerSentiment {
			if ts.Ticker == ticker {
				relevance, _ = strconv.ParseFloat(ts.RelevanceScore, 64)
				found = true
				break
			}
		}
		if !found {
			continue
		}

		var published time.Time
		if t, err := time.Parse(timeLayout, item.TimePublished); err == nil {
			published = t.UTC()
		} else {
			slog.Warn("Unparseable publish time", "value", item.TimePublished, "url", item.URL)
		}

		payloads = append(payloads, domain.RawPayload{
			Title:         item.Title,
			Summary:       item.Summary,
			URL:           item.URL,
			Source:        item.Source,
			TimePublished: published,
			Relevance:     relevance,
		})
	}
	return payloads
}
