// Package rssfeed implements a NewsSource over plain RSS feeds. It is
// the keyless alternative to the Alpha Vantage source for deployments
// without an API key.
package rssfeed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/Srujanx/financial-sentiment-dashboard/internal/domain"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/metrics"
)

// Relevance assigned to matched items. RSS carries no per-ticker score,
// so a title mention counts for more than a body mention.
const (
	titleRelevance = 0.9
	bodyRelevance  = 0.5
)

// Source aggregates one or more RSS feeds into raw payloads for a
// ticker. Feeds that fail to parse are skipped; the fetch only fails
// when every feed does.
type Source struct {
	urls   []string
	parser *gofeed.Parser
}

var _ domain.NewsSource = (*Source)(nil)

func New(urls []string) *Source {
	return &Source{
		urls:   urls,
		parser: gofeed.NewParser(),
	}
}

func (s *Source) Fetch(ctx context.Context, ticker string, window domain.Window) ([]domain.RawPayload, error) {
	started := time.Now()
	defer func() {
		metrics.UpstreamFetchDuration.Observe(time.Since(started).Seconds())
	}()

	var payloads []domain.RawPayload
	var failed int
	var lastErr error

	for _, url := range s.urls {
		feed, err := s.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			slog.Warn("Skipping failing RSS feed", "url", url, "error", err)
			failed++
			lastErr = err
			continue
		}
		payloads = append(payloads, matchItems(feed, ticker, window)...)
	}

	if failed == len(s.urls) {
		metrics.UpstreamFetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: all %d feeds failed: %w", domain.ErrUpstreamUnavailable, failed, lastErr)
	}

	metrics.UpstreamFetchesTotal.WithLabelValues("ok").Inc()
	return payloads, nil
}

// matchItems keeps feed items that mention the ticker and fall inside
// the window. Items without a parseable publish time are kept with a
// zero time so the normalizer can reject them consistently.
func matchItems(feed *gofeed.Feed, ticker string, window domain.Window) []domain.RawPayload {
	source := feed.Title
	if source == "" {
		source = feed.Link
	}

	var payloads []domain.RawPayload
	for _, item := range feed.Items {
		relevance, ok := matchTicker(item, ticker)
		if !ok {
			continue
		}

		var published time.Time
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		}
		if !published.IsZero() && !window.Contains(published) {
			continue
		}

		payloads = append(payloads, domain.RawPayload{
			Title:         item.Title,
			Summary:       item.Description,
			URL:           item.Link,
			Source:        source,
			TimePublished: published,
			Relevance:     relevance,
		})
	}
	return payloads
}

// matchTicker reports whether the item mentions the ticker as a whole
// word, and with what relevance. Substring matches inside longer words
// ("A" in "APPLE") do not count.
func matchTicker(item *gofeed.Item, ticker string) (float64, bool) {
	if containsWord(item.Title, ticker) {
		return titleRelevance, true
	}
	if containsWord(item.Description, ticker) {
		return bodyRelevance, true
	}
	return 0, false
}

func containsWord(text, word string) bool {
	upper := strings.ToUpper(text)
	word = strings.ToUpper(word)
	for idx := 0; ; {
		i := strings.Index(upper[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		if (start == 0 || !isWordChar(upper[start-1])) && (end == len(upper) || !isWordChar(upper[end])) {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
