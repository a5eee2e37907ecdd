package rssfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Srujanx/financial-sentiment-dashboard/internal/domain"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Market Wire</title>
	<link>https://example.com</link>
	<item>
		<title>AAPL surges after earnings</title>
		<link>https://example.com/aapl-surges</link>
		<description>Shares jumped in after-hours trading.</description>
		<pubDate>Fri, 14 Mar 2025 09:30:00 GMT</pubDate>
	</item>
	<item>
		<title>Chip sector roundup</title>
		<link>https://example.com/chips</link>
		<description>Analysts weigh in on AAPL suppliers.</description>
		<pubDate>Fri, 14 Mar 2025 11:00:00 GMT</pubDate>
	</item>
	<item>
		<title>SNAAPL maker files for IPO</title>
		<link>https://example.com/snaapl</link>
		<description>A snack company, not the phone maker.</description>
		<pubDate>Fri, 14 Mar 2025 12:00:00 GMT</pubDate>
	</item>
	<item>
		<title>AAPL flashback from last year</title>
		<link>https://example.com/old</link>
		<description>Retrospective piece.</description>
		<pubDate>Thu, 14 Mar 2024 12:00:00 GMT</pubDate>
	</item>
</channel>
</rss>`

func rssServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func marchWindow() domain.Window {
	return domain.Window{
		Start: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestFetchFiltersByTickerAndWindow(t *testing.T) {
	server := rssServer(t, rssBody)
	source := New([]string{server.URL})

	payloads, err := source.Fetch(context.Background(), "AAPL", marchWindow())
	require.NoError(t, err)
	require.Len(t, payloads, 2, "whole-word ticker match inside the window")

	assert.Equal(t, "AAPL surges after earnings", payloads[0].Title)
	assert.Equal(t, "Market Wire", payloads[0].Source)
	assert.Equal(t, time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC), payloads[0].TimePublished)
	assert.InDelta(t, titleRelevance, payloads[0].Relevance, 1e-9)

	// Second match is a body-only mention and scores lower.
	assert.Equal(t, "Chip sector roundup", payloads[1].Title)
	assert.InDelta(t, bodyRelevance, payloads[1].Relevance, 1e-9)
}

func TestFetchNoMatches(t *testing.T) {
	server := rssServer(t, rssBody)
	source := New([]string{server.URL})

	payloads, err := source.Fetch(context.Background(), "TSLA", marchWindow())
	require.NoError(t, err)
	assert.Empty(t, payloads)
}

func TestFetchSkipsFailingFeed(t *testing.T) {
	good := rssServer(t, rssBody)
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(bad.Close)

	source := New([]string{bad.URL, good.URL})
	payloads, err := source.Fetch(context.Background(), "AAPL", marchWindow())
	require.NoError(t, err)
	assert.Len(t, payloads, 2)
}

func TestFetchAllFeedsFailing(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(bad.Close)

	source := New([]string{bad.URL, bad.URL})
	_, err := source.Fetch(context.Background(), "AAPL", marchWindow())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestContainsWord(t *testing.T) {
	assert.True(t, containsWord("AAPL surges", "AAPL"))
	assert.True(t, containsWord("buy aapl now", "AAPL"))
	assert.True(t, containsWord("(AAPL)", "AAPL"))
	assert.False(t, containsWord("SNAAPL maker", "AAPL"))
	assert.False(t, containsWord("AAPL2025 notes", "AAPL"))
	assert.False(t, containsWord("", "AAPL"))
}
