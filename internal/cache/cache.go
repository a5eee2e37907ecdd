// Package cache implements the keyed store of scored articles with TTL,
// stale fallback and at-most-one concurrent compute per key.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/Srujanx/financial-sentiment-dashboard/internal/domain"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/metrics"
)

// Key identifies one cache entry: a ticker paired with a coarse publish
// time bucket. Bucketing bounds key cardinality; TTL governs freshness
// independently of bucket width.
type Key struct {
	Ticker string
	Bucket time.Time
}

func (k Key) String() string {
	return k.Ticker + "@" + k.Bucket.UTC().Format(time.RFC3339)
}

// BucketStart truncates t down to the bucket boundary for the given width.
func BucketStart(t time.Time, width time.Duration) time.Time {
	return t.UTC().Truncate(width)
}

// BucketKeys resolves the keys whose buckets cover the window.
func BucketKeys(ticker string, window domain.Window, width time.Duration) []Key {
	var keys []Key
	for b := BucketStart(window.Start, width); b.Before(window.End); b = b.Add(width) {
		keys = append(keys, Key{Ticker: ticker, Bucket: b})
	}
	return keys
}

// Entry is one cached, fully scored bucket. Entries are replaced whole;
// readers never observe a partial update.
type Entry struct {
	Key       Key
	Articles  []domain.ScoredArticle
	FetchedAt time.Time
	ExpiresAt time.Time
	Stale     bool
}

// ComputeFn produces the scored articles for a key on miss or expiry.
type ComputeFn func(ctx context.Context) ([]domain.ScoredArticle, error)

// Cache is the sole shared-mutable-state boundary of the engine. The
// entry map is guarded by a RWMutex; per-key compute decisions are
// serialized by a singleflight group so concurrent callers for the same
// key share one compute while unrelated tickers proceed in parallel.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry

	flights singleflight.Group

	ttl         time.Duration
	staleMaxAge time.Duration
	retention   time.Duration
	clock       clockwork.Clock

	lastFetch time.Time
}

func New(ttl, staleMaxAge, retention time.Duration, clock clockwork.Clock) *Cache {
	return &Cache{
		entries:     make(map[string]Entry),
		ttl:         ttl,
		staleMaxAge: staleMaxAge,
		retention:   retention,
		clock:       clock,
	}
}

// GetOrCompute returns the entry for key, invoking compute only on a
// miss or expired entry. Exactly one compute per key is in flight at any
// time; concurrent callers block on that flight and share its result.
//
// If compute fails and the previous entry expired no longer ago than the
// stale horizon, the prior value is returned with Stale=true instead of
// the error. With no servable fallback the error is domain.ErrFetchFailed
// wrapping the cause.
//
// A caller whose ctx ends stops waiting, but the in-flight compute runs
// to completion so other waiters still benefit from it.
func (c *Cache) GetOrCompute(ctx context.Context, key Key, compute ComputeFn) (*Entry, error) {
	if entry, ok := c.lookupFresh(key); ok {
		metrics.CacheHits.Inc()
		return entry, nil
	}
	metrics.CacheMisses.Inc()

	// The flight deliberately detaches from the caller's cancellation:
	// an abandoned wait must not kill the fetch for the other waiters.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(key.String(), func() (any, error) {
		return c.refresh(flightCtx, key, compute)
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.CacheSharedLoads.Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Entry), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// refresh runs inside the singleflight and is the only writer per key.
func (c *Cache) refresh(ctx context.Context, key Key, compute ComputeFn) (*Entry, error) {
	// A flight that queued behind a completed one may find a fresh entry.
	if entry, ok := c.lookupFresh(key); ok {
		return entry, nil
	}

	articles, err := compute(ctx)
	if err != nil {
		return c.fallback(key, err)
	}

	now := c.clock.Now()
	entry := Entry{
		Key:       key,
		Articles:  articles,
		FetchedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	c.mu.Lock()
	c.entries[key.String()] = entry
	c.lastFetch = now
	metrics.CacheSize.Set(float64(len(c.entries)))
	c.mu.Unlock()

	return &entry, nil
}

// fallback serves the prior expired entry when a refresh fails, bounded
// by the stale horizon. Availability over freshness.
func (c *Cache) fallback(key Key, cause error) (*Entry, error) {
	c.mu.RLock()
	prior, ok := c.entries[key.String()]
	c.mu.RUnlock()

	if ok && c.clock.Now().Before(prior.ExpiresAt.Add(c.staleMaxAge)) {
		slog.Warn("Refresh failed, serving stale entry",
			"key", key.String(),
			"fetched_at", prior.FetchedAt,
			"error", cause,
		)
		metrics.CacheStaleServed.Inc()
		stale := prior
		stale.Stale = true
		return &stale, nil
	}

	return nil, fmt.Errorf("%w for %s: %w", domain.ErrFetchFailed, key.String(), cause)
}

func (c *Cache) lookupFresh(key Key) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key.String()]
	if !ok || !c.clock.Now().Before(entry.ExpiresAt) {
		return nil, false
	}
	return &entry, true
}

// Size returns the current number of entries, expired included.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// LastSuccessfulFetch reports when any key last refreshed successfully.
func (c *Cache) LastSuccessfulFetch() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastFetch
}

// Sweep purges entries fetched longer ago than the retention horizon and
// returns the count removed. Retention is independent of TTL: expired
// entries stay around as stale-fallback candidates until retention ends.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.clock.Now().Add(-c.retention)
	evicted := 0
	for k, entry := range c.entries {
		if entry.FetchedAt.Before(cutoff) {
			delete(c.entries, k)
			evicted++
		}
	}

	if evicted > 0 {
		metrics.CacheEvictions.Add(float64(evicted))
	}
	metrics.CacheSize.Set(float64(len(c.entries)))
	return evicted
}

// StartSweeper runs Sweep on the given interval until the returned stop
// function is called.
func (c *Cache) StartSweeper(interval time.Duration) func() {
	ticker := c.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.Chan():
				if evicted := c.Sweep(); evicted > 0 {
					slog.Debug("Swept aged cache entries",
						"evicted", evicted,
						"remaining", c.Size(),
					)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}
