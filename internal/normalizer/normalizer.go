// Package normalizer canonicalizes raw upstream payloads into articles.
package normalizer

import (
	"strings"
	"unicode"

	"github.com/Srujanx/financial-sentiment-dashboard/internal/domain"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/metrics"
)

// Result is the outcome of normalizing one batch.
type Result struct {
	Articles []domain.Article
	// Rejected counts payloads dropped for missing fields or low
	// relevance. Duplicates are not counted here.
	Rejected int
}

// Normalizer turns raw payload batches into deduplicated articles.
// Normalize is deterministic and side-effect free apart from metrics.
type Normalizer struct {
	minRelevance float64
}

func New(minRelevance float64) *Normalizer {
	return &Normalizer{minRelevance: minRelevance}
}

// Normalize canonicalizes a batch: drops payloads missing a title or
// publish time or below the relevance floor, deduplicates by article ID
// keeping the first occurrence, and normalizes whitespace in title and
// body. A nil batch is structurally malformed and fails whole.
func (n *Normalizer) Normalize(raw []domain.RawPayload) (Result, error) {
	if raw == nil {
		return Result{}, domain.ErrMalformedInput
	}

	seen := make(map[string]struct{}, len(raw))
	result := Result{Articles: make([]domain.Article, 0, len(raw))}

	for _, payload := range raw {
		title := CleanText(payload.Title)
		if title == "" || payload.TimePublished.IsZero() {
			result.Rejected++
			continue
		}
		if payload.Relevance < n.minRelevance {
			result.Rejected++
			continue
		}

		id := domain.ArticleID(payload.Source, payload.URL)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		result.Articles = append(result.Articles, domain.Article{
			ID:          id,
			Source:      payload.Source,
			Title:       title,
			Body:        CleanText(payload.Summary),
			URL:         payload.URL,
			PublishedAt: payload.TimePublished,
		})
	}

	metrics.NormalizerRejected.Add(float64(result.Rejected))
	return result, nil
}

// CleanText collapses whitespace runs to single spaces, strips control
// characters and trims the result. This is the form the scoring engine
// expects.
func CleanText(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := true
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		case unicode.IsControl(r):
			// drop
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}

	return strings.TrimRight(b.String(), " ")
}
