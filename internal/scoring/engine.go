// Package scoring wraps the sentiment model collaborator and scores
// normalized articles in bounded batches.
package scoring

import (
	"context"
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/Srujanx/financial-sentiment-dashboard/internal/domain"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/metrics"
)

const defaultMaxBatch = 16

// Engine scores articles with an injected model collaborator. The model
// is a process-wide resource: constructed once at startup and released
// via Close on shutdown.
type Engine struct {
	scorer     domain.Scorer
	clock      clockwork.Clock
	maxBatch   int
	maxTextLen int
}

type Option func(*Engine)

// WithMaxBatch bounds how many articles are scored per internal batch.
func WithMaxBatch(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxBatch = n
		}
	}
}

// WithMaxTextLen truncates article text to n bytes before scoring.
func WithMaxTextLen(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxTextLen = n
		}
	}
}

func NewEngine(scorer domain.Scorer, clock clockwork.Clock, opts ...Option) *Engine {
	e := &Engine{
		scorer:   scorer,
		clock:    clock,
		maxBatch: defaultMaxBatch,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score classifies the articles in input order. Articles the model
// rejects are skipped with a warning and excluded from the output; a bad
// item never fails the batch.
func (e *Engine) Score(ctx context.Context, articles []domain.Article) ([]domain.ScoredArticle, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	scored := make([]domain.ScoredArticle, 0, len(articles))
	for start := 0; start < len(articles); start += e.maxBatch {
		end := min(start+e.maxBatch, len(articles))

		timer := e.clock.Now()
		batch, err := e.scoreBatch(ctx, articles[start:end])
		if err != nil {
			return nil, err
		}
		metrics.ScoringDuration.Observe(e.clock.Since(timer).Seconds())

		scored = append(scored, batch...)
	}

	return scored, nil
}

func (e *Engine) scoreBatch(ctx context.Context, batch []domain.Article) ([]domain.ScoredArticle, error) {
	scored := make([]domain.ScoredArticle, 0, len(batch))

	for _, article := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		label, confidence, err := e.scorer.Classify(ctx, e.articleText(article))
		if err != nil {
			slog.Warn("Skipping article after model failure",
				"article_id", article.ID,
				"source", article.Source,
				"error", err,
			)
			metrics.ScoringFailures.Inc()
			continue
		}

		scored = append(scored, domain.ScoredArticle{
			Article: article,
			Score: domain.SentimentScore{
				Label:      label,
				Confidence: confidence,
			},
			ScoredAt: e.clock.Now(),
		})
		metrics.ScoredArticles.Inc()
	}

	return scored, nil
}

// articleText builds the text the model sees: title plus body, truncated
// to the configured byte bound.
func (e *Engine) articleText(article domain.Article) string {
	text := article.Title
	if article.Body != "" {
		text += ". " + article.Body
	}
	return Truncate(text, e.maxTextLen)
}

// Close releases the underlying model when it owns resources.
func (e *Engine) Close() error {
	if closer, ok := e.scorer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
// n <= 0 means unbounded.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
