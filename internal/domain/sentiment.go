package domain

import (
	"context"
	"strings"
	"time"
)

// Label is the sentiment class assigned to a piece of text.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNeutral  Label = "neutral"
	LabelNegative Label = "negative"
)

// Weight maps a label onto the [-1, +1] scoring axis used by the
// confidence-weighted mean.
func (l Label) Weight() float64 {
	switch l {
	case LabelPositive:
		return 1
	case LabelNegative:
		return -1
	default:
		return 0
	}
}

// NormalizeLabel maps model-specific label spellings onto the canonical
// set. Unknown labels fall back to neutral.
func NormalizeLabel(raw string) Label {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive", "bullish", "label_2":
		return LabelPositive
	case "negative", "bearish", "label_0":
		return LabelNegative
	default:
		return LabelNeutral
	}
}

// ConfidenceLevel buckets a confidence score for presentation.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// SentimentScore is the model's verdict on one text. Immutable.
type SentimentScore struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Level derives the presentation confidence bucket from the raw score.
func (s SentimentScore) Level() ConfidenceLevel {
	switch {
	case s.Confidence > 0.8:
		return ConfidenceHigh
	case s.Confidence > 0.6:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ScoredArticle pairs an article with its sentiment score. This is the
// unit stored in the cache and consumed by the aggregator.
type ScoredArticle struct {
	Article  Article        `json:"article"`
	Score    SentimentScore `json:"score"`
	ScoredAt time.Time      `json:"scored_at"`
}

// Scorer is the sentiment model collaborator. Stateless across calls.
type Scorer interface {
	Classify(ctx context.Context, text string) (Label, float64, error)
}
