// Package aggregate folds scored articles over a time window into
// distribution and trend statistics. Pure functions only: the result is
// fully determined by the inputs, and inputs are never mutated.
package aggregate

import (
	"time"

	"github.com/Srujanx/financial-sentiment-dashboard/internal/domain"
)

// Compute partitions scored articles by publish time into sub-intervals
// of bucketWidth within window and folds them into an AggregateResult.
// Articles outside the window are excluded. An empty window yields a
// zero distribution and mean 0; that is a defined result, not an error.
func Compute(scored []domain.ScoredArticle, ticker string, window domain.Window, bucketWidth time.Duration) domain.AggregateResult {
	result := domain.AggregateResult{
		Ticker: ticker,
		Window: window,
	}

	buckets := bucketCount(window, bucketWidth)
	sums := make([]float64, buckets)
	counts := make([]int, buckets)

	var weightedSum float64
	total := 0

	for _, sa := range scored {
		if !window.Contains(sa.Article.PublishedAt) {
			continue
		}

		contribution := sa.Score.Label.Weight() * sa.Score.Confidence
		weightedSum += contribution
		total++

		switch sa.Score.Label {
		case domain.LabelPositive:
			result.Distribution.Positive++
		case domain.LabelNegative:
			result.Distribution.Negative++
		default:
			result.Distribution.Neutral++
		}

		if buckets > 0 {
			idx := int(sa.Article.PublishedAt.Sub(window.Start) / bucketWidth)
			if idx >= buckets {
				idx = buckets - 1
			}
			sums[idx] += contribution
			counts[idx]++
		}
	}

	if total > 0 {
		result.MeanScore = weightedSum / float64(total)
	}

	result.TrendSeries = make([]domain.TrendPoint, buckets)
	for i := 0; i < buckets; i++ {
		point := domain.TrendPoint{Start: window.Start.Add(time.Duration(i) * bucketWidth)}
		if counts[i] > 0 {
			mean := sums[i] / float64(counts[i])
			point.Mean = &mean
		}
		result.TrendSeries[i] = point
	}

	return result
}

// bucketCount is the number of bucketWidth sub-intervals needed to cover
// the window, the last one possibly truncated by the window end.
func bucketCount(window domain.Window, bucketWidth time.Duration) int {
	if bucketWidth <= 0 || !window.Start.Before(window.End) {
		return 0
	}
	span := window.End.Sub(window.Start)
	n := int(span / bucketWidth)
	if span%bucketWidth != 0 {
		n++
	}
	return n
}
