package domain

import "time"

// Distribution counts articles per sentiment label over a window.
type Distribution struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Total returns the number of articles counted.
func (d Distribution) Total() int {
	return d.Positive + d.Neutral + d.Negative
}

// TrendPoint is the mean sentiment of one sub-interval. Mean is nil when
// the sub-interval holds no articles, so callers can distinguish "no
// data" from "neutral".
type TrendPoint struct {
	Start time.Time `json:"start"`
	Mean  *float64  `json:"mean"`
}

// AggregateResult is the time-windowed view the dashboard consumes. It is
// a pure function of the cached scored articles at read time and is never
// persisted independently.
type AggregateResult struct {
	Ticker       string       `json:"ticker"`
	Window       Window       `json:"window"`
	Distribution Distribution `json:"distribution"`
	MeanScore    float64      `json:"mean_score"`
	TrendSeries  []TrendPoint `json:"trend_series"`
	Partial      bool         `json:"partial,omitempty"`
	Stale        bool         `json:"stale,omitempty"`
}
