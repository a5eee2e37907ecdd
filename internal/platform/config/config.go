// Package config loads and validates the process configuration from the
// environment.
package config

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	AlphaVantageAPIKey  string `env:"ALPHA_VANTAGE_API_KEY"`
	AlphaVantageBaseURL string `env:"ALPHA_VANTAGE_BASE_URL" default:"https://www.alphavantage.co/query"`
	RSSFeedURLs         string `env:"RSS_FEED_URLS"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	CacheTTL         time.Duration `env:"CACHE_TTL" default:"1h"`
	CacheBucketWidth time.Duration `env:"CACHE_BUCKET_WIDTH" default:"24h"`
	CacheRetention   time.Duration `env:"CACHE_RETENTION" default:"72h"`
	StaleMaxAge      time.Duration `env:"STALE_MAX_AGE" default:"24h"`
	SweepInterval    time.Duration `env:"CACHE_SWEEP_INTERVAL" default:"10m"`

	// Alpha Vantage free tier: 25 requests per day.
	UpstreamRateCapacity  int           `env:"UPSTREAM_RATE_CAPACITY" default:"25"`
	UpstreamRateRefillSec float64       `env:"UPSTREAM_RATE_REFILL_PER_SEC" default:"0.000289"`
	RateWaitTimeout       time.Duration `env:"RATE_WAIT_TIMEOUT" default:"5s"`

	ScoringMaxBatch  int           `env:"SCORING_MAX_BATCH" default:"16"`
	MaxTextLen       int           `env:"MAX_TEXT_LEN" default:"2048"`
	MinRelevance     float64       `env:"MIN_RELEVANCE" default:"0.4"`
	TrendBucketWidth time.Duration `env:"TREND_BUCKET_WIDTH" default:"1h"`

	// Optional comma-separated ticker allowlist; empty allows any
	// well-formed ticker.
	AllowedTickers string `env:"ALLOWED_TICKERS"`

	APIRatePerSecond float64 `env:"API_RATE_PER_SECOND" default:"10"`
	APIRateBurst     int     `env:"API_RATE_BURST" default:"20"`
}

var tickerPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.AlphaVantageAPIKey == "" && cfg.RSSFeedURLs == "" {
		return fmt.Errorf("ALPHA_VANTAGE_API_KEY or RSS_FEED_URLS is required")
	}
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if cfg.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if cfg.CacheBucketWidth <= 0 {
		return fmt.Errorf("CACHE_BUCKET_WIDTH must be positive")
	}
	if cfg.CacheRetention < cfg.CacheTTL {
		return fmt.Errorf("CACHE_RETENTION must be at least CACHE_TTL")
	}
	if cfg.StaleMaxAge < 0 {
		return fmt.Errorf("STALE_MAX_AGE must not be negative")
	}
	if cfg.UpstreamRateCapacity < 1 {
		return fmt.Errorf("UPSTREAM_RATE_CAPACITY must be at least 1")
	}
	if cfg.MinRelevance < 0 || cfg.MinRelevance > 1 {
		return fmt.Errorf("MIN_RELEVANCE must be within [0, 1]")
	}

	for _, ticker := range cfg.TickerAllowlist() {
		if !tickerPattern.MatchString(ticker) {
			return fmt.Errorf("ALLOWED_TICKERS contains invalid ticker %q", ticker)
		}
	}

	return nil
}

// TickerAllowlist returns the parsed, uppercased allowlist; empty when
// any ticker is allowed.
func (c *Config) TickerAllowlist() []string {
	if strings.TrimSpace(c.AllowedTickers) == "" {
		return nil
	}
	parts := strings.Split(c.AllowedTickers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.ToUpper(strings.TrimSpace(p)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// FeedURLs returns the parsed RSS feed list.
func (c *Config) FeedURLs() []string {
	if strings.TrimSpace(c.RSSFeedURLs) == "" {
		return nil
	}
	parts := strings.Split(c.RSSFeedURLs, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if u := strings.TrimSpace(p); u != "" {
			out = append(out, u)
		}
	}
	return out
}
