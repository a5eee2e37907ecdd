package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Srujanx/financial-sentiment-dashboard/internal/adapter/alphavantage"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/adapter/gemini"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/adapter/httpserver"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/adapter/rssfeed"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/app"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/cache"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/domain"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/normalizer"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/platform/config"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/platform/logging"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/ratelimit"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/scoring"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// setupSource prefers Alpha Vantage when a key is configured and falls
// back to the RSS feeds otherwise. Config validation guarantees at
// least one is available.
func setupSource(cfg *config.Config) domain.NewsSource {
	if cfg.AlphaVantageAPIKey != "" {
		slog.Info("Using Alpha Vantage news source")
		return alphavantage.NewClient(cfg.AlphaVantageBaseURL, cfg.AlphaVantageAPIKey)
	}
	slog.Info("Using RSS news source", "feeds", len(cfg.FeedURLs()))
	return rssfeed.New(cfg.FeedURLs())
}

func runGracefulShutdown(srv *httpserver.Server, stopSweeper func(), engine *scoring.Engine) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopSweeper()
		if err := engine.Close(); err != nil {
			slog.Error("Failed to close scoring engine", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	scorer, err := gemini.NewScorer(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		slog.Error("Failed to create scorer", "error", err)
		os.Exit(1)
	}

	source := setupSource(cfg)
	engine := scoring.NewEngine(scorer, clock,
		scoring.WithMaxBatch(cfg.ScoringMaxBatch),
		scoring.WithMaxTextLen(cfg.MaxTextLen),
	)

	store := cache.New(cfg.CacheTTL, cfg.StaleMaxAge, cfg.CacheRetention, clock)
	stopSweeper := store.StartSweeper(cfg.SweepInterval)

	limiter := ratelimit.New(cfg.UpstreamRateRefillSec, cfg.UpstreamRateCapacity, cfg.RateWaitTimeout)

	service := app.NewService(
		source,
		scorer,
		normalizer.New(cfg.MinRelevance),
		engine,
		store,
		limiter,
		app.Options{
			BucketWidth:      cfg.CacheBucketWidth,
			TrendBucketWidth: cfg.TrendBucketWidth,
			AllowedTickers:   cfg.TickerAllowlist(),
		},
	)

	srv := httpserver.NewServer(httpserver.Config{
		Port:             cfg.Port,
		APIRatePerSecond: cfg.APIRatePerSecond,
		APIRateBurst:     cfg.APIRateBurst,
		DefaultWindow:    cfg.CacheBucketWidth,
	}, service)

	done := runGracefulShutdown(srv, stopSweeper, engine)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
