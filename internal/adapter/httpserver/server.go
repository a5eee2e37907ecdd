// Package httpserver binds the query façade to HTTP using echo.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Srujanx/financial-sentiment-dashboard/internal/app"
	apperrors "github.com/Srujanx/financial-sentiment-dashboard/internal/errors"
	"github.com/Srujanx/financial-sentiment-dashboard/internal/platform/correlation"
)

// Config carries the transport-level settings.
type Config struct {
	Port string
	// APIRatePerSecond / APIRateBurst bound per-client request rates.
	APIRatePerSecond float64
	APIRateBurst     int
	// DefaultWindow is the lookback applied when a request carries no
	// from/to parameters.
	DefaultWindow time.Duration
}

type Server struct {
	echo      *echo.Echo
	config    Config
	app       *app.Service
	startTime time.Time
}

func NewServer(cfg Config, service *app.Service) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(correlationMiddleware())
	e.Use(middleware.Logger())
	e.Use(apperrors.Middleware())
	if cfg.APIRatePerSecond > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:  rate.Limit(cfg.APIRatePerSecond),
				Burst: cfg.APIRateBurst,
			},
		)))
	}

	srv := &Server{
		echo:      e,
		config:    cfg,
		app:       service,
		startTime: time.Now(),
	}
	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// correlationMiddleware assigns every request a correlation ID, reusing
// the caller's X-Correlation-ID when present, and echoes it back.
func correlationMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXCorrelationID)
			if id == "" {
				id = correlation.NewID()
			}

			ctx := correlation.WithID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set(echo.HeaderXCorrelationID, id)
			return next(c)
		}
	}
}
