package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/health/startup", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// News feed and aggregation
	s.echo.GET("/news/:ticker", s.handleNews)
	s.echo.GET("/news/:ticker/stats", s.handleStats)

	// Ad-hoc analysis
	s.echo.POST("/analyze", s.handleAnalyze)
	s.echo.POST("/analyze/batch", s.handleAnalyzeBatch)
}
