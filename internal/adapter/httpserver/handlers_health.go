package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Srujanx/financial-sentiment-dashboard/internal/platform/version"
)

// handleHealth exposes the engine's operational snapshot.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, s.app.Health(c.Request().Context()))
}

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Seconds(),
	})
}

// handleReadiness also backs the startup probe. The engine has no
// backing stores to ping; readiness means the process is wired and
// serving.
func (s *Server) handleReadiness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, version.Get())
}
