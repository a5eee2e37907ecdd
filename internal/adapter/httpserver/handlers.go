package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Srujanx/financial-sentiment-dashboard/internal/domain"
	apperrors "github.com/Srujanx/financial-sentiment-dashboard/internal/errors"
)

const lowConfidenceWarning = "classification confidence is low; treat the label as indicative only"

func (s *Server) handleNews(c echo.Context) error {
	window, err := s.parseWindow(c)
	if err != nil {
		return err
	}

	result, err := s.app.GetNews(c.Request().Context(), c.Param("ticker"), window)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleStats(c echo.Context) error {
	window, err := s.parseWindow(c)
	if err != nil {
		return err
	}

	result, err := s.app.GetSentiment(c.Request().Context(), c.Param("ticker"), window)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Label           domain.Label           `json:"label"`
	Confidence      float64                `json:"confidence"`
	ConfidenceLevel domain.ConfidenceLevel `json:"confidence_level"`
	Warning         string                 `json:"warning,omitempty"`
}

func (s *Server) handleAnalyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("request body must be JSON with a text field")
	}

	score, err := s.app.AnalyzeText(c.Request().Context(), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAnalyzeResponse(score))
}

type analyzeBatchRequest struct {
	Texts []string `json:"texts"`
}

type batchItem struct {
	Result *analyzeResponse `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

type analyzeBatchResponse struct {
	Results []batchItem `json:"results"`
}

func (s *Server) handleAnalyzeBatch(c echo.Context) error {
	var req analyzeBatchRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("request body must be JSON with a texts field")
	}

	results, err := s.app.AnalyzeBatch(c.Request().Context(), req.Texts)
	if err != nil {
		return err
	}

	items := make([]batchItem, len(results))
	for i, r := range results {
		if r.Score == nil {
			items[i] = batchItem{Error: r.Error}
			continue
		}
		resp := toAnalyzeResponse(*r.Score)
		items[i] = batchItem{Result: &resp}
	}
	return c.JSON(http.StatusOK, analyzeBatchResponse{Results: items})
}

func toAnalyzeResponse(score domain.SentimentScore) analyzeResponse {
	resp := analyzeResponse{
		Label:           score.Label,
		Confidence:      score.Confidence,
		ConfidenceLevel: score.Level(),
	}
	if resp.ConfidenceLevel == domain.ConfidenceLow {
		resp.Warning = lowConfidenceWarning
	}
	return resp
}

// parseWindow reads the optional from/to query parameters (RFC 3339).
// Absent parameters default to the configured lookback ending now.
func (s *Server) parseWindow(c echo.Context) (domain.Window, error) {
	now := time.Now().UTC()
	window := domain.Window{Start: now.Add(-s.config.DefaultWindow), End: now}

	if raw := c.QueryParam("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.Window{}, apperrors.ValidationError(
				fmt.Sprintf("invalid from parameter %q, want RFC 3339", raw))
		}
		window.Start = t.UTC()
	}
	if raw := c.QueryParam("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.Window{}, apperrors.ValidationError(
				fmt.Sprintf("invalid to parameter %q, want RFC 3339", raw))
		}
		window.End = t.UTC()
	}
	return window, nil
}
