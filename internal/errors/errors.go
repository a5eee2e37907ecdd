// Package errors provides structured error handling with context propagation and HTTP status code mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Srujanx/financial-sentiment-dashboard/internal/domain"
)

// ErrorType represents the category of error for metrics and response formatting.
type ErrorType string

const (
	// TypeValidation indicates invalid input (HTTP 400)
	TypeValidation ErrorType = "validation"
	// TypeNotFound indicates resource not found (HTTP 404)
	TypeNotFound ErrorType = "not_found"
	// TypeRateLimited indicates an exhausted call budget (HTTP 429)
	TypeRateLimited ErrorType = "rate_limited"
	// TypeUpstream indicates a news provider failure (HTTP 502)
	TypeUpstream ErrorType = "upstream"
	// TypeUnavailable indicates no resolvable data, fresh or stale (HTTP 503)
	TypeUnavailable ErrorType = "unavailable"
	// TypeInternal indicates server-side error (HTTP 500)
	TypeInternal ErrorType = "internal"
)

// Error represents a structured error with type, message, and context.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the appropriate HTTP status code for this error type.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	case TypeRateLimited:
		return http.StatusTooManyRequests
	case TypeUpstream:
		return http.StatusBadGateway
	case TypeUnavailable:
		return http.StatusServiceUnavailable
	case TypeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ValidationError creates a new validation error (HTTP 400).
func ValidationError(message string) *Error {
	return &Error{
		Type:    TypeValidation,
		Message: message,
		Context: make(map[string]any),
	}
}

// NotFoundError creates a new not-found error (HTTP 404).
func NotFoundError(message string) *Error {
	return &Error{
		Type:    TypeNotFound,
		Message: message,
		Context: make(map[string]any),
	}
}

// RateLimitedError creates a new rate-limited error (HTTP 429).
func RateLimitedError(message string, cause error) *Error {
	return &Error{
		Type:    TypeRateLimited,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// UpstreamError creates a new upstream provider error (HTTP 502).
func UpstreamError(message string, cause error) *Error {
	return &Error{
		Type:    TypeUpstream,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// UnavailableError creates a new no-data-resolvable error (HTTP 503).
func UnavailableError(message string, cause error) *Error {
	return &Error{
		Type:    TypeUnavailable,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// InternalError creates a new internal error (HTTP 500).
func InternalError(message string, cause error) *Error {
	return &Error{
		Type:    TypeInternal,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// WithContext adds context fields to the error (chainable).
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ErrorResponse represents the JSON structure sent to clients.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Type    ErrorType      `json:"type"`
	Retry   string         `json:"retry,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ToResponse converts an Error to an ErrorResponse for JSON serialization.
// Retryable categories carry explicit retry guidance.
func (e *Error) ToResponse() ErrorResponse {
	resp := ErrorResponse{
		Error:   e.Message,
		Type:    e.Type,
		Context: e.Context,
	}
	switch e.Type {
	case TypeRateLimited:
		resp.Retry = "call budget exhausted, retry after backoff"
	case TypeUpstream, TypeUnavailable:
		resp.Retry = "transient upstream condition, retry later"
	}
	return resp
}

// AsStructuredError converts any error into a structured Error. Domain
// sentinels map onto the taxonomy; an existing *Error passes through
// unchanged; anything else becomes an internal error.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	switch {
	case errors.Is(err, domain.ErrMalformedInput):
		return ValidationError(err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		return RateLimitedError("rate limited", err)
	case errors.Is(err, domain.ErrFetchFailed):
		return UnavailableError("no sentiment data resolvable", err)
	case errors.Is(err, domain.ErrUpstreamUnavailable), errors.Is(err, domain.ErrUpstreamRateLimited):
		return UpstreamError("upstream news source failed", err)
	case errors.Is(err, domain.ErrModelInference):
		return UpstreamError("sentiment model failed", err)
	}

	return InternalError("internal server error", err)
}
