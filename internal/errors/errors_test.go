package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Srujanx/financial-sentiment-dashboard/internal/domain"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    int
	}{
		{TypeValidation, http.StatusBadRequest},
		{TypeNotFound, http.StatusNotFound},
		{TypeRateLimited, http.StatusTooManyRequests},
		{TypeUpstream, http.StatusBadGateway},
		{TypeUnavailable, http.StatusServiceUnavailable},
		{TypeInternal, http.StatusInternalServerError},
		{ErrorType("bogus"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			e := &Error{Type: tt.errType}
			assert.Equal(t, tt.want, e.HTTPStatus())
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := UpstreamError("fetch failed", cause)

	assert.ErrorIs(t, err, cause)
}

func TestAsStructuredError_DomainSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"malformed input", fmt.Errorf("ctx: %w", domain.ErrMalformedInput), TypeValidation},
		{"rate limited", fmt.Errorf("ctx: %w", domain.ErrRateLimited), TypeRateLimited},
		{"fetch failed", fmt.Errorf("ctx: %w", domain.ErrFetchFailed), TypeUnavailable},
		{"upstream unavailable", fmt.Errorf("ctx: %w", domain.ErrUpstreamUnavailable), TypeUpstream},
		{"upstream rate limited", fmt.Errorf("ctx: %w", domain.ErrUpstreamRateLimited), TypeUpstream},
		{"model inference", fmt.Errorf("ctx: %w", domain.ErrModelInference), TypeUpstream},
		{"unknown", errors.New("mystery"), TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			structured := AsStructuredError(tt.err)
			require.NotNil(t, structured)
			assert.Equal(t, tt.want, structured.Type)
		})
	}
}

func TestAsStructuredError_FetchFailedWinsOverWrappedUpstream(t *testing.T) {
	// The cache wraps the upstream cause inside ErrFetchFailed; the
	// response must say "unavailable", not "bad gateway".
	err := fmt.Errorf("%w for AAPL: %w", domain.ErrFetchFailed, domain.ErrUpstreamUnavailable)

	structured := AsStructuredError(err)
	assert.Equal(t, TypeUnavailable, structured.Type)
}

func TestAsStructuredError_PassThrough(t *testing.T) {
	original := ValidationError("bad ticker")
	structured := AsStructuredError(fmt.Errorf("wrapped: %w", original))
	assert.Same(t, original, structured)
}

func TestAsStructuredError_Nil(t *testing.T) {
	assert.Nil(t, AsStructuredError(nil))
}

func TestToResponse_RetryGuidance(t *testing.T) {
	assert.NotEmpty(t, RateLimitedError("slow down", nil).ToResponse().Retry)
	assert.NotEmpty(t, UnavailableError("nothing resolvable", nil).ToResponse().Retry)
	assert.Empty(t, ValidationError("bad input").ToResponse().Retry)
}
