package dishola

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dishola/dishola/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidRequest       = domain.ErrInvalidRequest
	ErrRateLimited          = domain.ErrRateLimited
	ErrLLMQuotaExceeded     = domain.ErrLLMQuotaExceeded
	ErrLLMProviderError     = domain.ErrLLMProviderError
	ErrStreamingUnsupported = domain.ErrStreamingUnsupported
	ErrLocationUnknown      = domain.ErrLocationUnknown
)

// Client-side errors.
var (
	// ErrTimeout means the stream did not finish within the configured ceiling.
	ErrTimeout = errors.New("dishola: search timed out")
	// ErrIncompleteStream means the body ended without a complete or error event.
	ErrIncompleteStream = errors.New("dishola: stream ended before completion")
	// ErrInvalidTransition means an event arrived in a state that cannot accept it.
	ErrInvalidTransition = errors.New("dishola: invalid state transition")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("dishola: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("dishola: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap maps the status code onto the matching sentinel.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return ErrInvalidRequest
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusPaymentRequired:
		return ErrLLMQuotaExceeded
	case http.StatusBadGateway:
		return ErrLLMProviderError
	case http.StatusNotFound:
		if e.Code == "location_unknown" {
			return ErrLocationUnknown
		}
	}
	return nil
}

// StreamError is a fatal error event received in-band.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string { return "dishola: search failed: " + e.Message }

var rateLimitHints = []string{"rate limit", "rate-limit", "too many requests", "429", "quota"}

// IsRateLimited reports whether err looks like throttling, so a UI can ask
// the user to wait instead of showing a failure.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrLLMQuotaExceeded) {
		return true
	}
	return IsRateLimitMessage(err.Error())
}

// IsRateLimitMessage applies the IsRateLimited heuristic to free text,
// such as an aiError message.
func IsRateLimitMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, h := range rateLimitHints {
		if strings.Contains(msg, h) {
			return true
		}
	}
	return false
}
