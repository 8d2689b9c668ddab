package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest signals a malformed search request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrRateLimited signals a rate limit hit at the LLM provider.
	ErrRateLimited = errors.New("rate limited")
	// ErrLLMQuotaExceeded signals an exhausted LLM token budget.
	ErrLLMQuotaExceeded = errors.New("llm quota exceeded")
	// ErrLLMProviderError signals an LLM provider failure.
	ErrLLMProviderError = errors.New("llm provider error")
	// ErrPromptInvariant signals a generated prompt missing a required input.
	ErrPromptInvariant = errors.New("prompt invariant violated")
	// ErrStreamingUnsupported signals a response writer that cannot flush.
	ErrStreamingUnsupported = errors.New("streaming unsupported")
	// ErrLocationUnknown signals that no label exists for a coordinate pair.
	ErrLocationUnknown = errors.New("location unknown")
)

// ValidationError wraps ErrInvalidRequest with the offending parameter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidRequest.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

// NewValidationError creates a validation error for a request parameter.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
