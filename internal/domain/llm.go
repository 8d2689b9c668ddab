package domain

import (
	"context"
	"time"
)

// Completer runs a single non-streaming chat completion.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// Streamer runs a streaming chat completion. onDelta is invoked from the
// calling goroutine for every non-empty content delta, in order.
type Streamer interface {
	Stream(ctx context.Context, req CompletionRequest, onDelta func(delta string)) (Completion, error)
}

// LLM is the shared text generation contract between layers.
type LLM interface {
	Completer
	Streamer
}

// HealthChecker verifies LLM provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CompletionRequest is a provider-neutral chat completion request.
// Empty Model means the client's configured default.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
	JSONMode    bool
}

// Completion carries generated text and usage through the decorator chain.
// Chunks counts streamed deltas; it stands in for CompletionTokens when the
// provider does not report usage on streams.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Chunks           int
	FirstToken       time.Duration
	Duration         time.Duration
	FinishReason     string
}

// Tokens returns the best available total token count.
func (c Completion) Tokens() int {
	if c.TotalTokens > 0 {
		return c.TotalTokens
	}
	return c.PromptTokens + max(c.CompletionTokens, c.Chunks)
}
