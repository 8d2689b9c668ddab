package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/dishola/dishola/internal/domain"
	"github.com/dishola/dishola/internal/metrics"
)

// Client is a chat completion provider using the OpenAI-compatible API.
type Client struct {
	client      *openai.Client
	model       string
	provider    string
	streamUsage bool
	logger      *zap.Logger
}

// Config holds the LLM provider settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string
	Timeout  time.Duration
	// StreamUsage asks the provider for a trailing usage chunk on streams.
	// Some OpenAI-compatible gateways reject stream_options.
	StreamUsage bool
	Logger      *zap.Logger
}

// NewClient creates an OpenAI-compatible chat client.
func NewClient(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		provider:    cfg.Provider,
		streamUsage: cfg.StreamUsage,
		logger:      logger,
	}
}

// Complete implements domain.Completer.
func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	model := c.modelFor(req)
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req, model))

	duration := time.Since(start)

	if err != nil {
		c.recordError(model, "complete", "api_error")
		return domain.Completion{}, parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		c.recordError(model, "complete", "empty_response")
		return domain.Completion{}, fmt.Errorf("empty completion response: %w", domain.ErrLLMProviderError)
	}

	metrics.LLMRequestsTotal.WithLabelValues(c.provider, model, "complete", "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(c.provider, model, "complete").Observe(duration.Seconds())
	c.recordTokens(model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return domain.Completion{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		Duration:         duration,
		FinishReason:     string(resp.Choices[0].FinishReason),
	}, nil
}

// Stream implements domain.Streamer. onDelta runs on the calling goroutine.
func (c *Client) Stream(
	ctx context.Context, req domain.CompletionRequest, onDelta func(string),
) (domain.Completion, error) {
	model := c.modelFor(req)
	chatReq := c.buildRequest(req, model)
	chatReq.Stream = true
	if c.streamUsage {
		chatReq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}

	start := time.Now()

	stream, err := c.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		c.recordError(model, "stream", "api_error")
		return domain.Completion{}, parseAPIError(err)
	}
	defer stream.Close()

	var (
		out  domain.Completion
		text []byte
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.recordError(model, "stream", "stream_error")
			out.Text = string(text)
			out.Duration = time.Since(start)
			return out, parseAPIError(err)
		}

		if chunk.Usage != nil {
			out.PromptTokens = chunk.Usage.PromptTokens
			out.CompletionTokens = chunk.Usage.CompletionTokens
			out.TotalTokens = chunk.Usage.TotalTokens
		}
		for _, choice := range chunk.Choices {
			if choice.FinishReason != "" {
				out.FinishReason = string(choice.FinishReason)
			}
			delta := choice.Delta.Content
			if delta == "" {
				continue
			}
			if out.Chunks == 0 {
				out.FirstToken = time.Since(start)
				metrics.LLMFirstTokenSeconds.WithLabelValues(c.provider, model).Observe(out.FirstToken.Seconds())
			}
			out.Chunks++
			text = append(text, delta...)
			if onDelta != nil {
				onDelta(delta)
			}
		}
	}

	out.Text = string(text)
	out.Duration = time.Since(start)

	metrics.LLMRequestsTotal.WithLabelValues(c.provider, model, "stream", "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(c.provider, model, "stream").Observe(out.Duration.Seconds())
	completion := out.CompletionTokens
	if completion == 0 {
		completion = out.Chunks
	}
	c.recordTokens(model, out.PromptTokens, completion)

	if out.FinishReason == string(openai.FinishReasonLength) {
		c.logger.Warn("LLM stream hit token limit",
			zap.String("model", model),
			zap.Int("chunks", out.Chunks),
		)
	}

	return out, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Model returns the default model name.
func (c *Client) Model() string { return c.model }

func (c *Client) modelFor(req domain.CompletionRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return c.model
}

func (c *Client) buildRequest(req domain.CompletionRequest, model string) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return chatReq
}

func (c *Client) recordError(model, mode, errType string) {
	metrics.LLMRequestsTotal.WithLabelValues(c.provider, model, mode, "error").Inc()
	metrics.LLMErrorsTotal.WithLabelValues(c.provider, model, errType).Inc()
}

func (c *Client) recordTokens(model string, prompt, completion int) {
	if prompt > 0 {
		metrics.LLMTokensTotal.WithLabelValues(c.provider, model, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		metrics.LLMTokensTotal.WithLabelValues(c.provider, model, "completion").Add(float64(completion))
	}
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrLLMProviderError; HTTP 429 also
// carries domain.ErrRateLimited.
func parseAPIError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("llm request aborted: %w: %w", domain.ErrLLMProviderError, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return wrapStatus(reqErr.HTTPStatusCode, fmt.Sprintf("llm API error %d: %s", reqErr.HTTPStatusCode, detail))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return wrapStatus(apiErr.HTTPStatusCode, fmt.Sprintf("llm API error %d: %s", apiErr.HTTPStatusCode, apiErr.Message))
	}

	return fmt.Errorf("llm request failed: %w: %w", domain.ErrLLMProviderError, err)
}

func wrapStatus(status int, msg string) error {
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w: %w", msg, domain.ErrLLMProviderError, domain.ErrRateLimited)
	}
	return fmt.Errorf("%s: %w", msg, domain.ErrLLMProviderError)
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
