// Package llm decorates the LLM gateway with token budgets and logging.
package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dishola/dishola/internal/domain"
	"github.com/dishola/dishola/internal/logger"
	"github.com/dishola/dishola/internal/metrics"
)

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// Instrumented wraps an LLM with budget enforcement and logging.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
// This layer owns budget tracking and budget-related metrics only.
type Instrumented struct {
	inner    domain.LLM
	provider string
	model    string
	budget   BudgetChecker
	logger   *zap.Logger
}

// NewInstrumented wraps an LLM with budget and observability. budget may be nil.
func NewInstrumented(
	inner domain.LLM, provider, model string,
	budget BudgetChecker, logger *zap.Logger,
) *Instrumented {
	return &Instrumented{
		inner:    inner,
		provider: provider,
		model:    model,
		budget:   budget,
		logger:   logger,
	}
}

// Complete checks budget, delegates to the inner LLM, and records usage.
func (p *Instrumented) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	if err := p.checkBudget(ctx, "complete"); err != nil {
		return domain.Completion{}, err
	}

	start := time.Now()
	result, err := p.inner.Complete(ctx, req)
	duration := time.Since(start)

	if err != nil {
		p.log(ctx).Error("LLM completion failed",
			zap.String("provider", p.provider),
			zap.String("model", p.modelFor(req)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.Completion{}, fmt.Errorf("complete: %w", err)
	}

	p.record(result)

	p.log(ctx).Debug("LLM completion finished",
		zap.String("provider", p.provider),
		zap.String("model", p.modelFor(req)),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.Tokens()),
	)
	return result, nil
}

// Stream checks budget, delegates to the inner LLM, and records usage.
// Tokens of a stream that fails midway are still charged.
func (p *Instrumented) Stream(
	ctx context.Context, req domain.CompletionRequest, onDelta func(string),
) (domain.Completion, error) {
	if err := p.checkBudget(ctx, "stream"); err != nil {
		return domain.Completion{}, err
	}

	start := time.Now()
	result, err := p.inner.Stream(ctx, req, onDelta)
	duration := time.Since(start)

	p.record(result)

	if err != nil {
		p.log(ctx).Error("LLM stream failed",
			zap.String("provider", p.provider),
			zap.String("model", p.modelFor(req)),
			zap.Duration("duration", duration),
			zap.Int("chunks", result.Chunks),
			zap.Error(err),
		)
		return result, fmt.Errorf("stream: %w", err)
	}

	p.log(ctx).Debug("LLM stream finished",
		zap.String("provider", p.provider),
		zap.String("model", p.modelFor(req)),
		zap.Duration("duration", duration),
		zap.Duration("first_token", result.FirstToken),
		zap.Int("chunks", result.Chunks),
		zap.Int("total_tokens", result.Tokens()),
		zap.String("finish_reason", result.FinishReason),
	)
	return result, nil
}

// HealthCheck delegates to the inner LLM when it supports health checks.
func (p *Instrumented) HealthCheck(ctx context.Context) error {
	hc, ok := p.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return fmt.Errorf("llm health: %w", err)
	}
	return nil
}

func (p *Instrumented) checkBudget(ctx context.Context, mode string) error {
	if p.budget == nil {
		return nil
	}
	if err := p.budget.Check(ctx); err != nil {
		p.log(ctx).Error("Budget exceeded",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.String("mode", mode),
			zap.Error(err),
		)
		return fmt.Errorf("budget check: %w", err)
	}
	return nil
}

func (p *Instrumented) record(result domain.Completion) {
	if p.budget == nil {
		return
	}
	tokens := result.Tokens()
	if tokens == 0 && result.Duration == 0 {
		return
	}
	p.budget.Record(int64(tokens))
	remaining := metrics.LLMBudgetTokensRemaining
	remaining.WithLabelValues(p.provider, "daily").Set(float64(p.budget.RemainingDaily()))
	remaining.WithLabelValues(p.provider, "monthly").Set(float64(p.budget.RemainingMonthly()))
}

func (p *Instrumented) modelFor(req domain.CompletionRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.model
}

func (p *Instrumented) log(ctx context.Context) *zap.Logger {
	return logger.FromContextOr(ctx, p.logger)
}
