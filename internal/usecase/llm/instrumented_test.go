package llm

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dishola/dishola/internal/domain"
	"github.com/dishola/dishola/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterLLMMetrics()
	os.Exit(m.Run())
}

type mockLLM struct {
	result    domain.Completion
	err       error
	deltas    []string
	healthErr error
	calls     int
}

func (m *mockLLM) Complete(_ context.Context, _ domain.CompletionRequest) (domain.Completion, error) {
	m.calls++
	return m.result, m.err
}

func (m *mockLLM) Stream(_ context.Context, _ domain.CompletionRequest, onDelta func(string)) (domain.Completion, error) {
	m.calls++
	for _, d := range m.deltas {
		onDelta(d)
	}
	return m.result, m.err
}

func (m *mockLLM) HealthCheck(_ context.Context) error { return m.healthErr }

func TestInstrumented_CompleteSuccess(t *testing.T) {
	inner := &mockLLM{result: domain.Completion{Text: "ok", TotalTokens: 40}}
	budget := NewBudgetTracker("test", 1000, 0, BudgetActionReject, zap.NewNop())
	p := NewInstrumented(inner, "test", "m", budget, zap.NewNop())

	got, err := p.Complete(context.Background(), domain.CompletionRequest{Prompt: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "ok" {
		t.Errorf("Text = %q", got.Text)
	}
	if budget.DailyUsed() != 40 {
		t.Errorf("DailyUsed() = %d, want 40", budget.DailyUsed())
	}
}

func TestInstrumented_StreamForwardsDeltas(t *testing.T) {
	inner := &mockLLM{
		deltas: []string{"a", "b", "c"},
		result: domain.Completion{Text: "abc", PromptTokens: 10, Chunks: 3, Duration: time.Second},
	}
	budget := NewBudgetTracker("test", 0, 0, BudgetActionWarn, zap.NewNop())
	p := NewInstrumented(inner, "test", "m", budget, zap.NewNop())

	var seen string
	if _, err := p.Stream(context.Background(), domain.CompletionRequest{}, func(d string) { seen += d }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "abc" {
		t.Errorf("deltas = %q", seen)
	}
	if budget.DailyUsed() != 13 {
		t.Errorf("DailyUsed() = %d, want 13", budget.DailyUsed())
	}
}

func TestInstrumented_StreamErrorChargesPartialTokens(t *testing.T) {
	inner := &mockLLM{
		result: domain.Completion{Chunks: 7, Duration: time.Second},
		err:    domain.ErrLLMProviderError,
	}
	budget := NewBudgetTracker("test", 0, 0, BudgetActionWarn, zap.NewNop())
	p := NewInstrumented(inner, "test", "m", budget, zap.NewNop())

	got, err := p.Stream(context.Background(), domain.CompletionRequest{}, func(string) {})
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("expected ErrLLMProviderError, got %v", err)
	}
	if got.Chunks != 7 {
		t.Errorf("partial completion lost: %+v", got)
	}
	if budget.DailyUsed() != 7 {
		t.Errorf("DailyUsed() = %d, want 7", budget.DailyUsed())
	}
}

func TestInstrumented_BudgetRejection(t *testing.T) {
	budget := NewBudgetTracker("test", 100, 0, BudgetActionReject, zap.NewNop())
	budget.Record(100)
	inner := &mockLLM{}
	p := NewInstrumented(inner, "test", "m", budget, zap.NewNop())

	_, err := p.Stream(context.Background(), domain.CompletionRequest{}, func(string) {})
	if !errors.Is(err, domain.ErrLLMQuotaExceeded) {
		t.Fatalf("expected ErrLLMQuotaExceeded, got %v", err)
	}
	_, err = p.Complete(context.Background(), domain.CompletionRequest{})
	if !errors.Is(err, domain.ErrLLMQuotaExceeded) {
		t.Fatalf("expected ErrLLMQuotaExceeded, got %v", err)
	}
	if inner.calls != 0 {
		t.Errorf("inner LLM called %d times despite exhausted budget", inner.calls)
	}
}

func TestInstrumented_CompleteErrorNotCharged(t *testing.T) {
	inner := &mockLLM{err: errors.New("boom")}
	budget := NewBudgetTracker("test", 0, 0, BudgetActionWarn, zap.NewNop())
	p := NewInstrumented(inner, "test", "m", budget, zap.NewNop())

	if _, err := p.Complete(context.Background(), domain.CompletionRequest{}); err == nil {
		t.Fatal("expected error")
	}
	if budget.DailyRequests() != 0 {
		t.Errorf("failed completion recorded as a request")
	}
}

func TestInstrumented_NilBudget(t *testing.T) {
	inner := &mockLLM{result: domain.Completion{TotalTokens: 5}}
	p := NewInstrumented(inner, "test", "m", nil, zap.NewNop())
	if _, err := p.Complete(context.Background(), domain.CompletionRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInstrumented_HealthCheck(t *testing.T) {
	inner := &mockLLM{healthErr: errors.New("down")}
	p := NewInstrumented(inner, "test", "m", nil, zap.NewNop())
	if err := p.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health error")
	}
}
