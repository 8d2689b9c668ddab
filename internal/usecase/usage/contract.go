package usage

import domusage "github.com/dishola/dishola/internal/domain/usage"

// BudgetReader exposes the LLM budget windows without the ability to charge them.
type BudgetReader interface {
	Daily() domusage.Counters
	Monthly() domusage.Counters
	Action() string
}
