package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dishola/dishola/internal/domain"
	domusage "github.com/dishola/dishola/internal/domain/usage"
)

// BudgetAction is what Check does once a window is spent.
type BudgetAction string

const (
	// BudgetActionWarn logs and lets the request through.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject fails the request with domain.ErrLLMQuotaExceeded.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetStore persists counters shared by every replica. Add returns the
// shared total after the charge.
type BudgetStore interface {
	Add(ctx context.Context, key string, tokens int64) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
}

// window is one UTC day or month of token spend.
type window struct {
	name     string // daily or monthly
	layout   string // date layout used in the store key
	limit    int64  // 0 means unlimited
	start    time.Time
	used     int64
	requests int64
	truncate func(time.Time) time.Time
}

// roll zeroes the window when now has moved past it.
func (w *window) roll(now time.Time) {
	if t := w.truncate(now); t.After(w.start) {
		w.start, w.used, w.requests = t, 0, 0
	}
}

func (w *window) spent() bool { return w.limit > 0 && w.used >= w.limit }

func (w *window) counters() domusage.Counters {
	return domusage.Counters{Limit: w.limit, Used: w.used, Remaining: remaining(w.limit, w.used), Requests: w.requests}
}

// BudgetTracker enforces daily and monthly token caps for one provider.
// Check only consults memory; Record updates memory and then writes through
// to the store when one is attached.
type BudgetTracker struct {
	mu       sync.Mutex
	day      window
	month    window
	action   BudgetAction
	provider string
	now      func() time.Time
	store    BudgetStore
	logger   *zap.Logger
}

// NewBudgetTracker creates a tracker. Zero limits mean unlimited.
func NewBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	if action == "" {
		action = BudgetActionWarn
	}
	b := &BudgetTracker{
		day:      window{name: "daily", layout: "2006-01-02", limit: dailyLimit, truncate: truncateToDay},
		month:    window{name: "monthly", layout: "2006-01", limit: monthlyLimit, truncate: truncateToMonth},
		action:   action,
		provider: provider,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
	b.setClock(b.now)
	return b
}

// setClock swaps the time source and re-anchors both windows on it.
func (b *BudgetTracker) setClock(now func() time.Time) {
	b.now = now
	t := now()
	b.day.start = truncateToDay(t)
	b.month.start = truncateToMonth(t)
}

// WithStore attaches a store and seeds both windows from it, so a restarted
// replica picks up where the fleet left off.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.store = store

	for _, w := range []*window{&b.day, &b.month} {
		val, err := store.Get(ctx, b.key(w, w.start))
		if err != nil {
			b.logger.Warn("Failed to load budget from store", zap.String("window", w.name), zap.Error(err))
			continue
		}
		w.used = val
	}
	b.logger.Info("Budget loaded from store",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.day.used),
		zap.Int64("monthly_used", b.month.used),
	)
	return b
}

// key is shaped dishola:budget:{provider}:{daily|monthly}:{date}.
func (b *BudgetTracker) key(w *window, at time.Time) string {
	return fmt.Sprintf("%sbudget:%s:%s:%s", domain.KeyPrefix, b.provider, w.name, at.Format(w.layout))
}

func (b *BudgetTracker) dailyKey(t time.Time) string   { return b.key(&b.day, t) }
func (b *BudgetTracker) monthlyKey(t time.Time) string { return b.key(&b.month, t) }

// Check verifies the budget allows a new request.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollAll()

	if !b.day.spent() && !b.month.spent() {
		return nil
	}
	if b.action == BudgetActionReject {
		return domain.ErrLLMQuotaExceeded
	}
	b.logger.Warn("Token budget exceeded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.day.used),
		zap.Int64("daily_limit", b.day.limit),
		zap.Int64("monthly_used", b.month.used),
		zap.Int64("monthly_limit", b.month.limit),
	)
	return nil
}

// Record charges one completed request and the tokens it consumed.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	b.rollAll()
	keys := make([]string, 0, 2)
	for _, w := range []*window{&b.day, &b.month} {
		w.used += tokens
		w.requests++
		keys = append(keys, b.key(w, w.start))
	}
	store := b.store
	b.mu.Unlock()

	if store == nil || tokens <= 0 {
		return
	}

	// The caller's request may already be finished.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	totals := make([]int64, len(keys))
	for i, key := range keys {
		total, err := store.Add(ctx, key, tokens)
		if err != nil {
			b.logger.Warn("Failed to persist budget", zap.String("key", key), zap.Error(err))
			continue
		}
		totals[i] = total
	}
	b.catchUp(keys, totals)
}

// catchUp raises local windows to the shared totals so spend from other
// replicas counts here too. A total whose key no longer matches the current
// window belongs to a period that has rolled over and is dropped.
func (b *BudgetTracker) catchUp(keys []string, totals []int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollAll()
	for i, w := range []*window{&b.day, &b.month} {
		if b.key(w, w.start) == keys[i] {
			w.used = max(w.used, totals[i])
		}
	}
}

func (b *BudgetTracker) rollAll() {
	now := b.now()
	b.day.roll(now)
	b.month.roll(now)
}

func (b *BudgetTracker) read(fn func() int64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollAll()
	return fn()
}

// Daily returns today's counters under a single lock.
func (b *BudgetTracker) Daily() domusage.Counters {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollAll()
	return b.day.counters()
}

// Monthly returns this month's counters under a single lock.
func (b *BudgetTracker) Monthly() domusage.Counters {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollAll()
	return b.month.counters()
}

// RemainingDaily returns tokens left today, or -1 when unlimited.
func (b *BudgetTracker) RemainingDaily() int64 {
	return b.read(func() int64 { return remaining(b.day.limit, b.day.used) })
}

// RemainingMonthly returns tokens left this month, or -1 when unlimited.
func (b *BudgetTracker) RemainingMonthly() int64 {
	return b.read(func() int64 { return remaining(b.month.limit, b.month.used) })
}

// DailyUsed returns tokens consumed today.
func (b *BudgetTracker) DailyUsed() int64 { return b.read(func() int64 { return b.day.used }) }

// MonthlyUsed returns tokens consumed this month.
func (b *BudgetTracker) MonthlyUsed() int64 { return b.read(func() int64 { return b.month.used }) }

// DailyRequests returns requests recorded by this process today.
func (b *BudgetTracker) DailyRequests() int64 { return b.read(func() int64 { return b.day.requests }) }

// MonthlyRequests returns requests recorded by this process this month.
func (b *BudgetTracker) MonthlyRequests() int64 {
	return b.read(func() int64 { return b.month.requests })
}

func (b *BudgetTracker) DailyLimit() int64   { return b.day.limit }
func (b *BudgetTracker) MonthlyLimit() int64 { return b.month.limit }
func (b *BudgetTracker) Action() string      { return string(b.action) }

func remaining(limit, used int64) int64 {
	if limit == 0 {
		return -1
	}
	return max(limit-used, 0)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
