// Package budget persists LLM token counters so budgets survive restarts
// and are shared across replicas.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dishola/dishola/internal/db"
)

// Counter lifetimes. Each outlives its period so a late usage report still
// sees the closing total.
const (
	DefaultDailyTTL   = 48 * time.Hour
	DefaultMonthlyTTL = 62 * 24 * time.Hour
)

type counters interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrWithTTL(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
}

// Store maps budget keys onto KV counters.
type Store struct {
	kv         counters
	dailyTTL   time.Duration
	monthlyTTL time.Duration
}

// New creates a Store. Non-positive TTLs fall back to the defaults.
func New(kv counters, dailyTTL, monthlyTTL time.Duration) *Store {
	if dailyTTL <= 0 {
		dailyTTL = DefaultDailyTTL
	}
	if monthlyTTL <= 0 {
		monthlyTTL = DefaultMonthlyTTL
	}
	return &Store{kv: kv, dailyTTL: dailyTTL, monthlyTTL: monthlyTTL}
}

// Add charges tokens to the counter at key and returns the total every
// replica has charged so far this period.
func (s *Store) Add(ctx context.Context, key string, tokens int64) (int64, error) {
	total, err := s.kv.IncrWithTTL(ctx, key, tokens, s.lifetime(key))
	if err != nil {
		return total, fmt.Errorf("budget add %s: %w", key, err)
	}
	return total, nil
}

// Get returns the counter value, or 0 before the first charge of a period.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("budget get %s: %w", key, err)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget get %s: counter %q is not an integer", key, data)
	}
	return n, nil
}

// lifetime picks the TTL from the period segment of keys shaped like
// dishola:budget:{provider}:{daily|monthly}:{date}.
func (s *Store) lifetime(key string) time.Duration {
	parts := strings.Split(key, ":")
	if len(parts) >= 2 && parts[len(parts)-2] == "daily" {
		return s.dailyTTL
	}
	return s.monthlyTTL
}
