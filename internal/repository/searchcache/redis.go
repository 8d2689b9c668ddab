package searchcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dishola/dishola/internal/db"
)

// store is the consumer interface for the shared cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteMatching(ctx context.Context, pattern string) (int, error)
}

// Redis is a cache shared by every API replica.
// Store failures degrade to misses and are only logged.
type Redis struct {
	store  store
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis creates a shared cache.
func NewRedis(s store, ttl time.Duration, logger *zap.Logger) *Redis {
	return &Redis{store: s, ttl: ttl, logger: logger}
}

// Get returns the cached payload for key.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			r.logger.Warn("Failed to read search cache", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}
	return data, true
}

// Set stores data under key with the configured TTL.
func (r *Redis) Set(ctx context.Context, key string, data []byte) {
	if err := r.store.SetWithTTL(ctx, key, data, r.ttl); err != nil {
		r.logger.Warn("Failed to write search cache", zap.String("key", key), zap.Error(err))
	}
}

// Clear drops every search entry and reports how many went. Budget
// counters share the keyspace and are left alone.
func (r *Redis) Clear(ctx context.Context) (int, error) {
	n, err := r.store.DeleteMatching(ctx, keyPrefix+"*")
	if err != nil {
		return n, fmt.Errorf("clear search cache after %d keys: %w", n, err)
	}
	return n, nil
}
