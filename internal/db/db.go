package db

import (
	"context"
	"time"
)

// Store is the shared KV backend: search cache entries and LLM token counters.
type Store interface {
	Pinger
	CacheStore
	CounterStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheStore holds expiring blobs and can drop them by pattern.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteMatching(ctx context.Context, pattern string) (int, error)
}

// CounterStore keeps integer counters whose lifetime starts at first write.
type CounterStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// IncrWithTTL adds delta and returns the new total. ttl is armed only
	// when the key has none, so later writes never extend the window.
	IncrWithTTL(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
}
