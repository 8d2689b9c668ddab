package searchcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is a bounded, per-process cache with per-entry TTL.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory creates a cache holding at most size entries for ttl each.
func NewMemory(size int, ttl time.Duration) *Memory {
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get returns the cached payload for key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	return m.lru.Get(key)
}

// Set stores data under key, evicting the oldest entry when full.
func (m *Memory) Set(_ context.Context, key string, data []byte) {
	m.lru.Add(key, data)
}

// Clear drops every entry.
func (m *Memory) Clear(_ context.Context) (int, error) {
	n := m.lru.Len()
	m.lru.Purge()
	return n, nil
}
