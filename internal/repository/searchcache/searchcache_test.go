package searchcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestKey_DeterministicAndPrefixed(t *testing.T) {
	a := Key([]string{"tacos", "37.7749", "-122.4194", "", "distance"})
	b := Key([]string{"tacos", "37.7749", "-122.4194", "", "distance"})
	c := Key([]string{"tacos", "37.7749", "-122.4194", "", "rating"})
	if a != b {
		t.Errorf("same parts produced different keys: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different parts produced the same key")
	}
	if !strings.HasPrefix(a, "dishola:search:") {
		t.Errorf("missing prefix: %s", a)
	}
}

func TestKey_PartBoundaries(t *testing.T) {
	if Key([]string{"ab", "c"}) == Key([]string{"a", "bc"}) {
		t.Error("part boundaries must affect the key")
	}
}

func TestMemory_SetGet(t *testing.T) {
	m := NewMemory(10, time.Minute)
	ctx := context.Background()

	if _, ok := m.Get(ctx, "k"); ok {
		t.Fatal("expected miss on empty cache")
	}
	m.Set(ctx, "k", []byte("v"))
	got, ok := m.Get(ctx, "k")
	if !ok || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
}

func TestMemory_Expires(t *testing.T) {
	m := NewMemory(10, 20*time.Millisecond)
	ctx := context.Background()

	m.Set(ctx, "k", []byte("v"))
	time.Sleep(60 * time.Millisecond)
	if _, ok := m.Get(ctx, "k"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestMemory_BoundedSize(t *testing.T) {
	m := NewMemory(2, time.Minute)
	ctx := context.Background()

	m.Set(ctx, "a", []byte("1"))
	m.Set(ctx, "b", []byte("2"))
	m.Set(ctx, "c", []byte("3"))
	if _, ok := m.Get(ctx, "a"); ok {
		t.Error("oldest entry should be evicted")
	}
	if _, ok := m.Get(ctx, "c"); !ok {
		t.Error("newest entry should be present")
	}
}

func TestMemory_Clear(t *testing.T) {
	m := NewMemory(10, time.Minute)
	ctx := context.Background()
	m.Set(ctx, "a", []byte("1"))
	m.Set(ctx, "b", []byte("2"))

	n, err := m.Clear(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("cleared %d, want 2", n)
	}
	if _, ok := m.Get(ctx, "a"); ok {
		t.Error("expected empty cache after Clear")
	}
}

func TestRedis_SetGetUsesTTL(t *testing.T) {
	s := newMockKVStore()
	r := NewRedis(s, 5*time.Minute, zap.NewNop())
	ctx := context.Background()

	r.Set(ctx, "k", []byte("payload"))
	if s.ttls["k"] != 5*time.Minute {
		t.Errorf("ttl = %v", s.ttls["k"])
	}
	got, ok := r.Get(ctx, "k")
	if !ok || string(got) != "payload" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
}

func TestRedis_StoreErrorIsMiss(t *testing.T) {
	s := newMockKVStore()
	s.getErr = errors.New("connection reset")
	r := NewRedis(s, time.Minute, zap.NewNop())

	if _, ok := r.Get(context.Background(), "k"); ok {
		t.Fatal("store error must be reported as a miss")
	}
}

func TestRedis_SetErrorSwallowed(t *testing.T) {
	s := newMockKVStore()
	s.setErr = errors.New("oom")
	r := NewRedis(s, time.Minute, zap.NewNop())

	r.Set(context.Background(), "k", []byte("v"))
	if _, ok := s.data["k"]; ok {
		t.Fatal("nothing should be stored")
	}
}

func TestRedis_ClearOnlySearchKeys(t *testing.T) {
	s := newMockKVStore()
	r := NewRedis(s, time.Minute, zap.NewNop())
	ctx := context.Background()

	r.Set(ctx, Key([]string{"a"}), []byte("1"))
	r.Set(ctx, Key([]string{"b"}), []byte("2"))
	s.data["dishola:budget:llm:daily:2026-01-01"] = []byte("10")

	n, err := r.Clear(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("cleared %d, want 2", n)
	}
	if _, ok := s.data["dishola:budget:llm:daily:2026-01-01"]; !ok {
		t.Error("non-search keys must survive Clear")
	}
}

func TestRedis_ClearUsesSearchPattern(t *testing.T) {
	s := newMockKVStore()
	r := NewRedis(s, time.Minute, zap.NewNop())

	if n, err := r.Clear(context.Background()); err != nil || n != 0 {
		t.Fatalf("Clear = %d, %v", n, err)
	}
	if len(s.patterns) != 1 || s.patterns[0] != "dishola:search:*" {
		t.Errorf("patterns = %v", s.patterns)
	}
}

func TestRedis_ClearDelError(t *testing.T) {
	s := newMockKVStore()
	r := NewRedis(s, time.Minute, zap.NewNop())
	ctx := context.Background()
	r.Set(ctx, Key([]string{"a"}), []byte("1"))
	s.delErr = errors.New("readonly")

	if _, err := r.Clear(ctx); err == nil {
		t.Fatal("expected error")
	}
}
