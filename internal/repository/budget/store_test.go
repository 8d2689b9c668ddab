package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dishola/dishola/internal/db"
)

type fakeCounters struct {
	values map[string]int64
	raw    map[string][]byte
	ttls   map[string]time.Duration
	err    error
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{values: map[string]int64{}, raw: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCounters) Get(_ context.Context, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.raw[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeCounters) IncrWithTTL(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.values[key] += delta
	if _, ok := f.ttls[key]; !ok {
		f.ttls[key] = ttl
	}
	return f.values[key], nil
}

func TestAdd_TTLByPeriod(t *testing.T) {
	kv := newFakeCounters()
	s := New(kv, time.Hour, 2*time.Hour)
	ctx := context.Background()

	daily := "dishola:budget:openai:daily:2026-10-16"
	monthly := "dishola:budget:openai:monthly:2026-10"
	if _, err := s.Add(ctx, daily, 40); err != nil {
		t.Fatal(err)
	}
	total, err := s.Add(ctx, daily, 2)
	if err != nil || total != 42 {
		t.Fatalf("Add = %d, %v; want 42", total, err)
	}
	if _, err := s.Add(ctx, monthly, 1); err != nil {
		t.Fatal(err)
	}

	if kv.ttls[daily] != time.Hour {
		t.Errorf("daily ttl = %v", kv.ttls[daily])
	}
	if kv.ttls[monthly] != 2*time.Hour {
		t.Errorf("monthly ttl = %v", kv.ttls[monthly])
	}
}

func TestAdd_Error(t *testing.T) {
	kv := newFakeCounters()
	kv.err = errors.New("down")
	if _, err := New(kv, 0, 0).Add(context.Background(), "k:daily:x", 1); err == nil {
		t.Fatal("expected error")
	}
}

func TestGet(t *testing.T) {
	kv := newFakeCounters()
	kv.raw["present"] = []byte("1500\n")
	kv.raw["garbage"] = []byte("abc")
	s := New(kv, 0, 0)
	ctx := context.Background()

	if v, err := s.Get(ctx, "present"); err != nil || v != 1500 {
		t.Errorf("Get(present) = %d, %v", v, err)
	}
	if v, err := s.Get(ctx, "missing"); err != nil || v != 0 {
		t.Errorf("Get(missing) = %d, %v", v, err)
	}
	if _, err := s.Get(ctx, "garbage"); err == nil {
		t.Error("expected parse error")
	}

	kv.err = errors.New("timeout")
	if _, err := s.Get(ctx, "present"); err == nil {
		t.Error("expected store error")
	}
}

func TestNew_DefaultTTLs(t *testing.T) {
	s := New(newFakeCounters(), 0, 0)
	if s.dailyTTL != DefaultDailyTTL || s.monthlyTTL != DefaultMonthlyTTL {
		t.Errorf("ttls = %v/%v", s.dailyTTL, s.monthlyTTL)
	}
}
