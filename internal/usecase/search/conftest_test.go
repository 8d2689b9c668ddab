package search

import (
	"context"
	"errors"
	"sync"

	"github.com/dishola/dishola/internal/domain/recommendation"
	"github.com/dishola/dishola/internal/domain/search/event"
	"github.com/dishola/dishola/internal/usecase/airecommend"
	"github.com/dishola/dishola/internal/usecase/dbrecommend"
	"github.com/dishola/dishola/internal/usecase/queryparse"
)

// --- QueryParser ---

type mockParser struct {
	parsed queryparse.Parsed
	calls  int
}

func (m *mockParser) Parse(_ context.Context, query string) queryparse.Parsed {
	m.calls++
	if m.parsed.DishName == "" {
		return queryparse.Parsed{DishName: query, Cuisine: queryparse.AnyCuisine}
	}
	return m.parsed
}

// --- DBRecommender ---

type mockDB struct {
	results  []recommendation.Recommendation
	degraded bool
	panics   bool
	query   dbrecommend.Query
	calls   int
}

func (m *mockDB) Recommend(_ context.Context, q dbrecommend.Query) ([]recommendation.Recommendation, bool) {
	m.calls++
	m.query = q
	if m.panics {
		panic("nil map")
	}
	return m.results, m.degraded
}

// --- AIRecommender ---

type mockAI struct {
	result   airecommend.Result
	err      error
	progress int
	query    airecommend.Query
	calls    int
}

func (m *mockAI) Recommend(
	_ context.Context, q airecommend.Query, onProgress func(event.ProgressData),
) (airecommend.Result, error) {
	m.calls++
	m.query = q
	for i := range m.progress {
		onProgress(event.ProgressData{Tokens: i + 1})
	}
	return m.result, m.err
}

// --- Cache ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[key]
	return d, ok
}

func (m *mockCache) Set(_ context.Context, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.data[key] = data
}

func (m *mockCache) Clear(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.data)
	m.data = make(map[string][]byte)
	return n, nil
}

// --- Locator ---

type mockLocator struct{ label string }

func (m *mockLocator) Label(_, _ float64) (string, bool) { return m.label, m.label != "" }

// --- Emitter ---

var errClientGone = errors.New("broken pipe")

type recorder struct {
	events []event.Event
	// failAfter makes every write after the first n fail; 0 disables.
	failAfter int
}

func (r *recorder) Emit(ev event.Event) error {
	if r.failAfter > 0 && len(r.events) >= r.failAfter {
		return errClientGone
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []event.Type {
	out := make([]event.Type, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *recorder) find(t event.Type) (event.Event, bool) {
	for _, ev := range r.events {
		if ev.Type == t {
			return ev, true
		}
	}
	return event.Event{}, false
}

func (r *recorder) count(t event.Type) int {
	n := 0
	for _, ev := range r.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}
