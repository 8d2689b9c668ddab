package dbrecommend

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/dishola/dishola/internal/domain"
	"github.com/dishola/dishola/internal/domain/recommendation"
	"github.com/dishola/dishola/internal/domain/search/sortby"
)

// --- Mock ---

type mockRepo struct {
	mu     sync.Mutex
	byName map[string][]recommendation.Candidate
	errFor map[string]error
	calls  []string
	limits []int
}

func (m *mockRepo) FindByName(_ context.Context, name string, limit int) ([]recommendation.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
	m.limits = append(m.limits, limit)
	if err := m.errFor[name]; err != nil {
		return nil, err
	}
	return m.byName[name], nil
}

func ptr(f float64) *float64 { return &f }

func cand(name, restaurant string, vote float64, lat, lng *float64) recommendation.Candidate {
	return recommendation.Candidate{
		Name:    name,
		VoteAvg: vote,
		Restaurant: recommendation.CandidateRestaurant{
			Name: restaurant,
			Lat:  lat,
			Lng:  lng,
		},
	}
}

// San Francisco.
const userLat, userLong = 37.7749, -122.4194

func TestRecommend_FiltersSortsAndConverts(t *testing.T) {
	repo := &mockRepo{byName: map[string][]recommendation.Candidate{
		"tacos": {
			cand("Tacos", "Far Away", 9, ptr(34.0522), ptr(-118.2437)), // Los Angeles
			cand("Tacos", "Oakland Spot", 8, ptr(37.8044), ptr(-122.2712)),
			cand("Tacos", "Next Door", 7, ptr(37.7750), ptr(-122.4195)),
			cand("Tacos", "No Location", 10, nil, nil),
		},
	}}
	svc := New(repo, domain.DefaultPipelineConfig(), zap.NewNop())

	got, _ := svc.Recommend(context.Background(), Query{
		DishNames: []string{"tacos"},
		Lat:       userLat,
		Long:      userLong,
		SortBy:    sortby.Distance,
	})

	if len(got) != 2 {
		t.Fatalf("expected 2 results within radius, got %d: %+v", len(got), got)
	}
	if got[0].Restaurant.Name != "Next Door" || got[1].Restaurant.Name != "Oakland Spot" {
		t.Errorf("order = %s, %s", got[0].Restaurant.Name, got[1].Restaurant.Name)
	}
	if got[0].Dish.Rating != "3.5" {
		t.Errorf("rating = %q, want 3.5 (7/2)", got[0].Dish.Rating)
	}
	if got[0].Source != recommendation.SourceDB || got[0].ID != "db-tacos-next-door-0" {
		t.Errorf("id/source = %q/%q", got[0].ID, got[0].Source)
	}
	if got[0].Distance != "0.0" {
		t.Errorf("distance = %q", got[0].Distance)
	}
	if repo.limits[0] != 50 {
		t.Errorf("candidate limit = %d, want 50", repo.limits[0])
	}
	for _, r := range got {
		d, err := strconv.ParseFloat(r.Distance, 64)
		if err != nil || d > 75 {
			t.Errorf("result %q outside radius: %q", r.Restaurant.Name, r.Distance)
		}
	}
}

func TestRecommend_RatingOrder(t *testing.T) {
	repo := &mockRepo{byName: map[string][]recommendation.Candidate{
		"pho": {
			cand("Pho", "Good", 8.0, ptr(37.78), ptr(-122.42)),
			cand("Pho", "Best Near", 9.5, ptr(37.775), ptr(-122.419)),
			cand("Pho", "Best Far", 9.55, ptr(37.80), ptr(-122.40)),
		},
	}}
	svc := New(repo, domain.DefaultPipelineConfig(), zap.NewNop())

	got, _ := svc.Recommend(context.Background(), Query{DishNames: []string{"pho"}, Lat: userLat, Long: userLong, SortBy: sortby.Rating})
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	// 9.55 and 9.5 tie; distance decides.
	if got[0].Restaurant.Name != "Best Near" || got[1].Restaurant.Name != "Best Far" || got[2].Restaurant.Name != "Good" {
		t.Errorf("order = %s, %s, %s", got[0].Restaurant.Name, got[1].Restaurant.Name, got[2].Restaurant.Name)
	}
}

func TestRecommend_TruncatesAndDedups(t *testing.T) {
	var cands []recommendation.Candidate
	for i := range 20 {
		cands = append(cands, cand("Ramen", "Shop "+strconv.Itoa(i), 8, ptr(37.775), ptr(-122.419)))
	}
	cands = append(cands, cand("ramen", "SHOP 0", 10, ptr(37.775), ptr(-122.419)))
	repo := &mockRepo{byName: map[string][]recommendation.Candidate{"ramen": cands}}

	got, _ := New(repo, domain.DefaultPipelineConfig(), zap.NewNop()).
		Recommend(context.Background(), Query{DishNames: []string{"ramen"}, Lat: userLat, Long: userLong})
	if len(got) != 15 {
		t.Fatalf("expected 15 results, got %d", len(got))
	}
	seen := map[string]bool{}
	for _, r := range got {
		k := recommendation.DedupKey(r)
		if seen[k] {
			t.Errorf("duplicate %q", k)
		}
		seen[k] = true
	}
}

func TestRecommend_DedupKeepsBestRanked(t *testing.T) {
	repo := &mockRepo{byName: map[string][]recommendation.Candidate{
		"tacos": {
			cand("Tacos", "La Taq", 9, ptr(37.90), ptr(-122.4194)),
			cand("tacos", "la taq", 8, ptr(37.7750), ptr(-122.4195)),
		},
	}}
	got, _ := New(repo, domain.DefaultPipelineConfig(), zap.NewNop()).
		Recommend(context.Background(), Query{DishNames: []string{"tacos"}, Lat: userLat, Long: userLong, SortBy: sortby.Distance})

	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d: %+v", len(got), got)
	}
	if got[0].Distance != "0.0" {
		t.Errorf("kept the %s mi duplicate, want 0.0", got[0].Distance)
	}
}

func TestRecommend_RepositoryErrorDegradesToEmpty(t *testing.T) {
	repo := &mockRepo{errFor: map[string]error{"tacos": errors.New("connection refused")}}
	got, degraded := New(repo, domain.DefaultPipelineConfig(), zap.NewNop()).
		Recommend(context.Background(), Query{DishNames: []string{"tacos"}, Lat: userLat, Long: userLong})
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", got)
	}
	if !degraded {
		t.Error("expected degraded after lookup error")
	}
}

func TestRecommend_MultipleTastesPartialFailure(t *testing.T) {
	repo := &mockRepo{
		byName: map[string][]recommendation.Candidate{
			"spicy": {cand("Spicy Noodles", "A", 8, ptr(37.775), ptr(-122.419))},
		},
		errFor: map[string]error{"umami": errors.New("timeout")},
	}
	got, degraded := New(repo, domain.DefaultPipelineConfig(), zap.NewNop()).
		Recommend(context.Background(), Query{DishNames: []string{"spicy", " ", "umami"}, Lat: userLat, Long: userLong})
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	if !degraded {
		t.Error("expected degraded after partial failure")
	}
	if len(repo.calls) != 2 {
		t.Errorf("expected blank names skipped, calls = %v", repo.calls)
	}
}

func TestRecommend_NoNames(t *testing.T) {
	repo := &mockRepo{}
	got, degraded := New(repo, domain.DefaultPipelineConfig(), zap.NewNop()).Recommend(context.Background(), Query{})
	if len(got) != 0 || len(repo.calls) != 0 || degraded {
		t.Errorf("got %d results, %d calls, degraded=%v", len(got), len(repo.calls), degraded)
	}
}
