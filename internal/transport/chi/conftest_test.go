package chi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/dishola/dishola/internal/domain"
	"github.com/dishola/dishola/internal/domain/recommendation"
	"github.com/dishola/dishola/internal/domain/search/event"
	"github.com/dishola/dishola/internal/usecase/airecommend"
	"github.com/dishola/dishola/internal/usecase/dbrecommend"
	healthuc "github.com/dishola/dishola/internal/usecase/health"
	locateuc "github.com/dishola/dishola/internal/usecase/locate"
	"github.com/dishola/dishola/internal/usecase/queryparse"
	searchuc "github.com/dishola/dishola/internal/usecase/search"
	usageuc "github.com/dishola/dishola/internal/usecase/usage"
)

type stubParser struct{}

func (stubParser) Parse(_ context.Context, q string) queryparse.Parsed {
	return queryparse.Parsed{DishName: q, Cuisine: queryparse.AnyCuisine}
}

type stubDB struct{ calls int }

func (s *stubDB) Recommend(_ context.Context, _ dbrecommend.Query) ([]recommendation.Recommendation, bool) {
	s.calls++
	return []recommendation.Recommendation{{
		ID:         "db-ramen-ippudo-0",
		Source:     recommendation.SourceDB,
		Dish:       recommendation.Dish{Name: "Ramen", Rating: "4.5"},
		Restaurant: recommendation.Restaurant{Name: "Ippudo"},
	}}, false
}

type stubAI struct {
	fail bool
}

func (s *stubAI) Recommend(
	_ context.Context, _ airecommend.Query, onProgress func(event.ProgressData),
) (airecommend.Result, error) {
	onProgress(event.ProgressData{Tokens: 1})
	if s.fail {
		res := airecommend.Result{
			Recommendations: []recommendation.Recommendation{recommendation.Placeholder("unavailable")},
		}
		return res, &airecommend.GenerationError{
			Message:     "AI recommendations are temporarily unavailable.",
			RateLimited: true,
			Err:         domain.ErrRateLimited,
		}
	}
	return airecommend.Result{Recommendations: []recommendation.Recommendation{{
		ID:         "ai-tonkotsu-ramen-menya-0",
		Source:     recommendation.SourceAI,
		Dish:       recommendation.Dish{Name: "Tonkotsu Ramen", Rating: "4.7"},
		Restaurant: recommendation.Restaurant{Name: "Menya"},
	}}}, nil
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type fixture struct {
	db     *stubDB
	ai     *stubAI
	dbPing stubPinger
}

func newFixture() *fixture {
	return &fixture{db: &stubDB{}, ai: &stubAI{}}
}

func (f *fixture) handler(t *testing.T) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	locate := locateuc.New(nil, logger)
	search := searchuc.New(stubParser{}, f.db, f.ai, nil, locate, domain.DefaultPipelineConfig(), logger)
	server := NewServer(
		search,
		usageuc.New(nil),
		healthuc.New(f.dbPing),
		locate,
		logger,
	)
	return NewRouter(server, logger)
}

func (f *fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	f.handler(t).ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

var errDown = errors.New("connection refused")
