package search

import (
	"context"

	"github.com/dishola/dishola/internal/domain/recommendation"
	"github.com/dishola/dishola/internal/domain/search/event"
	"github.com/dishola/dishola/internal/usecase/airecommend"
	"github.com/dishola/dishola/internal/usecase/dbrecommend"
	"github.com/dishola/dishola/internal/usecase/queryparse"
)

// QueryParser extracts the dish and cuisine from free text. It never fails.
type QueryParser interface {
	Parse(ctx context.Context, query string) queryparse.Parsed
}

// DBRecommender ranks catalog dishes. It never fails; degraded reports that
// some lookups errored and the list may be incomplete.
type DBRecommender interface {
	Recommend(ctx context.Context, q dbrecommend.Query) (recs []recommendation.Recommendation, degraded bool)
}

// AIRecommender generates recommendations with a streaming LLM call.
type AIRecommender interface {
	Recommend(ctx context.Context, q airecommend.Query, onProgress func(event.ProgressData)) (airecommend.Result, error)
}

// Cache stores finished searches. Implementations treat failures as misses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte)
	Clear(ctx context.Context) (int, error)
}

// Locator labels coordinates without blocking on the network.
type Locator interface {
	Label(lat, long float64) (string, bool)
}

// Emitter delivers stream events to the client in call order.
type Emitter interface {
	Emit(ev event.Event) error
}
