// Package search orchestrates the streaming dish search: it acknowledges the
// request, fans out to the catalog and the LLM, and streams each source's
// results as they resolve.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dishola/dishola/internal/domain"
	"github.com/dishola/dishola/internal/domain/recommendation"
	"github.com/dishola/dishola/internal/domain/search/event"
	"github.com/dishola/dishola/internal/domain/search/request"
	"github.com/dishola/dishola/internal/logger"
	"github.com/dishola/dishola/internal/metrics"
	"github.com/dishola/dishola/internal/repository/searchcache"
	"github.com/dishola/dishola/internal/usecase/airecommend"
	"github.com/dishola/dishola/internal/usecase/dbrecommend"
	"github.com/dishola/dishola/internal/usecase/queryparse"
)

const msgSearchFailed = "Search failed. Please try a new search."

// Entry is the cached form of a finished search.
type Entry struct {
	DishName string                          `json:"dishName"`
	Cuisine  string                          `json:"cuisine"`
	DB       []recommendation.Recommendation `json:"db"`
	AI       []recommendation.Recommendation `json:"ai"`
}

// Service is the search orchestrator.
type Service struct {
	parser  QueryParser
	db      DBRecommender
	ai      AIRecommender
	cache   Cache
	locator Locator
	cfg     domain.PipelineConfig
	logger  *zap.Logger
	now     func() time.Time
}

// New creates the orchestrator. cache and locator may be nil.
func New(
	parser QueryParser, db DBRecommender, ai AIRecommender,
	cache Cache, locator Locator, cfg domain.PipelineConfig, logger *zap.Logger,
) *Service {
	return &Service{
		parser:  parser,
		db:      db,
		ai:      ai,
		cache:   cache,
		locator: locator,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Search runs one search, writing events to out. A non-nil error means the
// stream ended with an error event or could not be written at all; AI
// failures are reported in-band and do not return an error.
func (s *Service) Search(ctx context.Context, req *request.Request, out Emitter) error {
	start := s.now()
	requestID := uuid.NewString()
	ctx = logger.With(ctx, zap.String("search_id", requestID))
	log := logger.FromContextOr(ctx, s.logger)
	st := newStream(out)

	key := searchcache.Key(req.CacheParts())
	if entry, ok := s.cached(ctx, key); ok {
		return s.replay(ctx, st, req, requestID, entry, start)
	}

	if err := st.emit(event.NewMetadata(s.metadata(req, requestID, false, start))); err != nil {
		return err
	}

	dishName, cuisine, dishNames := s.resolve(ctx, req)

	var (
		dbResults  []recommendation.Recommendation
		dbDegraded bool
		aiResult   airecommend.Result
		aiErr      error
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		defer recoverPanic(&err, "database recommender")
		t := s.now()
		dbResults, dbDegraded = s.db.Recommend(gctx, dbrecommend.Query{
			DishNames: dishNames,
			Lat:       req.LatFloat(),
			Long:      req.LongFloat(),
			SortBy:    req.SortBy(),
		})
		took := s.now().Sub(t)
		metrics.SearchSourceDuration.WithLabelValues("db").Observe(took.Seconds())
		return st.emit(event.NewDBResults(dbResults, took))
	})

	g.Go(func() (err error) {
		defer recoverPanic(&err, "ai recommender")
		t := s.now()
		aiResult, aiErr = s.ai.Recommend(gctx, airecommend.Query{
			DishName: dishName,
			Cuisine:  cuisine,
			Tastes:   req.Tastes(),
			Lat:      req.Lat(),
			Long:     req.Long(),
			SortBy:   req.SortBy(),
		}, func(p event.ProgressData) {
			// A failed write is sticky and surfaces on the next emit.
			_ = st.emit(event.NewAIProgress(p))
		})
		took := s.now().Sub(t)
		metrics.SearchSourceDuration.WithLabelValues("ai").Observe(took.Seconds())

		var genErr *airecommend.GenerationError
		switch {
		case aiErr == nil:
			return s.emitAI(st, aiResult.Recommendations, took)
		case errors.As(aiErr, &genErr):
			return st.emit(event.NewAIError(event.AIErrorData{
				Message:     genErr.Message,
				RateLimited: genErr.RateLimited,
				Placeholder: aiResult.Recommendations,
			}))
		default:
			return aiErr
		}
	})

	if err := g.Wait(); err != nil {
		if st.broken() {
			log.Info("Search stream aborted by client", zap.Error(err))
			return err
		}
		log.Error("Search failed", zap.Error(err))
		if emitErr := st.emit(event.NewError(msgSearchFailed)); emitErr != nil {
			return errors.Join(err, emitErr)
		}
		return err
	}

	aiCount := len(aiResult.Recommendations)
	if aiErr != nil {
		aiCount = 0
	}
	if err := st.emit(event.NewComplete(event.CompleteData{
		DishName:     dishName,
		Cuisine:      cuisine,
		DBCount:      len(dbResults),
		AICount:      aiCount,
		DurationMs:   s.now().Sub(start).Milliseconds(),
		FirstTokenMs: aiResult.FirstToken.Milliseconds(),
	})); err != nil {
		return err
	}

	log.Info("Search completed",
		zap.String("dish", dishName),
		zap.Int("db_results", len(dbResults)),
		zap.Int("ai_results", aiCount),
		zap.Bool("ai_failed", aiErr != nil),
		zap.Bool("db_degraded", dbDegraded),
		zap.Duration("duration", s.now().Sub(start)),
	)

	// Partial catalog results are not cached.
	if aiErr == nil && aiCount > 0 && !dbDegraded {
		s.store(ctx, key, Entry{DishName: dishName, Cuisine: cuisine, DB: dbResults, AI: aiResult.Recommendations})
	}
	return nil
}

// ClearCache drops every cached search.
func (s *Service) ClearCache(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	n, err := s.cache.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear search cache: %w", err)
	}
	return n, nil
}

// resolve turns the request into the dish name for prompts and the names to
// look up in the catalog. Taste searches skip the parser.
func (s *Service) resolve(ctx context.Context, req *request.Request) (dishName, cuisine string, names []string) {
	if req.Mode() == request.ModeTastes {
		return strings.Join(req.Tastes(), ", "), queryparse.AnyCuisine, req.Tastes()
	}
	p := s.parser.Parse(ctx, req.Query())
	return p.DishName, p.Cuisine, []string{p.DishName}
}

func (s *Service) emitAI(st *stream, recs []recommendation.Recommendation, took time.Duration) error {
	if !s.cfg.ProgressiveAI {
		return st.emit(event.NewAIResults(recs, took))
	}
	for i, r := range recs {
		if err := st.emit(event.NewAIDish(i, r)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) metadata(req *request.Request, requestID string, cached bool, start time.Time) event.MetadataData {
	md := event.MetadataData{
		RequestID: requestID,
		Query:     req.Query(),
		Tastes:    req.Tastes(),
		Lat:       req.Lat(),
		Long:      req.Long(),
		SortBy:    string(req.SortBy()),
		Cached:    cached,
		StartedAt: start.UTC(),
	}
	if s.locator != nil {
		if label, ok := s.locator.Label(req.LatFloat(), req.LongFloat()); ok {
			md.Location = label
		}
	}
	return md
}

func (s *Service) cached(ctx context.Context, key string) (Entry, bool) {
	if s.cache == nil {
		return Entry{}, false
	}
	data, ok := s.cache.Get(ctx, key)
	if !ok {
		metrics.SearchCacheTotal.WithLabelValues("miss").Inc()
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		logger.FromContextOr(ctx, s.logger).Warn("Dropping corrupt cache entry", zap.String("key", key), zap.Error(err))
		metrics.SearchCacheTotal.WithLabelValues("miss").Inc()
		return Entry{}, false
	}
	metrics.SearchCacheTotal.WithLabelValues("hit").Inc()
	return e, true
}

func (s *Service) store(ctx context.Context, key string, e Entry) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		logger.FromContextOr(ctx, s.logger).Warn("Failed to encode cache entry", zap.Error(err))
		return
	}
	s.cache.Set(ctx, key, data)
}

func (s *Service) replay(
	ctx context.Context, st *stream, req *request.Request, requestID string, e Entry, start time.Time,
) error {
	events := []event.Event{
		event.NewMetadata(s.metadata(req, requestID, true, start)),
		event.NewDBResults(e.DB, 0),
		event.NewAIResults(e.AI, 0),
		event.NewComplete(event.CompleteData{
			DishName:   e.DishName,
			Cuisine:    e.Cuisine,
			DBCount:    len(e.DB),
			AICount:    len(e.AI),
			DurationMs: s.now().Sub(start).Milliseconds(),
			Cached:     true,
		}),
	}
	for _, ev := range events {
		if err := st.emit(ev); err != nil {
			return err
		}
	}
	logger.FromContextOr(ctx, s.logger).Info("Search served from cache",
		zap.Int("db_results", len(e.DB)),
		zap.Int("ai_results", len(e.AI)),
	)
	return nil
}

func recoverPanic(err *error, who string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s panic: %v", who, r)
	}
}
