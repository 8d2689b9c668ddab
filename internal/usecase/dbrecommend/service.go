// Package dbrecommend ranks community dishes from the catalog by distance and rating.
package dbrecommend

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dishola/dishola/internal/domain"
	"github.com/dishola/dishola/internal/domain/geo"
	"github.com/dishola/dishola/internal/domain/recommendation"
	"github.com/dishola/dishola/internal/domain/search/sortby"
	"github.com/dishola/dishola/internal/logger"
)

// maxParallelLookups bounds concurrent catalog queries for multi-taste searches.
const maxParallelLookups = 4

// Query is one catalog search.
type Query struct {
	DishNames []string
	Lat       float64
	Long      float64
	SortBy    sortby.SortBy
}

// Service is the database recommender.
type Service struct {
	repo   Repository
	cfg    domain.PipelineConfig
	logger *zap.Logger
}

// New creates a database recommender.
func New(repo Repository, cfg domain.PipelineConfig, logger *zap.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, logger: logger}
}

// Recommend never fails: lookup errors are logged and yield fewer (or no) results.
// degraded reports whether any lookup failed.
func (s *Service) Recommend(ctx context.Context, q Query) (recs []recommendation.Recommendation, degraded bool) {
	log := logger.FromContextOr(ctx, s.logger)

	names := make([]string, 0, len(q.DishNames))
	for _, n := range q.DishNames {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return []recommendation.Recommendation{}, false
	}

	perName := make([][]recommendation.Candidate, len(names))
	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed int
	)
	g.SetLimit(maxParallelLookups)
	for i, name := range names {
		g.Go(func() error {
			cands, err := s.repo.FindByName(ctx, name, s.cfg.DBCandidates)
			if err != nil {
				log.Warn("Dish lookup failed", zap.String("dish", name), zap.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			perName[i] = cands
			return nil
		})
	}
	_ = g.Wait()

	var ranked []recommendation.Ranked
	for _, cands := range perName {
		for _, c := range cands {
			r := s.rank(c, q.Lat, q.Long)
			if r.Miles > s.cfg.RadiusMiles {
				continue
			}
			ranked = append(ranked, r)
		}
	}

	recommendation.Sort(ranked, q.SortBy)
	ranked = recommendation.Dedup(ranked)
	ranked = recommendation.Truncate(ranked, s.cfg.DBLimit)

	out := recommendation.Unwrap(ranked)
	recommendation.AssignIDs(out, recommendation.SourceDB)

	log.Debug("Database recommendations ready",
		zap.Int("lookups", len(names)),
		zap.Int("failed_lookups", failed),
		zap.Int("results", len(out)),
	)
	return out, failed > 0
}

func (s *Service) rank(c recommendation.Candidate, lat, long float64) recommendation.Ranked {
	miles := geo.UnknownMiles
	var latStr, lngStr string
	if c.Restaurant.Lat != nil && c.Restaurant.Lng != nil {
		miles = geo.KnownOr(geo.Miles(lat, long, *c.Restaurant.Lat, *c.Restaurant.Lng))
		latStr = strconv.FormatFloat(*c.Restaurant.Lat, 'f', -1, 64)
		lngStr = strconv.FormatFloat(*c.Restaurant.Lng, 'f', -1, 64)
	}

	return recommendation.Ranked{
		Recommendation: recommendation.Recommendation{
			Dish: recommendation.Dish{
				Name:        c.Name,
				Description: c.Description,
				Rating:      fmt.Sprintf("%.1f", c.VoteAvg/2),
			},
			Restaurant: recommendation.Restaurant{
				Name:    c.Restaurant.Name,
				Address: c.Restaurant.Address,
				Lat:     latStr,
				Lng:     lngStr,
				Website: c.Restaurant.Website,
			},
			Distance: geo.FormatMiles(miles),
		},
		Miles: miles,
		Score: c.VoteAvg,
	}
}
