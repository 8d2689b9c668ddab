// Package locate labels coordinates with a nearby place name.
package locate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/dishola/dishola/internal/domain"
	"github.com/dishola/dishola/internal/domain/geo"
	"github.com/dishola/dishola/internal/logger"
)

// Location sources.
const (
	SourceTable    = "table"
	SourceGeocoder = "geocoder"
)

const (
	reverseCacheSize = 1024
	reverseCacheTTL  = 24 * time.Hour
)

// Location is a resolved place label.
type Location struct {
	Label  string `json:"label"`
	Source string `json:"source"`
}

// Service answers from the built-in city table first and falls back to a
// Reverser for coordinates outside every known box.
type Service struct {
	reverser Reverser
	cache    *expirable.LRU[string, string]
	logger   *zap.Logger
}

// New creates a Service. reverser may be nil, which disables the fallback.
func New(reverser Reverser, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		reverser: reverser,
		cache:    expirable.NewLRU[string, string](reverseCacheSize, nil, reverseCacheTTL),
		logger:   logger,
	}
}

// Label returns the table label for a coordinate pair. It never touches the network.
func (s *Service) Label(lat, long float64) (string, bool) {
	for _, c := range cities {
		if c.contains(lat, long) {
			return c.label, true
		}
	}
	if label, ok := s.cache.Get(cacheKey(lat, long)); ok {
		return label, true
	}
	return "", false
}

// Locate resolves a label, consulting the Reverser when the table has no match.
// Returns domain.ErrLocationUnknown when nothing matches.
func (s *Service) Locate(ctx context.Context, lat, long float64) (Location, error) {
	if !geo.ValidateCoordinates(lat, long) {
		return Location{}, domain.NewValidationError("lat/long", "out of range")
	}
	for _, c := range cities {
		if c.contains(lat, long) {
			return Location{Label: c.label, Source: SourceTable}, nil
		}
	}

	key := cacheKey(lat, long)
	if label, ok := s.cache.Get(key); ok {
		return Location{Label: label, Source: SourceGeocoder}, nil
	}
	if s.reverser == nil {
		return Location{}, domain.ErrLocationUnknown
	}

	label, err := s.reverser.Reverse(ctx, lat, long)
	if err != nil {
		logger.FromContextOr(ctx, s.logger).Warn("reverse geocode failed",
			zap.Float64("lat", lat), zap.Float64("long", long), zap.Error(err))
		return Location{}, fmt.Errorf("%w: %w", domain.ErrLocationUnknown, err)
	}
	if label == "" {
		return Location{}, domain.ErrLocationUnknown
	}
	s.cache.Add(key, label)
	return Location{Label: label, Source: SourceGeocoder}, nil
}

// cacheKey buckets coordinates to roughly one kilometre.
func cacheKey(lat, long float64) string {
	return fmt.Sprintf("%.2f,%.2f", math.Round(lat*100)/100, math.Round(long*100)/100)
}
