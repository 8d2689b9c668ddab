// Package airecommend generates dish recommendations with a streaming LLM call.
package airecommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dishola/dishola/internal/domain"
	"github.com/dishola/dishola/internal/domain/geo"
	"github.com/dishola/dishola/internal/domain/recommendation"
	"github.com/dishola/dishola/internal/domain/search/event"
	"github.com/dishola/dishola/internal/domain/search/sortby"
	"github.com/dishola/dishola/internal/llmjson"
	"github.com/dishola/dishola/internal/logger"
	"github.com/dishola/dishola/internal/metrics"
)

// User-facing explanations carried by the placeholder card.
const (
	msgRateLimited = "AI recommendations are busy right now. Please try again in a minute."
	msgUnavailable = "AI recommendations are temporarily unavailable."
)

// Query is one generation request. Lat and Long keep the caller's text.
type Query struct {
	DishName string
	Cuisine  string
	Tastes   []string
	Lat      string
	Long     string
	SortBy   sortby.SortBy
}

// Result is the outcome of a generation.
type Result struct {
	Recommendations []recommendation.Recommendation
	FirstToken      time.Duration
	Tokens          int
	// Repaired is set when truncated output had to be closed before parsing.
	Repaired bool
}

// GenerationError is a non-fatal model failure. The accompanying Result holds
// a single placeholder recommendation.
type GenerationError struct {
	Message     string
	RateLimited bool
	Err         error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("ai generation: %v", e.Err) }

func (e *GenerationError) Unwrap() error { return e.Err }

// Config tunes generation.
type Config struct {
	Model         string
	Temperature   float32
	MaxTokens     int
	Results       int
	ProgressEvery int
}

// Service is the AI recommender.
type Service struct {
	llm    domain.Streamer
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// New creates an AI recommender.
func New(llm domain.Streamer, cfg Config, logger *zap.Logger) *Service {
	if cfg.Results <= 0 {
		cfg.Results = 15
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 20
	}
	return &Service{llm: llm, cfg: cfg, logger: logger, now: time.Now}
}

// Recommend streams a generation, reporting progress through onProgress, and
// post-processes the output. Malformed output yields an empty list. A model
// failure yields a placeholder and a *GenerationError. Only a prompt
// invariant violation returns a bare error.
func (s *Service) Recommend(
	ctx context.Context, q Query, onProgress func(event.ProgressData),
) (Result, error) {
	log := logger.FromContextOr(ctx, s.logger)

	prompt, err := BuildPrompt(q, s.cfg.Results)
	if err != nil {
		return Result{}, err
	}

	start := s.now()
	var (
		chunks     int
		firstToken time.Duration
	)
	onDelta := func(string) {
		chunks++
		elapsed := s.now().Sub(start)
		if chunks == 1 {
			firstToken = elapsed
		}
		if onProgress == nil || (chunks != 1 && chunks%s.cfg.ProgressEvery != 0) {
			return
		}
		var tps float64
		if secs := elapsed.Seconds(); secs > 0 {
			tps = float64(chunks) / secs
		}
		onProgress(event.ProgressData{
			FirstTokenMs:    firstToken.Milliseconds(),
			Tokens:          chunks,
			TokensPerSecond: tps,
			ElapsedMs:       elapsed.Milliseconds(),
		})
	}

	completion, err := s.llm.Stream(ctx, domain.CompletionRequest{
		Model:       s.cfg.Model,
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	}, onDelta)
	if err != nil {
		rateLimited := errors.Is(err, domain.ErrRateLimited) || errors.Is(err, domain.ErrLLMQuotaExceeded)
		msg := msgUnavailable
		if rateLimited {
			msg = msgRateLimited
		}
		log.Warn("AI generation failed, returning placeholder",
			zap.Bool("rate_limited", rateLimited),
			zap.Int("chunks", chunks),
			zap.Error(err),
		)
		res := Result{
			Recommendations: []recommendation.Recommendation{recommendation.Placeholder(msg)},
			FirstToken:      firstToken,
			Tokens:          chunks,
		}
		return res, &GenerationError{Message: msg, RateLimited: rateLimited, Err: err}
	}

	res := Result{FirstToken: firstToken, Tokens: completion.Tokens()}
	if completion.FirstToken > 0 {
		res.FirstToken = completion.FirstToken
	}

	parsed, err := llmjson.Elements(completion.Text)
	if err != nil {
		metrics.SearchParseFailuresTotal.WithLabelValues("recommendations").Inc()
		log.Warn("AI output unparseable, returning no recommendations",
			zap.String("finish_reason", completion.FinishReason),
			zap.String("preview", llmjson.Preview(completion.Text, 300)),
			zap.Error(err),
		)
		res.Recommendations = []recommendation.Recommendation{}
		return res, nil
	}
	res.Repaired = parsed.Repaired
	if parsed.Repaired {
		log.Info("AI output was truncated and repaired",
			zap.Int("elements", len(parsed.Elements)),
			zap.String("finish_reason", completion.FinishReason),
		)
	}

	res.Recommendations = s.postProcess(q, parsed.Elements, log)
	return res, nil
}

func (s *Service) postProcess(q Query, elems []json.RawMessage, log *zap.Logger) []recommendation.Recommendation {
	ranked := make([]recommendation.Ranked, 0, len(elems))
	dropped := 0
	for _, raw := range elems {
		var w wireRecommendation
		if err := json.Unmarshal(raw, &w); err != nil || !w.valid() {
			dropped++
			continue
		}
		ranked = append(ranked, toRanked(q, w))
	}
	if dropped > 0 {
		log.Debug("Dropped invalid AI recommendations", zap.Int("dropped", dropped), zap.Int("kept", len(ranked)))
	}

	recommendation.Sort(ranked, q.SortBy)
	ranked = recommendation.Dedup(ranked)
	ranked = recommendation.Truncate(ranked, s.cfg.Results)

	out := recommendation.Unwrap(ranked)
	recommendation.AssignIDs(out, recommendation.SourceAI)
	return out
}

func toRanked(q Query, w wireRecommendation) recommendation.Ranked {
	miles := geo.UnknownMiles
	if w.Restaurant.Lat != "" && w.Restaurant.Lng != "" {
		miles = geo.KnownOr(geo.MilesFromStrings(q.Lat, q.Long, string(w.Restaurant.Lat), string(w.Restaurant.Lng)))
	}
	score, err := strconv.ParseFloat(string(w.Dish.Rating), 64)
	if err != nil {
		score = 0
	}

	return recommendation.Ranked{
		Recommendation: recommendation.Recommendation{
			Dish: recommendation.Dish{
				Name:        string(w.Dish.Name),
				Description: string(w.Dish.Description),
				Rating:      string(w.Dish.Rating),
			},
			Restaurant: recommendation.Restaurant{
				Name:    string(w.Restaurant.Name),
				Address: string(w.Restaurant.Address),
				Lat:     string(w.Restaurant.Lat),
				Lng:     string(w.Restaurant.Lng),
				Website: string(w.Restaurant.Website),
			},
			Distance: geo.FormatMiles(miles),
		},
		Miles: miles,
		Score: score,
	}
}
