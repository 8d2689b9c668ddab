// Package queryparse turns free-text searches into a dish name and cuisine.
package queryparse

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dishola/dishola/internal/domain"
	"github.com/dishola/dishola/internal/llmjson"
	"github.com/dishola/dishola/internal/logger"
	"github.com/dishola/dishola/internal/metrics"
)

// AnyCuisine is reported when the cuisine cannot be determined.
const AnyCuisine = "Any"

// Temperature keeps extraction close to deterministic.
const Temperature = 0.3

const systemPrompt = "You extract structured search intent from food searches. " +
	"Reply with a single JSON object and nothing else."

// Parsed is the structured form of a search.
type Parsed struct {
	DishName string `json:"dishName"`
	Cuisine  string `json:"cuisine"`
}

// Service parses queries with one non-streaming LLM call.
type Service struct {
	llm       domain.Completer
	model     string
	maxTokens int
	logger    *zap.Logger
}

// New creates a query parser. model may be empty for the client default.
func New(llm domain.Completer, model string, logger *zap.Logger) *Service {
	return &Service{llm: llm, model: model, maxTokens: 200, logger: logger}
}

// Parse never fails: any LLM or decode error yields the original text with AnyCuisine.
func (s *Service) Parse(ctx context.Context, query string) Parsed {
	fallback := Parsed{DishName: query, Cuisine: AnyCuisine}
	log := logger.FromContextOr(ctx, s.logger)

	res, err := s.llm.Complete(ctx, domain.CompletionRequest{
		Model:       s.model,
		System:      systemPrompt,
		Prompt:      BuildPrompt(query),
		Temperature: Temperature,
		MaxTokens:   s.maxTokens,
		JSONMode:    true,
	})
	if err != nil {
		metrics.SearchParseFailuresTotal.WithLabelValues("query").Inc()
		log.Warn("Query parse failed, using raw query", zap.String("query", query), zap.Error(err))
		return fallback
	}

	var p Parsed
	if err := llmjson.Object(res.Text, &p); err != nil {
		metrics.SearchParseFailuresTotal.WithLabelValues("query").Inc()
		log.Warn("Query parse returned invalid JSON, using raw query",
			zap.String("query", query),
			zap.String("preview", llmjson.Preview(res.Text, 200)),
			zap.Error(err),
		)
		return fallback
	}

	p.DishName = strings.TrimSpace(p.DishName)
	p.Cuisine = strings.TrimSpace(p.Cuisine)
	if p.DishName == "" {
		p.DishName = query
	}
	if p.Cuisine == "" {
		p.Cuisine = AnyCuisine
	}
	return p
}

// BuildPrompt renders the extraction prompt for a query.
func BuildPrompt(query string) string {
	return fmt.Sprintf(`Extract the dish and cuisine from this food search: %q

Return JSON exactly like {"dishName": "...", "cuisine": "..."}.
- dishName: the specific dish being searched for, singular, without location words.
- cuisine: the cuisine it belongs to (e.g. "Mexican", "Japanese"), or "Any" if unclear.`, query)
}
