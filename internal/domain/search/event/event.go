package event

import (
	"time"

	"github.com/dishola/dishola/internal/domain/recommendation"
)

// Type is the discriminator of a stream event.
type Type string

// Stream event types, in the order a client usually sees them.
const (
	Metadata   Type = "metadata"
	DBResults  Type = "dbResults"
	AIProgress Type = "aiProgress"
	AIDish     Type = "aiDish"
	AIResults  Type = "aiResults"
	AIError    Type = "aiError"
	Error      Type = "error"
	Complete   Type = "complete"
)

// Event is one line of the search stream.
type Event struct {
	Type Type `json:"type"`
	Data any  `json:"data"`
}

// MetadataData acknowledges the request and echoes its parameters.
type MetadataData struct {
	RequestID string    `json:"requestId"`
	Query     string    `json:"query,omitempty"`
	Tastes    []string  `json:"tastes,omitempty"`
	Lat       string    `json:"lat"`
	Long      string    `json:"long"`
	SortBy    string    `json:"sortBy"`
	Location  string    `json:"location,omitempty"`
	Cached    bool      `json:"cached"`
	StartedAt time.Time `json:"startedAt"`
}

// ResultsData carries one recommender's complete, sorted result list.
type ResultsData struct {
	Results    []recommendation.Recommendation `json:"results"`
	DurationMs int64                           `json:"durationMs"`
}

// ProgressData reports LLM streaming progress.
type ProgressData struct {
	FirstTokenMs    int64   `json:"firstTokenMs"`
	Tokens          int     `json:"tokens"`
	TokensPerSecond float64 `json:"tokensPerSecond"`
	ElapsedMs       int64   `json:"elapsedMs"`
}

// DishData carries a single AI recommendation in progressive mode.
type DishData struct {
	Index int                           `json:"index"`
	Dish  recommendation.Recommendation `json:"dish"`
}

// AIErrorData reports a non-fatal AI failure. The stream continues.
type AIErrorData struct {
	Message     string                          `json:"message"`
	RateLimited bool                            `json:"rateLimited"`
	Placeholder []recommendation.Recommendation `json:"placeholder,omitempty"`
}

// ErrorData reports a fatal pipeline failure. No complete event follows.
type ErrorData struct {
	Message string `json:"message"`
}

// CompleteData summarizes a finished search.
type CompleteData struct {
	DishName     string `json:"dishName,omitempty"`
	Cuisine      string `json:"cuisine,omitempty"`
	DBCount      int    `json:"dbCount"`
	AICount      int    `json:"aiCount"`
	DurationMs   int64  `json:"durationMs"`
	FirstTokenMs int64  `json:"firstTokenMs,omitempty"`
	Cached       bool   `json:"cached"`
}

// Terminal reports whether no further events may follow t.
func (t Type) Terminal() bool {
	return t == Complete || t == Error
}

// NewMetadata builds a metadata event.
func NewMetadata(d MetadataData) Event { return Event{Type: Metadata, Data: d} }

// NewDBResults builds a dbResults event.
func NewDBResults(results []recommendation.Recommendation, took time.Duration) Event {
	return Event{Type: DBResults, Data: ResultsData{Results: nonNil(results), DurationMs: took.Milliseconds()}}
}

// NewAIResults builds an aiResults event.
func NewAIResults(results []recommendation.Recommendation, took time.Duration) Event {
	return Event{Type: AIResults, Data: ResultsData{Results: nonNil(results), DurationMs: took.Milliseconds()}}
}

// NewAIProgress builds an aiProgress event.
func NewAIProgress(d ProgressData) Event { return Event{Type: AIProgress, Data: d} }

// NewAIDish builds an aiDish event.
func NewAIDish(index int, dish recommendation.Recommendation) Event {
	return Event{Type: AIDish, Data: DishData{Index: index, Dish: dish}}
}

// NewAIError builds an aiError event.
func NewAIError(d AIErrorData) Event { return Event{Type: AIError, Data: d} }

// NewError builds an error event.
func NewError(message string) Event { return Event{Type: Error, Data: ErrorData{Message: message}} }

// NewComplete builds a complete event.
func NewComplete(d CompleteData) Event { return Event{Type: Complete, Data: d} }

func nonNil(in []recommendation.Recommendation) []recommendation.Recommendation {
	if in == nil {
		return []recommendation.Recommendation{}
	}
	return in
}
