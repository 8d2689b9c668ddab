package dishola

import (
	"encoding/json"
	"time"
)

// Sort orders results.
type Sort string

// Sort constants.
const (
	SortDistance Sort = "distance"
	SortRating   Sort = "rating"
)

// Source identifies which recommender produced a dish.
type Source string

// Source constants.
const (
	SourceDB Source = "db"
	SourceAI Source = "ai"
)

// Params is a search request. Either Query or Tastes must be set.
type Params struct {
	Query  string
	Tastes []string
	Lat    string
	Long   string
	Sort   Sort
}

// Dish is one recommendation: a dish at a restaurant.
type Dish struct {
	ID          string
	Source      Source
	Name        string
	Description string
	Rating      string
	Restaurant  Restaurant
	Distance    string
}

// Restaurant is where a dish is served.
type Restaurant struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Lat     string `json:"lat"`
	Lng     string `json:"lng"`
	Website string `json:"website,omitempty"`
}

type wireDish struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Rating      string `json:"rating"`
}

// UnmarshalJSON flattens the nested dish object of the wire format.
func (d *Dish) UnmarshalJSON(b []byte) error {
	var w struct {
		ID         string     `json:"id"`
		Source     Source     `json:"source"`
		Dish       wireDish   `json:"dish"`
		Restaurant Restaurant `json:"restaurant"`
		Distance   string     `json:"distance"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*d = Dish{
		ID:          w.ID,
		Source:      w.Source,
		Name:        w.Dish.Name,
		Description: w.Dish.Description,
		Rating:      w.Dish.Rating,
		Restaurant:  w.Restaurant,
		Distance:    w.Distance,
	}
	return nil
}

// EventType is the discriminator of a stream event.
type EventType string

// Stream event types.
const (
	EventMetadata   EventType = "metadata"
	EventDBResults  EventType = "dbResults"
	EventAIProgress EventType = "aiProgress"
	EventAIDish     EventType = "aiDish"
	EventAIResults  EventType = "aiResults"
	EventAIError    EventType = "aiError"
	EventError      EventType = "error"
	EventComplete   EventType = "complete"
)

// Event is one decoded stream line. Data holds the payload for Type:
// *Metadata, *Results, *Progress, *DishEvent, *AIError, *StreamError or *Summary.
// Unknown types keep Data nil.
type Event struct {
	Type EventType
	Data any
}

// Metadata is the first event of every search.
type Metadata struct {
	RequestID string    `json:"requestId"`
	Query     string    `json:"query"`
	Tastes    []string  `json:"tastes"`
	Lat       string    `json:"lat"`
	Long      string    `json:"long"`
	SortBy    Sort      `json:"sortBy"`
	Location  string    `json:"location"`
	Cached    bool      `json:"cached"`
	StartedAt time.Time `json:"startedAt"`
}

// Results is one recommender's full result list.
type Results struct {
	Results    []Dish `json:"results"`
	DurationMs int64  `json:"durationMs"`
}

// Progress reports LLM generation speed.
type Progress struct {
	FirstTokenMs    int64   `json:"firstTokenMs"`
	Tokens          int     `json:"tokens"`
	TokensPerSecond float64 `json:"tokensPerSecond"`
	ElapsedMs       int64   `json:"elapsedMs"`
}

// DishEvent carries one AI dish in progressive mode.
type DishEvent struct {
	Index int  `json:"index"`
	Dish  Dish `json:"dish"`
}

// AIError is a non-fatal AI failure. The stream continues.
type AIError struct {
	Message     string `json:"message"`
	RateLimited bool   `json:"rateLimited"`
	Placeholder []Dish `json:"placeholder"`
}

// Summary is the payload of the complete event.
type Summary struct {
	DishName     string `json:"dishName"`
	Cuisine      string `json:"cuisine"`
	DBCount      int    `json:"dbCount"`
	AICount      int    `json:"aiCount"`
	DurationMs   int64  `json:"durationMs"`
	FirstTokenMs int64  `json:"firstTokenMs"`
	Cached       bool   `json:"cached"`
}

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
	PeriodTotal UsagePeriod = "total"
)

// UsageReport is the LLM token usage for a period.
type UsageReport struct {
	Period        UsagePeriod  `json:"period"`
	PeriodStartAt *time.Time   `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time   `json:"period_end_at,omitempty"`
	Usage         UsageMetrics `json:"usage"`
	Budget        BudgetStatus `json:"budget"`
}

// UsageMetrics tracks LLM resource consumption.
type UsageMetrics struct {
	LLMRequests int64 `json:"llm_requests"`
	Tokens      int64 `json:"tokens"`
}

// BudgetStatus tracks token quota state.
type BudgetStatus struct {
	TokensLimit     int64      `json:"tokens_limit"`
	TokensRemaining int64      `json:"tokens_remaining"`
	Action          string     `json:"action"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"`
}

// Location is a place label for a coordinate pair.
type Location struct {
	Label  string `json:"label"`
	Source string `json:"source"`
}
