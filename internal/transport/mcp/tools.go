package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dishola/dishola/internal/domain"
	"github.com/dishola/dishola/internal/domain/recommendation"
	"github.com/dishola/dishola/internal/domain/search/event"
	"github.com/dishola/dishola/internal/domain/search/request"
	domusage "github.com/dishola/dishola/internal/domain/usage"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
)

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{Code: code, Message: message, Data: data}
}

// SearchResult is the collected outcome of one streamed search.
type SearchResult struct {
	Location string                          `json:"location,omitempty"`
	DishName string                          `json:"dishName,omitempty"`
	Cuisine  string                          `json:"cuisine,omitempty"`
	Cached   bool                            `json:"cached"`
	DB       []recommendation.Recommendation `json:"db"`
	AI       []recommendation.Recommendation `json:"ai"`
	AIError  string                          `json:"aiError,omitempty"`
	Error    string                          `json:"error,omitempty"`
}

// collector folds stream events into a SearchResult.
type collector struct {
	mu  sync.Mutex
	res SearchResult
}

func (c *collector) Emit(ev event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch d := ev.Data.(type) {
	case event.MetadataData:
		c.res.Location = d.Location
		c.res.Cached = d.Cached
	case event.ResultsData:
		if ev.Type == event.DBResults {
			c.res.DB = d.Results
		} else {
			c.res.AI = d.Results
		}
	case event.DishData:
		c.res.AI = append(c.res.AI, d.Dish)
	case event.AIErrorData:
		c.res.AIError = d.Message
		if len(c.res.AI) == 0 {
			c.res.AI = d.Placeholder
		}
	case event.ErrorData:
		c.res.Error = d.Message
	case event.CompleteData:
		c.res.DishName = d.DishName
		c.res.Cuisine = d.Cuisine
	}
	return nil
}

func (c *collector) result() SearchResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := c.res
	if res.DB == nil {
		res.DB = []recommendation.Recommendation{}
	}
	if res.AI == nil {
		res.AI = []recommendation.Recommendation{}
	}
	return res
}

// handleSearchDishes handles the search_dishes tool invocation
func (s *Server) handleSearchDishes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := req.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	sreq, err := request.New(
		getString(args, "query"),
		getStrings(args, "tastes"),
		getCoordinate(args, "lat"),
		getCoordinate(args, "long"),
		getString(args, "sort"),
	)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return nil, newMCPError(ErrorCodeInvalidParams, ve.Error(), map[string]interface{}{
				"param":  ve.Field,
				"reason": ve.Reason,
			})
		}
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid request", nil)
	}

	c := &collector{}
	if err := s.search.Search(ctx, &sreq, c); err != nil {
		s.logger.Warn("search_dishes failed", zap.Error(err))
	}

	res := c.result()
	if res.Error != "" {
		return mcp.NewToolResultError(res.Error), nil
	}
	return jsonResult(res)
}

// handleLocate handles the locate tool invocation
func (s *Server) handleLocate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := req.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	lat, err := strconv.ParseFloat(getCoordinate(args, "lat"), 64)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "lat must be a number", nil)
	}
	long, err := strconv.ParseFloat(getCoordinate(args, "long"), 64)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "long must be a number", nil)
	}

	loc, err := s.locate.Locate(ctx, lat, long)
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return nil, newMCPError(ErrorCodeInvalidParams, err.Error(), nil)
	case errors.Is(err, domain.ErrLocationUnknown):
		return mcp.NewToolResultError("no known place at these coordinates"), nil
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "locate failed", nil)
	}
	return jsonResult(loc)
}

// handleGetUsage handles the get_usage tool invocation
func (s *Server) handleGetUsage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := req.Params.Arguments.(map[string]interface{})
	period, ok := domusage.ParsePeriod(getString(args, "period"))
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid period", map[string]interface{}{
			"param":   "period",
			"allowed": []string{"day", "month", "total"},
		})
	}

	report := s.usage.GetReport(ctx, period)
	b := report.Budget()
	return jsonResult(map[string]interface{}{
		"period":           report.Period(),
		"requests":         report.Requests(),
		"tokens_used":      b.TokensUsed,
		"tokens_limit":     b.TokensLimit,
		"tokens_remaining": b.TokensRemaining,
		"is_exhausted":     b.IsExhausted(),
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "encode result", nil)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func getString(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

// getCoordinate accepts both JSON numbers and numeric strings.
func getCoordinate(args map[string]interface{}, key string) string {
	switch v := args[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func getStrings(args map[string]interface{}, key string) []string {
	switch v := args[key].(type) {
	case string:
		return request.SplitTastes(v)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
