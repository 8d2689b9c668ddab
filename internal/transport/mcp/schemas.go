package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchDishesTool returns the tool definition for search_dishes
func searchDishesTool() mcp.Tool {
	return mcp.Tool{
		Name: "search_dishes",
		Description: "Find dishes near a location. Combines the restaurant catalog with AI " +
			"recommendations and returns both lists sorted by distance or rating.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Free-text dish search, e.g. \"spicy ramen\". Takes precedence over tastes.",
				},
				"tastes": map[string]interface{}{
					"type":        "array",
					"description": "Taste preferences used when no query is given",
					"items":       map[string]interface{}{"type": "string"},
				},
				"lat": map[string]interface{}{
					"type":        "string",
					"description": "Latitude in decimal degrees",
				},
				"long": map[string]interface{}{
					"type":        "string",
					"description": "Longitude in decimal degrees",
				},
				"sort": map[string]interface{}{
					"type":        "string",
					"description": "Result ordering",
					"enum":        []string{"distance", "rating"},
					"default":     "distance",
				},
			},
			Required: []string{"lat", "long"},
		},
	}
}

// locateTool returns the tool definition for locate
func locateTool() mcp.Tool {
	return mcp.Tool{
		Name:        "locate",
		Description: "Resolve coordinates to a city label",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"lat":  map[string]interface{}{"type": "number", "description": "Latitude"},
				"long": map[string]interface{}{"type": "number", "description": "Longitude"},
			},
			Required: []string{"lat", "long"},
		},
	}
}

// getUsageTool returns the tool definition for get_usage
func getUsageTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_usage",
		Description: "Report LLM token usage against the configured budget",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"period": map[string]interface{}{
					"type":    "string",
					"enum":    []string{"day", "month", "total"},
					"default": "day",
				},
			},
		},
	}
}
