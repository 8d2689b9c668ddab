package recommendation

import (
	"fmt"
	"strings"
	"unicode"
)

// Source identifies where a recommendation came from.
type Source string

// Recommendation sources.
const (
	SourceDB Source = "db"
	SourceAI Source = "ai"
)

// Dish is the dish half of a recommendation. Rating is a decimal string in [0,5].
type Dish struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Rating      string `json:"rating"`
}

// Restaurant is the restaurant half of a recommendation.
// Coordinates stay textual since AI output is not guaranteed numeric.
type Restaurant struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Lat     string `json:"lat"`
	Lng     string `json:"lng"`
	Website string `json:"website,omitempty"`
}

// Recommendation is a dish at a restaurant, as sent to clients.
type Recommendation struct {
	ID         string     `json:"id"`
	Source     Source     `json:"source,omitempty"`
	Dish       Dish       `json:"dish"`
	Restaurant Restaurant `json:"restaurant"`
	Distance   string     `json:"distance,omitempty"`
}

// Placeholder is returned in place of AI results when generation fails,
// so clients always have something to render for the AI column.
func Placeholder(reason string) Recommendation {
	return Recommendation{
		ID:     "ai-unavailable-0",
		Source: SourceAI,
		Dish: Dish{
			Name:        "AI recommendations unavailable",
			Description: reason,
			Rating:      "0",
		},
		Restaurant: Restaurant{Name: "Dishola"},
	}
}

// AssignIDs sets ID on every item as "<source>-<dish>-<restaurant>-<index>".
// IDs are unique within one response; they are not stable across requests.
func AssignIDs(items []Recommendation, src Source) {
	for i := range items {
		items[i].Source = src
		items[i].ID = fmt.Sprintf("%s-%s-%s-%d", src, Slug(items[i].Dish.Name), Slug(items[i].Restaurant.Name), i)
	}
}

// Slug lowercases s and collapses every run of non-alphanumerics into one dash.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// DedupKey is the identity used to drop repeated dish/restaurant pairs.
func DedupKey(r Recommendation) string {
	return normalize(r.Dish.Name) + "\x00" + normalize(r.Restaurant.Name)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
