package airecommend

import (
	"fmt"
	"strings"

	"github.com/dishola/dishola/internal/domain"
	"github.com/dishola/dishola/internal/domain/search/sortby"
)

const systemPrompt = "You are a local food expert who knows the best dishes at real, currently open restaurants. " +
	"You answer with raw JSON only: no Markdown, no commentary."

// Distance constraints encoded in the prompt.
const (
	NearMiles = 0.5
	MaxMiles  = 3.0
)

// BuildPrompt renders the generation prompt and checks that the search inputs
// made it into the text. A missing input returns domain.ErrPromptInvariant.
func BuildPrompt(q Query, n int) (string, error) {
	if strings.TrimSpace(q.DishName) == "" || q.Lat == "" || q.Long == "" {
		return "", fmt.Errorf("%w: empty dish or coordinates", domain.ErrPromptInvariant)
	}
	near := (n*8 + 14) / 15

	var b strings.Builder
	fmt.Fprintf(&b, "Recommend exactly %d dishes matching \"%s\"", n, q.DishName)
	if q.Cuisine != "" && !strings.EqualFold(q.Cuisine, "any") {
		fmt.Fprintf(&b, " (%s cuisine)", q.Cuisine)
	}
	fmt.Fprintf(&b, " at restaurants near latitude %s, longitude %s.\n", q.Lat, q.Long)
	if len(q.Tastes) > 0 {
		fmt.Fprintf(&b, "The diner likes: %s. Favor dishes that match these tastes.\n", strings.Join(q.Tastes, ", "))
	}

	b.WriteString("\nHard constraints:\n")
	fmt.Fprintf(&b, "- At least %d of the %d restaurants must be within %.1f miles of the location.\n", near, n, NearMiles)
	fmt.Fprintf(&b, "- No restaurant may be more than %.0f miles away.\n", MaxMiles)
	b.WriteString("- Each dish/restaurant pair appears once.\n")
	b.WriteString("- Use the restaurant's real street address and coordinates.\n")
	if q.SortBy == sortby.Rating {
		b.WriteString("- Order by rating, highest first; for ratings within 0.1, closer restaurants first.\n")
	} else {
		b.WriteString("- Order by distance, closest first; for distances within 0.1 miles, higher rated first.\n")
	}

	b.WriteString(`
Respond with a JSON array only. Each element must look like:
{"dish":{"name":"...","description":"one sentence","rating":"4.6"},` +
		`"restaurant":{"name":"...","address":"...","lat":"37.7749","lng":"-122.4194","website":"https://..."}}
rating is a string between 0.0 and 5.0 with one decimal. lat and lng are decimal strings.`)

	prompt := b.String()
	for _, must := range []string{q.DishName, q.Lat, q.Long} {
		if !strings.Contains(prompt, must) {
			return "", fmt.Errorf("%w: prompt lacks %q", domain.ErrPromptInvariant, must)
		}
	}
	return prompt, nil
}
