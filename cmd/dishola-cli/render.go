package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	dishola "github.com/dishola/dishola/pkg/sdk"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dbBadge      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("DB")
	aiBadge      = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Render("AI")
	resultsStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// renderEvent is the one-line progress trace printed while a search streams.
func renderEvent(ev dishola.Event, s dishola.Snapshot) string {
	switch d := ev.Data.(type) {
	case *dishola.Metadata:
		loc := d.Location
		if loc == "" {
			loc = d.Lat + "," + d.Long
		}
		cached := ""
		if d.Cached {
			cached = " (cached)"
		}
		return dimStyle.Render(fmt.Sprintf("searching near %s%s", loc, cached))
	case *dishola.Results:
		return dimStyle.Render(fmt.Sprintf("%s: %d results in %dms", ev.Type, len(d.Results), d.DurationMs))
	case *dishola.Progress:
		return dimStyle.Render(fmt.Sprintf("ai: %d tokens, %.0f tok/s", d.Tokens, d.TokensPerSecond))
	case *dishola.DishEvent:
		return dimStyle.Render(fmt.Sprintf("ai: %s at %s", d.Dish.Name, d.Dish.Restaurant.Name))
	case *dishola.AIError:
		if d.RateLimited || dishola.IsRateLimitMessage(d.Message) {
			return warnStyle.Render("AI is busy right now, showing database results only")
		}
		return warnStyle.Render("AI recommendations unavailable: " + d.Message)
	case *dishola.StreamError:
		return errorStyle.Render(d.Error())
	case *dishola.Summary:
		return dimStyle.Render(fmt.Sprintf("done in %dms, first dish after %s", d.DurationMs, s.FirstDishLatency))
	}
	return ""
}

// renderSnapshot draws the final result list.
func renderSnapshot(s dishola.Snapshot) string {
	var b strings.Builder

	title := "Results"
	if s.Summary != nil && s.Summary.DishName != "" {
		title = s.Summary.DishName
		if s.Summary.Cuisine != "" {
			title += " · " + s.Summary.Cuisine
		}
	}
	if s.Location != "" {
		title += " near " + s.Location
	}
	b.WriteString(headerStyle.Render(title))

	dishes := s.Dishes()
	if len(dishes) == 0 {
		b.WriteString("\n" + dimStyle.Render("no dishes found"))
		return resultsStyle.Render(b.String())
	}
	for i, d := range dishes {
		badge := dbBadge
		if d.Source == dishola.SourceAI {
			badge = aiBadge
		}
		line := fmt.Sprintf("%2d. %s %s at %s", i+1, badge, d.Name, d.Restaurant.Name)
		var meta []string
		if d.Rating != "" && d.Rating != "0" {
			meta = append(meta, "★ "+d.Rating)
		}
		if d.Distance != "" {
			meta = append(meta, d.Distance+" mi")
		}
		if len(meta) > 0 {
			line += " " + dimStyle.Render("("+strings.Join(meta, ", ")+")")
		}
		b.WriteString("\n" + line)
	}
	return resultsStyle.Render(b.String())
}

func renderUsage(r dishola.UsageReport) string {
	lines := []string{
		headerStyle.Render("LLM usage (" + string(r.Period) + ")"),
		fmt.Sprintf("requests: %d", r.Usage.LLMRequests),
		fmt.Sprintf("tokens:   %d", r.Usage.Tokens),
	}
	if r.Budget.TokensLimit > 0 {
		budget := fmt.Sprintf("budget:   %d / %d remaining (%s)", r.Budget.TokensRemaining, r.Budget.TokensLimit, r.Budget.Action)
		if r.Budget.IsExhausted {
			budget = errorStyle.Render(budget + " exhausted")
		}
		lines = append(lines, budget)
	}
	return resultsStyle.Render(strings.Join(lines, "\n"))
}

func renderHealth(h dishola.HealthStatus) string {
	style := headerStyle
	if h.Status != "ok" {
		style = errorStyle
	}
	lines := []string{style.Render("status: " + h.Status)}
	for _, name := range []string{"database", "llm", "cache"} {
		if v, ok := h.Checks[name]; ok {
			lines = append(lines, fmt.Sprintf("%-9s %s", name+":", v))
		}
	}
	return strings.Join(lines, "\n")
}
