package recommendation

import (
	"math"
	"sort"

	"github.com/dishola/dishola/internal/domain/search/sortby"
)

// TieThreshold is the primary-key difference below which two items are
// ordered by the secondary key instead.
const TieThreshold = 0.1

// Ranked carries the numeric keys used for ordering alongside a recommendation.
type Ranked struct {
	Recommendation
	// Miles is the distance from the searcher; geo.UnknownMiles when unknown.
	Miles float64
	// Score is the rating key; higher is better. Unparseable ratings are 0.
	Score float64
}

// Sort orders items in place.
//
// Items are first ordered exactly by the primary key, then grouped into
// clusters whose primary keys stay within TieThreshold of the cluster's first
// item. Each cluster is ordered by the secondary key. For every adjacent pair
// (a, b) the primary key of a stays below the primary key of b plus TieThreshold.
func Sort(items []Ranked, by sortby.SortBy) {
	primary, secondary := keys(by)

	sort.SliceStable(items, func(i, j int) bool {
		return primary(items[i]) < primary(items[j])
	})

	for start := 0; start < len(items); {
		end := start + 1
		for end < len(items) && primary(items[end])-primary(items[start]) < TieThreshold {
			end++
		}
		cluster := items[start:end]
		sort.SliceStable(cluster, func(i, j int) bool {
			return secondary(cluster[i]) < secondary(cluster[j])
		})
		start = end
	}
}

// keys returns ascending sort keys for the primary and secondary orderings.
func keys(by sortby.SortBy) (primary, secondary func(Ranked) float64) {
	dist := func(r Ranked) float64 { return sanitize(r.Miles, math.MaxFloat64) }
	rating := func(r Ranked) float64 { return -sanitize(r.Score, 0) }
	if by == sortby.Rating {
		return rating, dist
	}
	return dist, rating
}

func sanitize(v, fallback float64) float64 {
	if math.IsNaN(v) {
		return fallback
	}
	return v
}

// Dedup keeps the first occurrence of each dish/restaurant pair.
func Dedup(items []Ranked) []Ranked {
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, it := range items {
		k := DedupKey(it.Recommendation)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}

// Truncate returns at most n items.
func Truncate(items []Ranked, n int) []Ranked {
	if n >= 0 && len(items) > n {
		return items[:n]
	}
	return items
}

// Unwrap strips the ranking keys.
func Unwrap(items []Ranked) []Recommendation {
	out := make([]Recommendation, len(items))
	for i, it := range items {
		out[i] = it.Recommendation
	}
	return out
}
