package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dishola",
			Name:      "search_events_total",
			Help:      "Stream events written, by type",
		},
		[]string{"type"},
	)

	SearchSourceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dishola",
			Name:      "search_source_duration_seconds",
			Help:      "Time for a recommendation source to produce its results",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"source"}, // "db" / "ai"
	)

	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dishola",
			Name:      "search_cache_total",
			Help:      "Search cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	SearchParseFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dishola",
			Name:      "search_parse_failures_total",
			Help:      "LLM outputs that could not be parsed, by stage",
		},
		[]string{"stage"}, // "query" / "recommendations"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchEventsTotal)
	prometheus.MustRegister(SearchSourceDuration)
	prometheus.MustRegister(SearchCacheTotal)
	prometheus.MustRegister(SearchParseFailuresTotal)
	searchMetricsRegistered = true
}
