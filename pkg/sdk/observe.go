package dishola

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type sdkMetrics struct {
	calls     *prometheus.CounterVec   // admin calls by endpoint and status
	latency   *prometheus.HistogramVec // admin calls and whole searches
	searches  *prometheus.CounterVec   // searches by terminal state
	dishes    *prometheus.CounterVec   // dishes delivered by source
	firstDish prometheus.Histogram
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	const ns, sub = "dishola", "sdk"
	m := &sdkMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "calls_total",
			Help: "Admin API calls by endpoint and status.",
		}, []string{"call", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub,
			Name:    "call_duration_seconds",
			Help:    "Wall time of SDK calls; for search, until the stream ends.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"call"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "searches_total",
			Help: "Searches by the state they ended in.",
		}, []string{"state"}),
		dishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "dishes_total",
			Help: "Dishes delivered to callers by source.",
		}, []string{"source"}),
		firstDish: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub,
			Name:    "first_dish_seconds",
			Help:    "Time from search start to the first dish.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}),
	}
	for _, err := range []error{
		registerOrReuse(reg, &m.calls),
		registerOrReuse(reg, &m.latency),
		registerOrReuse(reg, &m.searches),
		registerOrReuse(reg, &m.dishes),
		registerOrReuse(reg, &m.firstDish),
	} {
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// registerOrReuse lets several clients share one registry.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	var are prometheus.AlreadyRegisteredError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &are):
		existing, ok := are.ExistingCollector.(T)
		if !ok {
			return fmt.Errorf("dishola: collector registered with type %T", are.ExistingCollector)
		}
		*c = existing
		return nil
	}
	return fmt.Errorf("dishola: register metric: %w", err)
}

// observer logs and measures SDK calls. A nil observer is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

// call records one admin request.
func (o *observer) call(name string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	if o.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.metrics.calls.WithLabelValues(name, status).Inc()
		o.metrics.latency.WithLabelValues(name).Observe(dur.Seconds())
	}
	if o.logger == nil {
		return
	}
	if err != nil {
		o.logger.Warn("call failed", "call", name, "duration", dur, "error", err)
		return
	}
	o.logger.Debug("call completed", "call", name, "duration", dur)
}

// search records a finished search from its final snapshot. Cancelled
// searches are routine under a Session and only logged at debug.
func (o *observer) search(snap Snapshot, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	if o.metrics != nil {
		o.metrics.searches.WithLabelValues(string(snap.State)).Inc()
		o.metrics.latency.WithLabelValues("search").Observe(dur.Seconds())
		o.metrics.dishes.WithLabelValues(string(SourceDB)).Add(float64(len(snap.DB)))
		o.metrics.dishes.WithLabelValues(string(SourceAI)).Add(float64(len(snap.AI)))
		if snap.FirstDishLatency > 0 {
			o.metrics.firstDish.Observe(snap.FirstDishLatency.Seconds())
		}
	}
	if o.logger == nil {
		return
	}
	attrs := []any{
		"state", snap.State,
		"request_id", snap.RequestID,
		"db", len(snap.DB),
		"ai", len(snap.AI),
		"duration", dur,
	}
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		o.logger.Debug("search finished", attrs...)
	default:
		o.logger.Warn("search failed", append(attrs, "error", err)...)
	}
}
