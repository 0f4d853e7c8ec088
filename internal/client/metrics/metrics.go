// Package metrics collects client-side Prometheus counters and exposes them
// on an optional scrape endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector gathers counters for the session and live-query layers. A nil
// *Collector is valid and records nothing, so wiring metrics stays optional.
type Collector struct {
	sessionTransitions *prometheus.CounterVec
	readErrorsDropped  *prometheus.CounterVec
	liveEventsApplied  *prometheus.CounterVec
	refetches          *prometheus.CounterVec
	statsWrites        *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profilehub_session_transitions_total",
			Help: "Session state transitions by resulting state.",
		}, []string{"state"}),
		readErrorsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profilehub_read_errors_dropped_total",
			Help: "Read-path errors swallowed in favor of the default value.",
		}, []string{"table"}),
		liveEventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profilehub_live_events_applied_total",
			Help: "Change events applied to local mirrors.",
		}, []string{"table", "type"}),
		refetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profilehub_refetches_total",
			Help: "Full re-fetches triggered by change events.",
		}, []string{"table"}),
		statsWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profilehub_stats_writes_total",
			Help: "Stats update attempts by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.sessionTransitions,
		c.readErrorsDropped,
		c.liveEventsApplied,
		c.refetches,
		c.statsWrites,
	)

	return c
}

func (c *Collector) RecordSessionTransition(state string) {
	if c == nil {
		return
	}
	c.sessionTransitions.WithLabelValues(state).Inc()
}

func (c *Collector) RecordReadErrorDropped(table string) {
	if c == nil {
		return
	}
	c.readErrorsDropped.WithLabelValues(table).Inc()
}

func (c *Collector) RecordLiveEvent(table, eventType string) {
	if c == nil {
		return
	}
	c.liveEventsApplied.WithLabelValues(table, eventType).Inc()
}

func (c *Collector) RecordRefetch(table string) {
	if c == nil {
		return
	}
	c.refetches.WithLabelValues(table).Inc()
}

func (c *Collector) RecordStatsWrite(outcome string) {
	if c == nil {
		return
	}
	c.statsWrites.WithLabelValues(outcome).Inc()
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}
