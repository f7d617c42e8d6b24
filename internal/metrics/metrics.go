// Package metrics collects and exposes Prometheus metrics for the sessions service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	joins               *prometheus.CounterVec
	decisions           *prometheus.CounterVec
	schedulingConflicts prometheus.Counter
	txRetries           prometheus.Counter
	notificationsDrop   prometheus.Counter
	httpRequests        *prometheus.CounterVec
	httpLatency         *prometheus.HistogramVec
}

// NewCollector builds a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		joins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gym_sessions_join_total",
			Help: "Join attempts by outcome.",
		}, []string{"outcome"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gym_sessions_decision_total",
			Help: "Trainer approve and reject decisions by outcome.",
		}, []string{"decision"}),
		schedulingConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gym_sessions_scheduling_conflict_total",
			Help: "Create or reschedule requests rejected for overlapping a trainer's session.",
		}),
		txRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gym_sessions_tx_retry_total",
			Help: "Transactions replayed after a serialization failure or stale version.",
		}),
		notificationsDrop: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gym_sessions_notification_dropped_total",
			Help: "Session events dropped because the notification queue was full.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gym_sessions_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gym_sessions_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.joins,
		c.decisions,
		c.schedulingConflicts,
		c.txRetries,
		c.notificationsDrop,
		c.httpRequests,
		c.httpLatency,
	)
	return c
}

func (c *Collector) RecordJoin(outcome string) {
	c.joins.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordDecision(decision string) {
	c.decisions.WithLabelValues(decision).Inc()
}

func (c *Collector) RecordSchedulingConflict() {
	c.schedulingConflicts.Inc()
}

func (c *Collector) RecordTxRetry() {
	c.txRetries.Inc()
}

func (c *Collector) RecordNotificationDropped() {
	c.notificationsDrop.Inc()
}

// RecordHTTPRequest is fed by the request middleware. route is the matched
// route pattern, not the raw path, to keep label cardinality bounded.
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
