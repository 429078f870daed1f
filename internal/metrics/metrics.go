// Package metrics provides Prometheus metrics for the page pipeline.
// Metrics are grouped by HTTP traffic, page persistence, validation and public lookups.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "healthhub"
)

var (
	// HTTP metrics - track request volume and latency
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// Page persistence metrics
	PageWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pages",
			Name:      "writes_total",
			Help:      "Page write operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	// Validator metrics - results of calls to the page validator function
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validator",
			Name:      "calls_total",
			Help:      "Page validation calls by outcome",
		},
		[]string{"outcome"},
	)

	ValidationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "validator",
			Name:      "duration_seconds",
			Help:      "Page validation round-trip duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// Public lookup metrics - terminal states of the page lookup flow
	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lookup",
			Name:      "results_total",
			Help:      "Public page lookups by terminal state",
		},
		[]string{"state"},
	)
)

// Validation outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeInvalid      = "invalid"
	OutcomeAuthRequired = "auth_required"
	OutcomeUnavailable  = "unavailable"
)

// ObservePageWrite records the result of a create, update or delete.
func ObservePageWrite(operation string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	PageWritesTotal.WithLabelValues(operation, result).Inc()
}

// ObserveValidation records a validator call outcome and its latency.
func ObserveValidation(outcome string, started time.Time) {
	ValidationsTotal.WithLabelValues(outcome).Inc()
	if !started.IsZero() {
		ValidationDuration.Observe(time.Since(started).Seconds())
	}
}

// ObserveLookup records the terminal state reached by a public page lookup.
func ObserveLookup(state string) {
	LookupsTotal.WithLabelValues(state).Inc()
}
