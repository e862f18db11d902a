// Package metrics defines the Prometheus metrics exported by the API server
// and the fan-out worker.
//
// Metrics are registered on the Registerer passed to New and exposed by the
// server on METRICS_PORT at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "socialgraph"

// Metrics holds every collector used by the application.
type Metrics struct {
	// HTTPRequestsTotal counts requests by method, route template and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration measures handler latency by method and route template.
	HTTPRequestDuration *prometheus.HistogramVec

	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal prometheus.Counter

	// NotificationsCreated counts stored notifications by type.
	NotificationsCreated *prometheus.CounterVec

	// FeedDroppedIdentifiers counts malformed entries skipped while resolving
	// a user's following list for the timeline.
	FeedDroppedIdentifiers prometheus.Counter

	// FanoutJobsTotal counts processed fan-out jobs by result (done, retry).
	FanoutJobsTotal *prometheus.CounterVec

	// FanoutDuration measures the time to deliver one fan-out job.
	FanoutDuration prometheus.Histogram
}

// New creates and registers all collectors on reg.
// Tests pass prometheus.NewRegistry() to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by method and route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RateLimitedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}),
		NotificationsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "notifications",
				Name:      "created_total",
				Help:      "Notifications written by type",
			},
			[]string{"type"},
		),
		FeedDroppedIdentifiers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "dropped_identifiers_total",
			Help:      "Malformed following entries skipped during timeline resolution",
		}),
		FanoutJobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "fanout",
				Name:      "jobs_total",
				Help:      "Fan-out jobs processed by result",
			},
			[]string{"result"},
		),
		FanoutDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fanout",
			Name:      "job_duration_seconds",
			Help:      "Time to deliver all notifications of one fan-out job",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}
