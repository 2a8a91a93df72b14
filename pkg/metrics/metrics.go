// Package metrics defines the Prometheus metric collectors used across the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	IngestRequestsTotal  *prometheus.CounterVec
	AuthFailuresTotal    *prometheus.CounterVec
	SyncDuration         prometheus.Histogram
	IngestJobsTotal      *prometheus.CounterVec
	CacheInvalidations   *prometheus.CounterVec
	TopicReadsTotal      *prometheus.CounterVec
	AuditEventsTotal     *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		IngestRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_requests_total",
				Help: "Total ingest requests by outcome (completed, failed, rejected, invalid).",
			},
			[]string{"outcome"},
		),
		AuthFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_failures_total",
				Help: "Total authentication rejections by reason.",
			},
			[]string{"reason"},
		),
		SyncDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "content_sync_duration_seconds",
				Help:    "Content synchronization transaction latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		IngestJobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_jobs_total",
				Help: "Ingest job records reaching a terminal status.",
			},
			[]string{"status"},
		),
		CacheInvalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_invalidations_total",
				Help: "Cache tag invalidation attempts by result.",
			},
			[]string{"result"},
		),
		TopicReadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "topic_reads_total",
				Help: "Topic view reads by cache status (hit, miss).",
			},
			[]string{"cache_status"},
		),
		AuditEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_events_total",
				Help: "Audit events by publish result.",
			},
			[]string{"result"},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.IngestRequestsTotal,
		m.AuthFailuresTotal,
		m.SyncDuration,
		m.IngestJobsTotal,
		m.CacheInvalidations,
		m.TopicReadsTotal,
		m.AuditEventsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
