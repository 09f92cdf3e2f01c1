package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the roster service
type Metrics struct {
	// Catalog metrics
	CatalogPersonas prometheus.Gauge
	CatalogVersion  prometheus.Gauge
	CatalogReloads  *prometheus.CounterVec
	LoadDuration    prometheus.Histogram
	RecordsSkipped  prometheus.Counter

	// Dispatch metrics
	DispatchesTotal   *prometheus.CounterVec
	DispatchScore     prometheus.Histogram
	SelectionDuration prometheus.Histogram
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter

	// System metrics
	EventsPublished     *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			CatalogPersonas: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "roster_catalog_personas",
					Help: "Number of personas in the current catalog snapshot",
				},
			),
			CatalogVersion: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "roster_catalog_version",
					Help: "Version of the current catalog snapshot",
				},
			),
			CatalogReloads: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "roster_catalog_reloads_total",
					Help: "Total number of catalog load/reload attempts",
				},
				[]string{"result"},
			),
			LoadDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "roster_catalog_load_duration_seconds",
					Help:    "Duration of catalog loads in seconds",
					Buckets: prometheus.ExponentialBuckets(0.001, 4, 8), // 1ms to ~16s
				},
			),
			RecordsSkipped: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "roster_catalog_records_skipped_total",
					Help: "Malformed records skipped during non-strict loads",
				},
			),

			DispatchesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "roster_dispatches_total",
					Help: "Total number of dispatch requests",
				},
				[]string{"result"}, // "selected", "no_match", "cached"
			),
			DispatchScore: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "roster_dispatch_score",
					Help:    "Winning match score per dispatch",
					Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 to 1.0
				},
			),
			SelectionDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "roster_selection_duration_seconds",
					Help:    "Duration of persona selection in seconds",
					Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
				},
			),
			CacheHits: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "roster_dispatch_cache_hits_total",
					Help: "Dispatch results served from cache",
				},
			),
			CacheMisses: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "roster_dispatch_cache_misses_total",
					Help: "Dispatch requests that missed the cache",
				},
			),

			EventsPublished: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "roster_events_published_total",
					Help: "Events published to the event bus",
				},
				[]string{"type"},
			),
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "roster_http_requests_total",
					Help: "Total HTTP requests handled",
				},
				[]string{"path", "method", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "roster_http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
				},
				[]string{"path", "method"},
			),
		}
	})
	return sharedMetrics
}
