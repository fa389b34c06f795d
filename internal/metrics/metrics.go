// Package metrics exposes Prometheus instrumentation for the sync API, the
// enrichment plugins and the HTTP layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync Metrics
	SyncPullsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "listo_sync_pulls_total",
			Help: "Total number of pull requests served",
		},
	)

	SyncPullRecords = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "listo_sync_pull_records",
			Help:    "Number of records returned per pull",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		},
	)

	SyncPushRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listo_sync_push_records_total",
			Help: "Records received by push, by result",
		},
		[]string{"result"}, // "inserted", "overwritten", "ignored", "rejected"
	)

	SyncPushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "listo_sync_push_duration_seconds",
			Help:    "Duration of push batch merges in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Enrichment Metrics
	EnrichmentRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listo_enrichment_requests_total",
			Help: "Enrichment plugin calls, by plugin, operation and outcome",
		},
		[]string{"plugin", "operation", "outcome"}, // outcome: "ok", "error", "cached"
	)

	EnrichmentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listo_enrichment_duration_seconds",
			Help:    "Duration of upstream enrichment calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"plugin", "operation"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listo_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listo_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listo_rate_limited_total",
			Help: "Requests rejected by the inbound rate limiter",
		},
		[]string{"route"},
	)
)

// RecordPull records a served pull.
func RecordPull(records int) {
	SyncPullsTotal.Inc()
	SyncPullRecords.Observe(float64(records))
}

// RecordPush records a merged push batch.
func RecordPush(duration time.Duration, inserted, overwritten, ignored, rejected int) {
	SyncPushDuration.Observe(duration.Seconds())
	SyncPushRecords.WithLabelValues("inserted").Add(float64(inserted))
	SyncPushRecords.WithLabelValues("overwritten").Add(float64(overwritten))
	SyncPushRecords.WithLabelValues("ignored").Add(float64(ignored))
	SyncPushRecords.WithLabelValues("rejected").Add(float64(rejected))
}

// RecordEnrichment records one plugin call. duration is ignored for cache
// hits.
func RecordEnrichment(plugin, operation string, duration time.Duration, cached bool, err error) {
	outcome := "ok"
	switch {
	case cached:
		EnrichmentRequests.WithLabelValues(plugin, operation, "cached").Inc()
		return
	case err != nil:
		outcome = "error"
	}
	EnrichmentRequests.WithLabelValues(plugin, operation, outcome).Inc()
	EnrichmentDuration.WithLabelValues(plugin, operation).Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRateLimited counts a request refused by the rate limiter.
func RecordRateLimited(route string) {
	RateLimitedTotal.WithLabelValues(route).Inc()
}
