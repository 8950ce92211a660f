// Package metrics provides centralized Prometheus metrics for the coordinator.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestSize measures HTTP request body size in bytes
	HTTPRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// HTTPResponseSize measures HTTP response body size in bytes
	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// ActiveConnections tracks the number of active HTTP connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)
)

// Pipeline metrics track the sync, crawl, and vectorization schedulers
var (
	// FeedSyncsTotal counts sync submissions by outcome
	FeedSyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_syncs_total",
			Help: "Total number of feed sync submissions",
		},
		[]string{"status"},
	)

	// FeedsAutoDisabledTotal counts feeds deactivated by the failure threshold
	FeedsAutoDisabledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feeds_auto_disabled_total",
			Help: "Total number of feeds auto-disabled after consecutive failures",
		},
	)

	// ArticlesIngestedTotal counts new articles accepted per feed
	ArticlesIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articles_ingested_total",
			Help: "Total number of new articles inserted from sync results",
		},
		[]string{"feed_id"},
	)

	// CrawlSubmissionsTotal counts crawl result submissions by outcome
	CrawlSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_submissions_total",
			Help: "Total number of crawl result submissions",
		},
		[]string{"status"},
	)

	// ProcessingStepsTotal counts per-article processing steps by outcome.
	// Steps: content_saved, summary_generated, vectorized.
	ProcessingStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "article_processing_steps_total",
			Help: "Total number of per-article processing steps by step and outcome",
		},
		[]string{"step", "status"},
	)

	// SummarizationDuration measures time to produce a bilingual summary
	SummarizationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "summarization_duration_seconds",
			Help:    "Time taken to generate article summaries",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// EmbeddingDuration measures time to embed and upsert one article
	EmbeddingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "embedding_duration_seconds",
			Help:    "Time taken to embed an article and write it to the vector store",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	// LeasesReleasedTotal counts expired leases swept back to the queue
	LeasesReleasedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leases_released_total",
			Help: "Total number of expired leases released by the sweeper",
		},
		[]string{"kind"},
	)

	// DailySummariesTotal counts digest generations by outcome
	DailySummariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daily_summaries_total",
			Help: "Total number of daily digest generations",
		},
		[]string{"status"},
	)

	// HotTopicRunsTotal counts hot-topic aggregation runs by outcome
	HotTopicRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hot_topic_runs_total",
			Help: "Total number of hot-topic aggregation runs",
		},
		[]string{"status"},
	)
)

// Provider metrics track upstream model backends
var (
	// ProviderRequestsTotal counts provider calls by provider, operation, and outcome
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total number of model provider requests",
		},
		[]string{"provider", "operation", "status"},
	)

	// ProviderRequestDuration measures provider call latency
	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Model provider request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"provider", "operation"},
	)

	// StreamSessionsActive tracks concurrently running streaming transformations
	StreamSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_sessions_active",
			Help: "Number of streaming transformation sessions in flight",
		},
	)
)

// Database metrics track database performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration, requestSize, responseSize int) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())

	if requestSize > 0 {
		HTTPRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	}
	if responseSize > 0 {
		HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
	}
}

// RecordOperationDuration records the duration of a named operation
func RecordOperationDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
