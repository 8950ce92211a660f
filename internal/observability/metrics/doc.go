// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - HTTP request metrics (duration, count, size)
//   - Ingestion pipeline metrics (syncs, crawls, vectorizations, summaries)
//   - AI provider request metrics
//   - Database query metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "rss-coordinator/internal/observability/metrics"
//
//	func recordSync(status string, articles int, feedID string) {
//	    metrics.RecordFeedSync(status)
//	    metrics.RecordArticlesIngested(feedID, articles)
//	}
package metrics
