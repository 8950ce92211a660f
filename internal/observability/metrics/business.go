package metrics

import "time"

// Processing step names used with RecordProcessingStep.
const (
	StepContentSaved     = "content_saved"
	StepSummaryGenerated = "summary_generated"
	StepVectorized       = "vectorized"
)

func statusLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

// RecordFeedSync records one sync submission outcome.
func RecordFeedSync(ok bool) {
	FeedSyncsTotal.WithLabelValues(statusLabel(ok)).Inc()
}

// RecordFeedsAutoDisabled records feeds deactivated by an auto-disable pass.
func RecordFeedsAutoDisabled(count int64) {
	if count > 0 {
		FeedsAutoDisabledTotal.Add(float64(count))
	}
}

// RecordArticlesIngested records new articles accepted from a sync result.
func RecordArticlesIngested(feedID string, count int) {
	if count > 0 {
		ArticlesIngestedTotal.WithLabelValues(feedID).Add(float64(count))
	}
}

// RecordCrawlSubmission records one crawl result submission outcome.
func RecordCrawlSubmission(ok bool) {
	CrawlSubmissionsTotal.WithLabelValues(statusLabel(ok)).Inc()
}

// RecordProcessingStep records the outcome of one per-article pipeline step.
// Use the Step* constants for the step name.
func RecordProcessingStep(step string, ok bool) {
	ProcessingStepsTotal.WithLabelValues(step, statusLabel(ok)).Inc()
}

// RecordSummarizationDuration records time spent generating summaries.
func RecordSummarizationDuration(duration time.Duration) {
	SummarizationDuration.Observe(duration.Seconds())
}

// RecordEmbeddingDuration records time spent embedding one article.
func RecordEmbeddingDuration(duration time.Duration) {
	EmbeddingDuration.Observe(duration.Seconds())
}

// RecordLeasesReleased records expired leases swept back to the queue.
// Kind is "crawl" or "sync".
func RecordLeasesReleased(kind string, count int64) {
	if count > 0 {
		LeasesReleasedTotal.WithLabelValues(kind).Add(float64(count))
	}
}

// RecordDailySummary records one digest generation outcome.
func RecordDailySummary(ok bool) {
	DailySummariesTotal.WithLabelValues(statusLabel(ok)).Inc()
}

// RecordHotTopicRun records one hot-topic aggregation outcome.
func RecordHotTopicRun(ok bool) {
	HotTopicRunsTotal.WithLabelValues(statusLabel(ok)).Inc()
}

// RecordProviderRequest records one provider call with its latency.
func RecordProviderRequest(provider, operation string, ok bool, duration time.Duration) {
	ProviderRequestsTotal.WithLabelValues(provider, operation, statusLabel(ok)).Inc()
	ProviderRequestDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// StreamSessionStarted marks a streaming session as in flight.
func StreamSessionStarted() {
	StreamSessionsActive.Inc()
}

// StreamSessionEnded marks a streaming session as finished.
func StreamSessionEnded() {
	StreamSessionsActive.Dec()
}

// UpdateDBPoolStats refreshes the connection pool gauges.
func UpdateDBPoolStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
