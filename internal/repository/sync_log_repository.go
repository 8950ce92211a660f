package repository

import (
	"context"

	"rss-coordinator/internal/domain/entity"
)

// SyncStats aggregates feed sync counters for the stats endpoint.
type SyncStats struct {
	TotalSyncs    int64
	OKSyncs       int64
	FailedSyncs   int64
	TotalArticles int64
}

// SyncLogRepository stores append-only feed sync log rows.
type SyncLogRepository interface {
	// Insert appends one sync log record.
	Insert(ctx context.Context, log *entity.FeedSyncLog) error

	// Stats aggregates sync counters.
	Stats(ctx context.Context) (*SyncStats, error)
}
