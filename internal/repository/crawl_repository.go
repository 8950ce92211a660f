package repository

import (
	"context"

	"rss-coordinator/internal/domain/entity"
)

// CrawlStats aggregates crawl telemetry counters.
type CrawlStats struct {
	TotalBatches  int64
	OKBatches     int64
	FailedBatches int64
	AvgProcessing float64
}

// CrawlLogFilter narrows crawl log listings.
type CrawlLogFilter struct {
	BatchID   string
	ArticleID int64
	Limit     int
}

// CrawlRepository stores append-only crawl telemetry.
type CrawlRepository interface {
	// InsertBatch appends one completed-attempt record.
	InsertBatch(ctx context.Context, batch *entity.CrawlBatch) error

	// InsertLogs appends sub-stage timing rows for a batch.
	InsertLogs(ctx context.Context, logs []*entity.CrawlLog) error

	// GetBatch returns the batch by its UUID, or (nil, nil) when absent.
	GetBatch(ctx context.Context, batchID string) (*entity.CrawlBatch, error)

	// ListLogs returns log rows matching the filter, newest first.
	ListLogs(ctx context.Context, filter CrawlLogFilter) ([]*entity.CrawlLog, error)

	// DeleteLogsByBatch removes a batch's log rows; used by batch reset.
	DeleteLogsByBatch(ctx context.Context, batchID string) (int64, error)

	// Stats aggregates batch counters.
	Stats(ctx context.Context) (*CrawlStats, error)
}
