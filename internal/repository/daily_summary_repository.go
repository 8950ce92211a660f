package repository

import (
	"context"
	"time"

	"rss-coordinator/internal/domain/entity"
)

// DailySummaryRepository manages per-feed daily digests.
// Rows are unique on (feed_id, summary_date, language).
type DailySummaryRepository interface {
	// Get returns the digest for the key, or (nil, nil) when absent.
	Get(ctx context.Context, feedID string, date time.Time, lang entity.SummaryLanguage) (*entity.DailySummary, error)

	// Insert appends a digest row. Returns entity.ErrConflict when a row
	// already exists for the key.
	Insert(ctx context.Context, summary *entity.DailySummary) error

	// FeedsNeedingSummary returns ids of feeds that have at least one ok
	// article published on the UTC day and no digest row for the key yet.
	FeedsNeedingSummary(ctx context.Context, date time.Time, lang entity.SummaryLanguage) ([]string, error)

	// ListByDate returns all digests for the UTC day and language.
	ListByDate(ctx context.Context, date time.Time, lang entity.SummaryLanguage) ([]*entity.DailySummary, error)
}
