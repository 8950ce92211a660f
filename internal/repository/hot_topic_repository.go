package repository

import (
	"context"
	"time"

	"rss-coordinator/internal/domain/entity"
)

// HotTopicRepository manages raw platform topics and their clustered groups.
type HotTopicRepository interface {
	// RawTopicsByDate returns active raw topics for the UTC day.
	RawTopicsByDate(ctx context.Context, date time.Time) ([]*entity.RawTopic, error)

	// ReplaceUnifiedByDate deletes the day's groups and bulk-inserts the new
	// ones in one transaction.
	ReplaceUnifiedByDate(ctx context.Context, date time.Time, topics []*entity.UnifiedHotTopic) error

	// UnifiedByDate returns the day's clustered groups.
	UnifiedByDate(ctx context.Context, date time.Time) ([]*entity.UnifiedHotTopic, error)
}
