package repository

import (
	"context"

	"rss-coordinator/internal/domain/entity"
)

// ScriptRepository manages per-feed extraction scripts.
// For a given feed at most one row has is_published = true; Publish clears
// the flag on the previous version in the same transaction.
type ScriptRepository interface {
	// Create inserts a new script version for a feed (unpublished).
	Create(ctx context.Context, script *entity.ExtractionScript) error

	// GetPublished returns the feed's published script, or (nil, nil)
	// when the feed has none.
	GetPublished(ctx context.Context, feedID string) (*entity.ExtractionScript, error)

	// GetPublishedBatch returns the published script per feed id for all
	// feeds that have one. Feeds without a published script are absent
	// from the map.
	GetPublishedBatch(ctx context.Context, feedIDs []string) (map[string]*entity.ExtractionScript, error)

	// Publish marks the script published and unpublishes the feed's
	// previous version transactionally.
	Publish(ctx context.Context, scriptID int64) error

	// ListByFeed returns all versions for a feed, newest version first.
	ListByFeed(ctx context.Context, feedID string) ([]*entity.ExtractionScript, error)
}
