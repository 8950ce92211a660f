package repository

import (
	"context"

	"rss-coordinator/internal/domain/entity"
)

// ContentRepository manages immutable ArticleContent rows.
// Rows are insert-only; a crawl reset allocates a new row instead of
// rewriting an old one.
type ContentRepository interface {
	// Create inserts the payload and fills in its generated id.
	Create(ctx context.Context, content *entity.ArticleContent) error

	// Get returns the payload by id, or (nil, nil) when absent.
	Get(ctx context.Context, id int64) (*entity.ArticleContent, error)
}
