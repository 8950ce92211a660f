package repository

import (
	"context"

	"rss-coordinator/internal/domain/entity"
)

// VectorizationTaskRepository stores bookkeeping rows for vector-store writes.
type VectorizationTaskRepository interface {
	// Create appends a task record and fills in its generated id.
	Create(ctx context.Context, task *entity.VectorizationTask) error

	// Get returns the task or (nil, nil) when it does not exist.
	Get(ctx context.Context, taskID int64) (*entity.VectorizationTask, error)

	// Finish records the task outcome.
	Finish(ctx context.Context, task *entity.VectorizationTask) error

	// ListByArticle returns task rows for an article, newest first.
	ListByArticle(ctx context.Context, articleID int64) ([]*entity.VectorizationTask, error)
}
