package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/repository"
)

// VectorizationTaskRepo implements repository.VectorizationTaskRepository
// for PostgreSQL.
type VectorizationTaskRepo struct {
	db *sql.DB
}

// NewVectorizationTaskRepo creates a new PostgreSQL-backed VectorizationTaskRepository.
func NewVectorizationTaskRepo(db *sql.DB) repository.VectorizationTaskRepository {
	return &VectorizationTaskRepo{db: db}
}

func (repo *VectorizationTaskRepo) Create(ctx context.Context, task *entity.VectorizationTask) error {
	const query = `
INSERT INTO vectorization_tasks
       (batch_id, article_id, worker_id, total_count, processed_count,
        success_count, failed_count, started_at, embedding_model, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id, created_at`
	err := repo.db.QueryRowContext(ctx, query,
		task.BatchID, task.ArticleID, task.WorkerID, task.TotalCount,
		task.ProcessedCount, task.SuccessCount, task.FailedCount,
		task.StartedAt, task.EmbeddingModel, string(task.Status),
	).Scan(&task.ID, &task.CreatedAt)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *VectorizationTaskRepo) Get(ctx context.Context, taskID int64) (*entity.VectorizationTask, error) {
	const query = `
SELECT id, batch_id, article_id, worker_id, total_count, processed_count,
       success_count, failed_count, started_at, ended_at, embedding_model,
       status, error_message, created_at
FROM vectorization_tasks
WHERE id = $1`
	var t entity.VectorizationTask
	var status string
	var errMsg sql.NullString
	err := repo.db.QueryRowContext(ctx, query, taskID).Scan(
		&t.ID, &t.BatchID, &t.ArticleID, &t.WorkerID,
		&t.TotalCount, &t.ProcessedCount, &t.SuccessCount, &t.FailedCount,
		&t.StartedAt, &t.EndedAt, &t.EmbeddingModel, &status,
		&errMsg, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	t.Status = entity.VectorizationStatus(status)
	t.ErrorMessage = errMsg.String
	return &t, nil
}

func (repo *VectorizationTaskRepo) Finish(ctx context.Context, task *entity.VectorizationTask) error {
	const query = `
UPDATE vectorization_tasks
SET processed_count = $1,
    success_count = $2,
    failed_count = $3,
    ended_at = $4,
    status = $5,
    error_message = $6
WHERE id = $7`
	res, err := repo.db.ExecContext(ctx, query,
		task.ProcessedCount, task.SuccessCount, task.FailedCount,
		task.EndedAt, string(task.Status), task.ErrorMessage, task.ID)
	if err != nil {
		return fmt.Errorf("Finish: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Finish: RowsAffected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("Finish: task %d: %w", task.ID, entity.ErrNotFound)
	}
	return nil
}

func (repo *VectorizationTaskRepo) ListByArticle(ctx context.Context, articleID int64) ([]*entity.VectorizationTask, error) {
	const query = `
SELECT id, batch_id, article_id, worker_id, total_count, processed_count,
       success_count, failed_count, started_at, ended_at, embedding_model,
       status, error_message, created_at
FROM vectorization_tasks
WHERE article_id = $1
ORDER BY created_at DESC`
	rows, err := repo.db.QueryContext(ctx, query, articleID)
	if err != nil {
		return nil, fmt.Errorf("ListByArticle: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*entity.VectorizationTask
	for rows.Next() {
		var t entity.VectorizationTask
		var status string
		var errMsg sql.NullString
		if err := rows.Scan(&t.ID, &t.BatchID, &t.ArticleID, &t.WorkerID,
			&t.TotalCount, &t.ProcessedCount, &t.SuccessCount, &t.FailedCount,
			&t.StartedAt, &t.EndedAt, &t.EmbeddingModel, &status,
			&errMsg, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListByArticle: Scan: %w", err)
		}
		t.Status = entity.VectorizationStatus(status)
		t.ErrorMessage = errMsg.String
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}
