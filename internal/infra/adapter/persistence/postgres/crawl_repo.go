package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/repository"
)

// CrawlRepo implements repository.CrawlRepository for PostgreSQL.
// Batches and logs are append-only telemetry.
type CrawlRepo struct {
	db *sql.DB
}

// NewCrawlRepo creates a new PostgreSQL-backed CrawlRepository.
func NewCrawlRepo(db *sql.DB) repository.CrawlRepository {
	return &CrawlRepo{db: db}
}

func (repo *CrawlRepo) InsertBatch(ctx context.Context, batch *entity.CrawlBatch) error {
	const query = `
INSERT INTO crawl_batches
       (batch_id, article_id, feed_id, crawler_id, final_status, error_stage,
        error_type, error_message, original_html_size, processed_html_size,
        processed_text_size, content_hash, http_status, image_count,
        link_count, video_count, started_at, ended_at, total_processing_time,
        max_memory_usage, avg_cpu_usage)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
        $16, $17, $18, $19, $20, $21)
RETURNING id, created_at`
	err := repo.db.QueryRowContext(ctx, query,
		batch.BatchID, batch.ArticleID, batch.FeedID, batch.CrawlerID,
		string(batch.FinalStatus), batch.ErrorStage, batch.ErrorType,
		batch.ErrorMessage, batch.OriginalHTMLSize, batch.ProcessedHTMLSize,
		batch.ProcessedTextSize, batch.ContentHash, batch.HTTPStatus,
		batch.ImageCount, batch.LinkCount, batch.VideoCount,
		batch.StartedAt, batch.EndedAt, batch.TotalProcessingTime,
		batch.MaxMemoryUsage, batch.AvgCPUUsage,
	).Scan(&batch.ID, &batch.CreatedAt)
	if err != nil {
		return fmt.Errorf("InsertBatch: %w", err)
	}
	return nil
}

func (repo *CrawlRepo) InsertLogs(ctx context.Context, logs []*entity.CrawlLog) error {
	if len(logs) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`
INSERT INTO crawl_logs (batch_id, article_id, stage, status, message, duration_ms)
VALUES `)
	args := make([]any, 0, len(logs)*6)
	for i, l := range logs {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 6
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args, l.BatchID, l.ArticleID, l.Stage, l.Status, l.Message, l.DurationMS)
	}
	if _, err := repo.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("InsertLogs: %w", err)
	}
	return nil
}

func (repo *CrawlRepo) GetBatch(ctx context.Context, batchID string) (*entity.CrawlBatch, error) {
	const query = `
SELECT id, batch_id, article_id, feed_id, crawler_id, final_status,
       error_stage, error_type, error_message, original_html_size,
       processed_html_size, processed_text_size, content_hash, http_status,
       image_count, link_count, video_count, started_at, ended_at,
       total_processing_time, max_memory_usage, avg_cpu_usage, created_at
FROM crawl_batches
WHERE batch_id = $1
LIMIT 1`
	var b entity.CrawlBatch
	var status string
	err := repo.db.QueryRowContext(ctx, query, batchID).Scan(
		&b.ID, &b.BatchID, &b.ArticleID, &b.FeedID, &b.CrawlerID, &status,
		&b.ErrorStage, &b.ErrorType, &b.ErrorMessage, &b.OriginalHTMLSize,
		&b.ProcessedHTMLSize, &b.ProcessedTextSize, &b.ContentHash,
		&b.HTTPStatus, &b.ImageCount, &b.LinkCount, &b.VideoCount,
		&b.StartedAt, &b.EndedAt, &b.TotalProcessingTime, &b.MaxMemoryUsage,
		&b.AvgCPUUsage, &b.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetBatch: %w", err)
	}
	b.FinalStatus = entity.ArticleStatus(status)
	return &b, nil
}

func (repo *CrawlRepo) ListLogs(ctx context.Context, filter repository.CrawlLogFilter) ([]*entity.CrawlLog, error) {
	var conditions []string
	var args []any
	if filter.BatchID != "" {
		args = append(args, filter.BatchID)
		conditions = append(conditions, fmt.Sprintf("batch_id = $%d", len(args)))
	}
	if filter.ArticleID != 0 {
		args = append(args, filter.ArticleID)
		conditions = append(conditions, fmt.Sprintf("article_id = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
SELECT id, batch_id, article_id, stage, status, message, duration_ms, created_at
FROM crawl_logs
%s
ORDER BY created_at DESC
LIMIT $%d`, where, len(args))

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListLogs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	logs := make([]*entity.CrawlLog, 0, limit)
	for rows.Next() {
		var l entity.CrawlLog
		if err := rows.Scan(&l.ID, &l.BatchID, &l.ArticleID, &l.Stage,
			&l.Status, &l.Message, &l.DurationMS, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListLogs: Scan: %w", err)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

func (repo *CrawlRepo) DeleteLogsByBatch(ctx context.Context, batchID string) (int64, error) {
	const query = `DELETE FROM crawl_logs WHERE batch_id = $1`
	res, err := repo.db.ExecContext(ctx, query, batchID)
	if err != nil {
		return 0, fmt.Errorf("DeleteLogsByBatch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteLogsByBatch: RowsAffected: %w", err)
	}
	return n, nil
}

func (repo *CrawlRepo) Stats(ctx context.Context) (*repository.CrawlStats, error) {
	const query = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE final_status = 'ok'),
       COUNT(*) FILTER (WHERE final_status = 'failed'),
       COALESCE(AVG(total_processing_time), 0)
FROM crawl_batches`
	var stats repository.CrawlStats
	err := repo.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalBatches, &stats.OKBatches, &stats.FailedBatches, &stats.AvgProcessing)
	if err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}
	return &stats, nil
}
