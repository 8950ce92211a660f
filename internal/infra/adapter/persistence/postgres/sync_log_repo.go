package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/repository"
)

// SyncLogRepo implements repository.SyncLogRepository for PostgreSQL.
type SyncLogRepo struct {
	db *sql.DB
}

// NewSyncLogRepo creates a new PostgreSQL-backed SyncLogRepository.
func NewSyncLogRepo(db *sql.DB) repository.SyncLogRepository {
	return &SyncLogRepo{db: db}
}

func (repo *SyncLogRepo) Insert(ctx context.Context, log *entity.FeedSyncLog) error {
	const query = `
INSERT INTO feed_sync_logs
       (sync_id, total_feeds, synced_feeds, failed_feeds, total_articles,
        status, start_time, end_time, total_time, details, triggered_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id, created_at`
	err := repo.db.QueryRowContext(ctx, query,
		log.SyncID, log.TotalFeeds, log.SyncedFeeds, log.FailedFeeds,
		log.TotalArticles, string(log.Status), log.StartTime, log.EndTime,
		log.TotalTime, log.Details, log.TriggeredBy,
	).Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	return nil
}

func (repo *SyncLogRepo) Stats(ctx context.Context) (*repository.SyncStats, error) {
	const query = `
SELECT COUNT(*),
       COUNT(*) FILTER (WHERE status = 'ok'),
       COUNT(*) FILTER (WHERE status = 'failed'),
       COALESCE(SUM(total_articles), 0)
FROM feed_sync_logs`
	var stats repository.SyncStats
	err := repo.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalSyncs, &stats.OKSyncs, &stats.FailedSyncs, &stats.TotalArticles)
	if err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}
	return &stats, nil
}
