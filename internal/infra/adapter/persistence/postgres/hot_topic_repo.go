package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/repository"
)

// HotTopicRepo implements repository.HotTopicRepository for PostgreSQL.
type HotTopicRepo struct {
	db *sql.DB
}

// NewHotTopicRepo creates a new PostgreSQL-backed HotTopicRepository.
func NewHotTopicRepo(db *sql.DB) repository.HotTopicRepository {
	return &HotTopicRepo{db: db}
}

func (repo *HotTopicRepo) RawTopicsByDate(ctx context.Context, date time.Time) ([]*entity.RawTopic, error) {
	const query = `
SELECT id, platform, title, description, url, topic_date, status, created_at
FROM raw_hot_topics
WHERE topic_date = $1 AND status = 'active'
ORDER BY platform, id`
	rows, err := repo.db.QueryContext(ctx, query, date.UTC().Truncate(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("RawTopicsByDate: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var topics []*entity.RawTopic
	for rows.Next() {
		var t entity.RawTopic
		var desc, url sql.NullString
		if err := rows.Scan(&t.ID, &t.Platform, &t.Title, &desc, &url,
			&t.TopicDate, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("RawTopicsByDate: Scan: %w", err)
		}
		t.Description = desc.String
		t.URL = url.String
		topics = append(topics, &t)
	}
	return topics, rows.Err()
}

// ReplaceUnifiedByDate swaps out the day's clustered groups atomically.
// Re-running aggregation for a date never leaves stale rows behind.
func (repo *HotTopicRepo) ReplaceUnifiedByDate(ctx context.Context, date time.Time, topics []*entity.UnifiedHotTopic) error {
	day := date.UTC().Truncate(24 * time.Hour)

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ReplaceUnifiedByDate: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const del = `DELETE FROM unified_hot_topics WHERE topic_date = $1`
	if _, err := tx.ExecContext(ctx, del, day); err != nil {
		return fmt.Errorf("ReplaceUnifiedByDate: delete: %w", err)
	}

	const ins = `
INSERT INTO unified_hot_topics
       (topic_date, unified_title, unified_summary, keywords, category,
        related_topic_hashes, source_platforms, topic_count, representative_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, created_at`
	for _, t := range topics {
		err := tx.QueryRowContext(ctx, ins,
			day, t.UnifiedTitle, t.UnifiedSummary, pq.Array(t.Keywords),
			string(t.Category), pq.Array(t.RelatedTopicHashes),
			pq.Array(t.SourcePlatforms), t.TopicCount, t.RepresentativeURL,
		).Scan(&t.ID, &t.CreatedAt)
		if err != nil {
			return fmt.Errorf("ReplaceUnifiedByDate: insert: %w", err)
		}
		t.TopicDate = day
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ReplaceUnifiedByDate: commit: %w", err)
	}
	return nil
}

func (repo *HotTopicRepo) UnifiedByDate(ctx context.Context, date time.Time) ([]*entity.UnifiedHotTopic, error) {
	const query = `
SELECT id, topic_date, unified_title, unified_summary, keywords, category,
       related_topic_hashes, source_platforms, topic_count,
       representative_url, created_at
FROM unified_hot_topics
WHERE topic_date = $1
ORDER BY topic_count DESC, id`
	rows, err := repo.db.QueryContext(ctx, query, date.UTC().Truncate(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("UnifiedByDate: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var topics []*entity.UnifiedHotTopic
	for rows.Next() {
		var t entity.UnifiedHotTopic
		var category string
		var keywords, hashes, platforms pq.StringArray
		var repURL sql.NullString
		if err := rows.Scan(&t.ID, &t.TopicDate, &t.UnifiedTitle,
			&t.UnifiedSummary, &keywords, &category, &hashes, &platforms,
			&t.TopicCount, &repURL, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("UnifiedByDate: Scan: %w", err)
		}
		t.Category = entity.TopicCategory(category)
		t.Keywords = []string(keywords)
		t.RelatedTopicHashes = []string(hashes)
		t.SourcePlatforms = []string(platforms)
		t.RepresentativeURL = repURL.String
		topics = append(topics, &t)
	}
	return topics, rows.Err()
}
