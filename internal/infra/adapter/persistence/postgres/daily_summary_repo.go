package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/repository"
)

const dailySummaryColumns = `id, feed_id, summary_date, language, summary_title,
       summary_content, article_count, article_ids, llm_provider, llm_model,
       cost_tokens, status, created_at`

// DailySummaryRepo implements repository.DailySummaryRepository for PostgreSQL.
// Digest rows are write-once per (feed_id, summary_date, language).
type DailySummaryRepo struct {
	db *sql.DB
}

// NewDailySummaryRepo creates a new PostgreSQL-backed DailySummaryRepository.
func NewDailySummaryRepo(db *sql.DB) repository.DailySummaryRepository {
	return &DailySummaryRepo{db: db}
}

func scanDailySummary(s rowScanner) (*entity.DailySummary, error) {
	var d entity.DailySummary
	var lang string
	var ids pq.Int64Array
	err := s.Scan(&d.ID, &d.FeedID, &d.SummaryDate, &lang, &d.SummaryTitle,
		&d.SummaryContent, &d.ArticleCount, &ids, &d.LLMProvider, &d.LLMModel,
		&d.CostTokens, &d.Status, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.Language = entity.SummaryLanguage(lang)
	d.ArticleIDs = []int64(ids)
	return &d, nil
}

func (repo *DailySummaryRepo) Get(ctx context.Context, feedID string, date time.Time, lang entity.SummaryLanguage) (*entity.DailySummary, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM daily_summaries
WHERE feed_id = $1 AND summary_date = $2 AND language = $3
LIMIT 1`, dailySummaryColumns)
	summary, err := scanDailySummary(repo.db.QueryRowContext(ctx, query,
		feedID, date.UTC().Truncate(24*time.Hour), string(lang)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return summary, nil
}

func (repo *DailySummaryRepo) Insert(ctx context.Context, summary *entity.DailySummary) error {
	const query = `
INSERT INTO daily_summaries
       (feed_id, summary_date, language, summary_title, summary_content,
        article_count, article_ids, llm_provider, llm_model, cost_tokens, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id, created_at`
	err := repo.db.QueryRowContext(ctx, query,
		summary.FeedID, summary.SummaryDate.UTC().Truncate(24*time.Hour),
		string(summary.Language), summary.SummaryTitle, summary.SummaryContent,
		summary.ArticleCount, pq.Array(summary.ArticleIDs),
		summary.LLMProvider, summary.LLMModel, summary.CostTokens, summary.Status,
	).Scan(&summary.ID, &summary.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		// 23505 = unique_violation
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("Insert: %w", entity.ErrConflict)
		}
		return fmt.Errorf("Insert: %w", err)
	}
	return nil
}

func (repo *DailySummaryRepo) FeedsNeedingSummary(ctx context.Context, date time.Time, lang entity.SummaryLanguage) ([]string, error) {
	const query = `
SELECT DISTINCT a.feed_id
FROM articles a
WHERE a.status = 'ok'
  AND COALESCE(a.published_date, a.created_at) >= $1
  AND COALESCE(a.published_date, a.created_at) < $1 + INTERVAL '1 day'
  AND NOT EXISTS (
      SELECT 1 FROM daily_summaries ds
      WHERE ds.feed_id = a.feed_id
        AND ds.summary_date = $1
        AND ds.language = $2
  )
ORDER BY a.feed_id`
	rows, err := repo.db.QueryContext(ctx, query,
		date.UTC().Truncate(24*time.Hour), string(lang))
	if err != nil {
		return nil, fmt.Errorf("FeedsNeedingSummary: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("FeedsNeedingSummary: Scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (repo *DailySummaryRepo) ListByDate(ctx context.Context, date time.Time, lang entity.SummaryLanguage) ([]*entity.DailySummary, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM daily_summaries
WHERE summary_date = $1 AND language = $2
ORDER BY feed_id`, dailySummaryColumns)
	rows, err := repo.db.QueryContext(ctx, query,
		date.UTC().Truncate(24*time.Hour), string(lang))
	if err != nil {
		return nil, fmt.Errorf("ListByDate: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []*entity.DailySummary
	for rows.Next() {
		summary, err := scanDailySummary(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByDate: Scan: %w", err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}
