package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/repository"
)

// maxVectorizationErrorLen bounds the stored vectorization error message.
const maxVectorizationErrorLen = 1000

const articleColumns = `id, feed_id, link, title, summary, chinese_summary,
	english_summary, thumbnail_url, published_date, status,
	is_locked, lock_timestamp, crawler_id, retry_count, max_retries,
	error_message, content_id, is_vectorized, vector_id, vectorized_at,
	embedding_model, vector_dimension, vectorization_status,
	vectorization_error, created_at, updated_at`

// ArticleRepo implements repository.ArticleRepository for PostgreSQL.
type ArticleRepo struct {
	db           *sql.DB
	queryBuilder *ArticleQueryBuilder
}

// NewArticleRepo creates a new PostgreSQL-backed ArticleRepository.
func NewArticleRepo(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepo{
		db:           db,
		queryBuilder: NewArticleQueryBuilder(),
	}
}

func scanArticle(row rowScanner) (*entity.Article, error) {
	var a entity.Article
	var summary, chineseSummary, englishSummary sql.NullString
	var status, vecStatus string
	err := row.Scan(
		&a.ID, &a.FeedID, &a.Link, &a.Title, &summary, &chineseSummary,
		&englishSummary, &a.ThumbnailURL, &a.PublishedDate, &status,
		&a.IsLocked, &a.LockTimestamp, &a.CrawlerID, &a.RetryCount,
		&a.MaxRetries, &a.ErrorMessage, &a.ContentID, &a.IsVectorized,
		&a.VectorID, &a.VectorizedAt, &a.EmbeddingModel, &a.VectorDimension,
		&vecStatus, &a.VectorizationError, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Summary = summary.String
	a.ChineseSummary = chineseSummary.String
	a.EnglishSummary = englishSummary.String
	a.Status = entity.ArticleStatus(status)
	a.VectorizationStatus = entity.VectorizationStatus(vecStatus)
	return &a, nil
}

func (repo *ArticleRepo) Get(ctx context.Context, id int64) (*entity.Article, error) {
	query := fmt.Sprintf(`SELECT %s FROM articles WHERE id = $1 LIMIT 1`, articleColumns)
	article, err := scanArticle(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return article, nil
}

func (repo *ArticleRepo) List(ctx context.Context, filter repository.ArticleFilter, page repository.Page) (*repository.ArticlePage, error) {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.PerPage < 1 {
		page.PerPage = 20
	}

	whereClause, args, err := repo.queryBuilder.BuildWhereClause(filter)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM articles " + whereClause
	var total int64
	if err := repo.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("List: count: %w", err)
	}

	paramIndex := len(args) + 1
	args = append(args, page.PerPage, page.Offset())
	query := fmt.Sprintf(`
SELECT %s
FROM articles
%s
ORDER BY published_date DESC NULLS LAST, id DESC
LIMIT $%d OFFSET $%d`, articleColumns, whereClause, paramIndex, paramIndex+1)

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	list := make([]*entity.Article, 0, page.PerPage)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		list = append(list, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}

	pages := int((total + int64(page.PerPage) - 1) / int64(page.PerPage))
	return &repository.ArticlePage{
		List:        list,
		Total:       total,
		Pages:       pages,
		CurrentPage: page.Page,
		PerPage:     page.PerPage,
	}, nil
}

// InsertBatch inserts articles in one statement with ON CONFLICT (link)
// DO NOTHING, so duplicate links inside the batch and against existing rows
// are silently dropped. The database unique constraint is the backstop
// against concurrent ingestion calls.
func (repo *ArticleRepo) InsertBatch(ctx context.Context, articles []*entity.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	var sb strings.Builder
	sb.WriteString(`
INSERT INTO articles
       (feed_id, link, title, summary, thumbnail_url, published_date, status, max_retries)
VALUES `)
	args := make([]any, 0, len(articles)*8)
	for i, a := range articles {
		if err := a.Validate(); err != nil {
			return 0, fmt.Errorf("InsertBatch: %w", err)
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 8
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)
		status := a.Status
		if status == "" {
			status = entity.ArticleStatusPending
		}
		maxRetries := a.MaxRetries
		if maxRetries == 0 {
			maxRetries = 3
		}
		args = append(args, a.FeedID, a.Link, a.Title, a.Summary,
			a.ThumbnailURL, a.PublishedDate, string(status), maxRetries)
	}
	sb.WriteString(" ON CONFLICT (link) DO NOTHING")

	res, err := repo.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("InsertBatch: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("InsertBatch: RowsAffected: %w", err)
	}
	return int(inserted), nil
}

func (repo *ArticleRepo) PendingCrawl(ctx context.Context, limit int) ([]*entity.Article, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM articles
WHERE status = 'pending'
  AND is_locked = FALSE
  AND retry_count < max_retries
ORDER BY retry_count ASC, published_date DESC NULLS LAST
LIMIT $1`, articleColumns)

	rows, err := repo.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("PendingCrawl: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, limit)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("PendingCrawl: Scan: %w", err)
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

// ClaimCrawl sets the lock only if the article is currently unlocked.
// Exactly one of two concurrent claims hits the row.
func (repo *ArticleRepo) ClaimCrawl(ctx context.Context, articleID int64, crawlerID string, now time.Time) (*entity.Article, error) {
	query := fmt.Sprintf(`
UPDATE articles SET
       is_locked      = TRUE,
       lock_timestamp = $1,
       crawler_id     = $2,
       updated_at     = now()
WHERE id = $3
  AND is_locked = FALSE
RETURNING %s`, articleColumns)

	article, err := scanArticle(repo.db.QueryRowContext(ctx, query, now, crawlerID, articleID))
	if err == sql.ErrNoRows {
		existing, getErr := repo.Get(ctx, articleID)
		if getErr != nil {
			return nil, fmt.Errorf("ClaimCrawl: %w", getErr)
		}
		if existing == nil {
			return nil, fmt.Errorf("ClaimCrawl: %w", entity.ErrNotFound)
		}
		return nil, fmt.Errorf("ClaimCrawl: %w", entity.ErrAlreadyLocked)
	}
	if err != nil {
		return nil, fmt.Errorf("ClaimCrawl: %w", err)
	}
	return article, nil
}

// SubmitCrawlSuccess writes the result only if crawlerID still holds the
// lease, so a worker whose lease was swept and re-claimed cannot clobber the
// new holder's state.
func (repo *ArticleRepo) SubmitCrawlSuccess(ctx context.Context, articleID, contentID int64, crawlerID string) error {
	const query = `
UPDATE articles SET
       status         = 'ok',
       content_id     = $1,
       is_locked      = FALSE,
       lock_timestamp = NULL,
       crawler_id     = '',
       error_message  = '',
       updated_at     = now()
WHERE id = $2
  AND crawler_id = $3`
	res, err := repo.db.ExecContext(ctx, query, contentID, articleID, crawlerID)
	if err != nil {
		return fmt.Errorf("SubmitCrawlSuccess: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repo.submitMiss(ctx, "SubmitCrawlSuccess", articleID)
	}
	return nil
}

func (repo *ArticleRepo) SubmitCrawlFailure(ctx context.Context, articleID int64, crawlerID, errorMessage string) error {
	const query = `
UPDATE articles SET
       status         = 'failed',
       retry_count    = retry_count + 1,
       is_locked      = FALSE,
       lock_timestamp = NULL,
       crawler_id     = '',
       error_message  = $1,
       updated_at     = now()
WHERE id = $2
  AND crawler_id = $3`
	res, err := repo.db.ExecContext(ctx, query, errorMessage, articleID, crawlerID)
	if err != nil {
		return fmt.Errorf("SubmitCrawlFailure: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repo.submitMiss(ctx, "SubmitCrawlFailure", articleID)
	}
	return nil
}

// submitMiss distinguishes why a guarded submission hit zero rows: the
// article is gone, or another crawler now holds (or nobody holds) the lease.
func (repo *ArticleRepo) submitMiss(ctx context.Context, op string, articleID int64) error {
	existing, err := repo.Get(ctx, articleID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if existing == nil {
		return fmt.Errorf("%s: %w", op, entity.ErrNotFound)
	}
	return fmt.Errorf("%s: article %d held by %q: %w",
		op, articleID, existing.CrawlerID, entity.ErrLeaseMismatch)
}

// UpdateProcessingStep settles the column block matching the reported step.
// Every variant clears the crawl lease so a step report never leaves a stuck
// lock behind.
func (repo *ArticleRepo) UpdateProcessingStep(ctx context.Context, upd repository.ProcessingStepUpdate) error {
	var query string
	args := []any{upd.ArticleID}
	switch {
	case upd.Step == "content_saved" && upd.OK:
		query = `
UPDATE articles SET
       status         = 'ok',
       is_locked      = FALSE,
       lock_timestamp = NULL,
       crawler_id     = '',
       error_message  = '',
       updated_at     = now()
WHERE id = $1`
	case upd.Step == "content_saved":
		query = `
UPDATE articles SET
       status         = 'failed',
       retry_count    = retry_count + 1,
       is_locked      = FALSE,
       lock_timestamp = NULL,
       crawler_id     = '',
       error_message  = $2,
       updated_at     = now()
WHERE id = $1`
		args = append(args, upd.ErrorMessage)
	case upd.Step == "summary_generated" && upd.OK:
		query = `
UPDATE articles SET
       is_locked      = FALSE,
       lock_timestamp = NULL,
       crawler_id     = '',
       error_message  = '',
       updated_at     = now()
WHERE id = $1`
	case upd.Step == "summary_generated":
		query = `
UPDATE articles SET
       is_locked      = FALSE,
       lock_timestamp = NULL,
       crawler_id     = '',
       error_message  = $2,
       updated_at     = now()
WHERE id = $1`
		args = append(args, upd.ErrorMessage)
	case upd.Step == "vectorized" && upd.OK:
		query = `
UPDATE articles SET
       is_vectorized        = TRUE,
       vector_id            = 'article_' || feed_id || '_' || id::text,
       vectorized_at        = now(),
       vectorization_status = 'ok',
       vectorization_error  = '',
       is_locked            = FALSE,
       lock_timestamp       = NULL,
       crawler_id           = '',
       updated_at           = now()
WHERE id = $1`
	case upd.Step == "vectorized":
		query = `
UPDATE articles SET
       vectorization_status = 'failed',
       vectorization_error  = $2,
       is_locked            = FALSE,
       lock_timestamp       = NULL,
       crawler_id           = '',
       updated_at           = now()
WHERE id = $1`
		args = append(args, upd.ErrorMessage)
	default:
		return fmt.Errorf("UpdateProcessingStep: unknown step %q: %w", upd.Step, entity.ErrInvalidInput)
	}

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("UpdateProcessingStep: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateProcessingStep: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *ArticleRepo) ResetArticle(ctx context.Context, articleID int64) error {
	const query = `
UPDATE articles SET
       status         = 'pending',
       retry_count    = 0,
       is_locked      = FALSE,
       lock_timestamp = NULL,
       crawler_id     = '',
       error_message  = '',
       updated_at     = now()
WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, articleID)
	if err != nil {
		return fmt.Errorf("ResetArticle: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ResetArticle: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *ArticleRepo) ReleaseExpiredCrawlLeases(ctx context.Context, now time.Time, leaseTimeout time.Duration) (int64, error) {
	cutoff := now.Add(-leaseTimeout)
	const query = `
UPDATE articles SET
       is_locked      = FALSE,
       lock_timestamp = NULL,
       crawler_id     = '',
       updated_at     = now()
WHERE is_locked = TRUE
  AND lock_timestamp < $1`
	res, err := repo.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("ReleaseExpiredCrawlLeases: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ReleaseExpiredCrawlLeases: RowsAffected: %w", err)
	}
	return n, nil
}

// UpdateSummaries writes the bilingual summary columns. Nil pointers leave a
// column untouched; clearSummary wipes the upstream summary.
func (repo *ArticleRepo) UpdateSummaries(ctx context.Context, articleID int64, chinese, english *string, clearSummary bool) error {
	sets := []string{"updated_at = now()"}
	args := []any{}
	if chinese != nil {
		args = append(args, *chinese)
		sets = append(sets, fmt.Sprintf("chinese_summary = $%d", len(args)))
	}
	if english != nil {
		args = append(args, *english)
		sets = append(sets, fmt.Sprintf("english_summary = $%d", len(args)))
	}
	if clearSummary {
		sets = append(sets, "summary = NULL")
	}
	args = append(args, articleID)
	query := fmt.Sprintf(`UPDATE articles SET %s WHERE id = $%d`,
		strings.Join(sets, ", "), len(args))

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("UpdateSummaries: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateSummaries: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *ArticleRepo) PendingVectorization(ctx context.Context, limit int) ([]*entity.Article, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM articles
WHERE vectorization_status = 'pending'
  AND content_id IS NOT NULL
ORDER BY published_date DESC NULLS LAST
LIMIT $1`, articleColumns)

	rows, err := repo.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("PendingVectorization: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, limit)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("PendingVectorization: Scan: %w", err)
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

// ClaimVectorization moves vectorization_status pending→in_progress as a
// compare-and-set.
func (repo *ArticleRepo) ClaimVectorization(ctx context.Context, articleID int64) (*entity.Article, error) {
	query := fmt.Sprintf(`
UPDATE articles SET
       vectorization_status = 'in_progress',
       updated_at           = now()
WHERE id = $1
  AND vectorization_status = 'pending'
  AND content_id IS NOT NULL
RETURNING %s`, articleColumns)

	article, err := scanArticle(repo.db.QueryRowContext(ctx, query, articleID))
	if err == sql.ErrNoRows {
		existing, getErr := repo.Get(ctx, articleID)
		if getErr != nil {
			return nil, fmt.Errorf("ClaimVectorization: %w", getErr)
		}
		if existing == nil {
			return nil, fmt.Errorf("ClaimVectorization: %w", entity.ErrNotFound)
		}
		return nil, fmt.Errorf("ClaimVectorization: %w", entity.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("ClaimVectorization: %w", err)
	}
	return article, nil
}

func (repo *ArticleRepo) MarkVectorized(ctx context.Context, wb repository.VectorWriteback) error {
	const query = `
UPDATE articles SET
       is_vectorized        = TRUE,
       vector_id            = $1,
       vectorized_at        = $2,
       embedding_model      = $3,
       vector_dimension     = $4,
       vectorization_status = 'ok',
       vectorization_error  = '',
       updated_at           = now()
WHERE id = $5`
	res, err := repo.db.ExecContext(ctx, query,
		wb.VectorID, wb.VectorizedAt, wb.EmbeddingModel, wb.Dimension, wb.ArticleID)
	if err != nil {
		return fmt.Errorf("MarkVectorized: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("MarkVectorized: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *ArticleRepo) MarkVectorizationFailed(ctx context.Context, articleID int64, errorMessage string) error {
	if len(errorMessage) > maxVectorizationErrorLen {
		errorMessage = errorMessage[:maxVectorizationErrorLen]
	}
	const query = `
UPDATE articles SET
       vectorization_status = 'failed',
       vectorization_error  = $1,
       updated_at           = now()
WHERE id = $2`
	res, err := repo.db.ExecContext(ctx, query, errorMessage, articleID)
	if err != nil {
		return fmt.Errorf("MarkVectorizationFailed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("MarkVectorizationFailed: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *ArticleRepo) ResetVectorization(ctx context.Context, articleID int64) error {
	const query = `
UPDATE articles SET
       vectorization_status = 'pending',
       vectorization_error  = '',
       updated_at           = now()
WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, articleID)
	if err != nil {
		return fmt.Errorf("ResetVectorization: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ResetVectorization: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *ArticleRepo) CountByVectorizationStatus(ctx context.Context) (*repository.VectorizationCounts, error) {
	const query = `
SELECT vectorization_status, COUNT(*)
FROM articles
GROUP BY vectorization_status`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("CountByVectorizationStatus: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts repository.VectorizationCounts
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("CountByVectorizationStatus: Scan: %w", err)
		}
		switch entity.VectorizationStatus(status) {
		case entity.VectorizationPending:
			counts.Pending = count
		case entity.VectorizationInProgress:
			counts.InProgress = count
		case entity.VectorizationOK:
			counts.OK = count
		case entity.VectorizationFailed:
			counts.Failed = count
		}
	}
	return &counts, rows.Err()
}

func (repo *ArticleRepo) ListByFeedAndDay(ctx context.Context, feedID string, day time.Time) ([]*entity.Article, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	query := fmt.Sprintf(`
SELECT %s
FROM articles
WHERE feed_id = $1
  AND status = 'ok'
  AND COALESCE(published_date, created_at) >= $2
  AND COALESCE(published_date, created_at) < $3
ORDER BY published_date DESC NULLS LAST`, articleColumns)

	rows, err := repo.db.QueryContext(ctx, query, feedID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("ListByFeedAndDay: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, 50)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByFeedAndDay: Scan: %w", err)
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}
