// Package postgres provides PostgreSQL implementations of the coordinator's
// repository interfaces. All mutating statements are single atomic UPDATEs or
// INSERTs; claim operations encode their pre-state in the WHERE clause so
// concurrent workers serialize at the row.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/repository"
)

const feedColumns = `id, url, category_id, title, description, logo, is_active,
	disable_reason,
	last_sync_at, last_successful_sync_at, last_sync_status, consecutive_failures,
	last_sync_error, last_sync_crawler_id, last_sync_started_at,
	crawl_with_js, crawl_delay_s, custom_headers, use_proxy, created_at, updated_at`

// FeedRepo implements repository.FeedRepository for PostgreSQL.
type FeedRepo struct {
	db *sql.DB
}

// NewFeedRepo creates a new PostgreSQL-backed FeedRepository.
func NewFeedRepo(db *sql.DB) repository.FeedRepository {
	return &FeedRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*entity.Feed, error) {
	var feed entity.Feed
	var headers sql.NullString
	var status string
	err := row.Scan(
		&feed.ID, &feed.URL, &feed.CategoryID, &feed.Title, &feed.Description,
		&feed.Logo, &feed.IsActive, &feed.DisableReason,
		&feed.LastSyncAt, &feed.LastSuccessfulSyncAt,
		&status, &feed.ConsecutiveFailures, &feed.LastSyncError,
		&feed.LastSyncCrawlerID, &feed.LastSyncStartedAt,
		&feed.CrawlWithJS, &feed.CrawlDelaySec, &headers, &feed.UseProxy,
		&feed.CreatedAt, &feed.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	feed.LastSyncStatus = entity.SyncStatus(status)
	if headers.Valid && headers.String != "" {
		if err := json.Unmarshal([]byte(headers.String), &feed.CustomHeaders); err != nil {
			return nil, fmt.Errorf("decode custom_headers: %w", err)
		}
	}
	return &feed, nil
}

func encodeHeaders(headers map[string]string) (any, error) {
	if len(headers) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(headers)
	if err != nil {
		return nil, fmt.Errorf("encode custom_headers: %w", err)
	}
	return raw, nil
}

func (repo *FeedRepo) Get(ctx context.Context, id string) (*entity.Feed, error) {
	query := fmt.Sprintf(`SELECT %s FROM feeds WHERE id = $1 LIMIT 1`, feedColumns)
	feed, err := scanFeed(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return feed, nil
}

func (repo *FeedRepo) List(ctx context.Context) ([]*entity.Feed, error) {
	query := fmt.Sprintf(`SELECT %s FROM feeds ORDER BY id`, feedColumns)
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	feeds := make([]*entity.Feed, 0, 100)
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}

func (repo *FeedRepo) Create(ctx context.Context, feed *entity.Feed) error {
	if err := feed.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	headers, err := encodeHeaders(feed.CustomHeaders)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	const query = `
INSERT INTO feeds
       (id, url, category_id, title, description, logo, is_active,
        crawl_with_js, crawl_delay_s, custom_headers, use_proxy)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = repo.db.ExecContext(ctx, query,
		feed.ID, feed.URL, feed.CategoryID, feed.Title, feed.Description,
		feed.Logo, feed.IsActive, feed.CrawlWithJS, feed.CrawlDelaySec,
		headers, feed.UseProxy,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *FeedRepo) Update(ctx context.Context, feed *entity.Feed) error {
	headers, err := encodeHeaders(feed.CustomHeaders)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	const query = `
UPDATE feeds SET
       url            = $1,
       category_id    = $2,
       title          = $3,
       description    = $4,
       logo           = $5,
       is_active      = $6,
       crawl_with_js  = $7,
       crawl_delay_s  = $8,
       custom_headers = $9,
       use_proxy      = $10,
       updated_at     = now()
WHERE id = $11`
	res, err := repo.db.ExecContext(ctx, query,
		feed.URL, feed.CategoryID, feed.Title, feed.Description, feed.Logo,
		feed.IsActive, feed.CrawlWithJS, feed.CrawlDelaySec, headers,
		feed.UseProxy, feed.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update: %w", entity.ErrNotFound)
	}
	return nil
}

// PendingSync returns the sync queue in priority order.
// Never-synced feeds come first, then healthiest (fewest consecutive
// failures), then NULL last_sync_at, then oldest last_sync_at.
func (repo *FeedRepo) PendingSync(ctx context.Context, opts repository.FeedQueueOptions, now time.Time) ([]*entity.Feed, error) {
	leaseCutoff := now.Add(-opts.LeaseTimeout)

	conditions := []string{
		"is_active = TRUE",
		"consecutive_failures < $1",
		"(last_sync_crawler_id = '' OR last_sync_started_at IS NULL OR last_sync_started_at < $2)",
	}
	args := []any{opts.DisableThreshold, leaseCutoff}

	if opts.SkipRecentSuccess {
		successCutoff := now.Add(-opts.SuccessInterval)
		conditions = append(conditions,
			fmt.Sprintf("(last_successful_sync_at IS NULL OR last_successful_sync_at < $%d)", len(args)+1))
		args = append(args, successCutoff)
	}

	args = append(args, opts.Limit)
	query := fmt.Sprintf(`
SELECT %s
FROM feeds
WHERE %s
ORDER BY
    CASE WHEN last_sync_at IS NULL THEN 0 ELSE 1 END,
    consecutive_failures ASC,
    last_sync_at ASC NULLS FIRST
LIMIT $%d`, feedColumns, strings.Join(conditions, "\n  AND "), len(args))

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("PendingSync: %w", err)
	}
	defer func() { _ = rows.Close() }()

	feeds := make([]*entity.Feed, 0, opts.Limit)
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("PendingSync: Scan: %w", err)
		}
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}

// ClaimSync is a compare-and-set on the sync lease fields. The WHERE clause
// covers the full claimable pre-state, so of two racing claims exactly one
// update hits a row.
func (repo *FeedRepo) ClaimSync(ctx context.Context, feedID, crawlerID string, now time.Time, leaseTimeout time.Duration, disableThreshold int) (*entity.Feed, error) {
	leaseCutoff := now.Add(-leaseTimeout)
	query := fmt.Sprintf(`
UPDATE feeds SET
       last_sync_started_at = $1,
       last_sync_crawler_id = $2,
       updated_at           = now()
WHERE id = $3
  AND is_active = TRUE
  AND consecutive_failures < $4
  AND (last_sync_crawler_id = ''
       OR last_sync_crawler_id = $2
       OR last_sync_started_at IS NULL
       OR last_sync_started_at < $5)
RETURNING %s`, feedColumns)

	feed, err := scanFeed(repo.db.QueryRowContext(ctx, query,
		now, crawlerID, feedID, disableThreshold, leaseCutoff))
	if err == sql.ErrNoRows {
		// Distinguish a missing/ineligible feed from a lost race.
		existing, getErr := repo.Get(ctx, feedID)
		if getErr != nil {
			return nil, fmt.Errorf("ClaimSync: %w", getErr)
		}
		if existing == nil || !existing.IsActive || existing.ConsecutiveFailures >= disableThreshold {
			return nil, fmt.Errorf("ClaimSync: %w", entity.ErrNotFound)
		}
		return nil, fmt.Errorf("ClaimSync: %w", entity.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("ClaimSync: %w", err)
	}
	return feed, nil
}

func (repo *FeedRepo) SubmitSyncSuccess(ctx context.Context, s repository.SyncSuccess) error {
	const query = `
UPDATE feeds SET
       last_sync_at            = $1,
       last_successful_sync_at = $1,
       last_sync_status        = 'ok',
       consecutive_failures    = 0,
       last_sync_error         = '',
       last_sync_crawler_id    = '',
       last_sync_started_at    = NULL,
       updated_at              = now()
WHERE id = $2`
	res, err := repo.db.ExecContext(ctx, query, s.Now, s.FeedID)
	if err != nil {
		return fmt.Errorf("SubmitSyncSuccess: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("SubmitSyncSuccess: %w", entity.ErrNotFound)
	}
	return nil
}

// SubmitSyncFailure increments the failure counter and, when the counter
// reaches the threshold, deactivates the feed in the same statement.
func (repo *FeedRepo) SubmitSyncFailure(ctx context.Context, f repository.SyncFailure) (*repository.SyncFailureResult, error) {
	const query = `
UPDATE feeds SET
       last_sync_at         = $1,
       last_sync_status     = 'failed',
       consecutive_failures = consecutive_failures + 1,
       last_sync_error      = $2,
       last_sync_crawler_id = '',
       last_sync_started_at = NULL,
       is_active            = CASE WHEN consecutive_failures + 1 >= $3 THEN FALSE ELSE is_active END,
       disable_reason       = CASE WHEN consecutive_failures + 1 >= $3
                                   THEN 'auto-disabled: consecutive sync failures reached threshold'
                                   ELSE disable_reason END,
       updated_at           = now()
WHERE id = $4
RETURNING consecutive_failures, is_active`

	var result repository.SyncFailureResult
	var isActive bool
	err := repo.db.QueryRowContext(ctx, query,
		f.Now, f.ErrorMessage, f.DisableThreshold, f.FeedID).
		Scan(&result.ConsecutiveFailures, &isActive)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("SubmitSyncFailure: %w", entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("SubmitSyncFailure: %w", err)
	}
	result.AutoDisabled = !isActive
	return &result, nil
}

func (repo *FeedRepo) AutoDisableFailed(ctx context.Context, threshold int, reason string) (int64, error) {
	const query = `
UPDATE feeds SET
       is_active      = FALSE,
       disable_reason = $1,
       updated_at     = now()
WHERE is_active = TRUE
  AND consecutive_failures >= $2`
	res, err := repo.db.ExecContext(ctx, query, reason, threshold)
	if err != nil {
		return 0, fmt.Errorf("AutoDisableFailed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("AutoDisableFailed: RowsAffected: %w", err)
	}
	return n, nil
}

// ResetFailures only touches failure counters and is_active, so it is safe to
// run concurrently with a sync in progress.
func (repo *FeedRepo) ResetFailures(ctx context.Context, feedID string, reactivate bool) error {
	const query = `
UPDATE feeds SET
       consecutive_failures = 0,
       last_sync_error      = '',
       disable_reason       = '',
       is_active            = CASE WHEN $1 THEN TRUE ELSE is_active END,
       updated_at           = now()
WHERE id = $2`
	res, err := repo.db.ExecContext(ctx, query, reactivate, feedID)
	if err != nil {
		return fmt.Errorf("ResetFailures: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ResetFailures: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *FeedRepo) CountDisabled(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM feeds WHERE is_active = FALSE`
	var count int64
	if err := repo.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("CountDisabled: %w", err)
	}
	return count, nil
}
