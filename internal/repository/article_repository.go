package repository

import (
	"context"
	"time"

	"rss-coordinator/internal/domain/entity"
)

// ArticleFilter is a flat field→value filter map for article list queries.
// Plain keys (feed_id, status, vectorization_status, is_locked) match
// equality; the reserved composite keys "date_range" ([2]time.Time) and
// "retry_range" ([2]int) match inclusive ranges on published_date and
// retry_count.
type ArticleFilter map[string]any

// Page describes a (page, per_page) pagination request. Page is 1-based.
type Page struct {
	Page    int
	PerPage int
}

// Offset converts the page number to a row offset.
func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}

// ArticlePage is one page of a filtered article listing.
type ArticlePage struct {
	List        []*entity.Article
	Total       int64
	Pages       int
	CurrentPage int
	PerPage     int
}

// VectorWriteback records a successful embedding write on the article row.
type VectorWriteback struct {
	ArticleID      int64
	VectorID       string
	EmbeddingModel string
	Dimension      int
	VectorizedAt   time.Time
}

// ProcessingStepUpdate is one worker-reported pipeline step outcome for an
// article. Step is one of content_saved, summary_generated, vectorized.
type ProcessingStepUpdate struct {
	ArticleID    int64
	Step         string
	OK           bool
	ErrorMessage string
}

// VectorizationCounts aggregates article counts per vectorization status.
type VectorizationCounts struct {
	Pending    int64
	InProgress int64
	OK         int64
	Failed     int64
}

// ArticleRepository manages Article rows, including both lease state machines.
//
// ClaimCrawl and ClaimVectorization are single atomic UPDATEs gated on the
// pre-state; exactly one of two racing claims succeeds.
type ArticleRepository interface {
	// Get returns the article by id, or (nil, nil) when absent.
	Get(ctx context.Context, id int64) (*entity.Article, error)

	// List returns one page of articles matching the filter, newest
	// published first.
	List(ctx context.Context, filter ArticleFilter, page Page) (*ArticlePage, error)

	// InsertBatch inserts the given articles, silently dropping any whose
	// link already exists. Returns the number of rows actually inserted.
	InsertBatch(ctx context.Context, articles []*entity.Article) (int, error)

	// PendingCrawl returns unlocked pending articles with retries left,
	// ordered by retry_count ascending then published_date descending.
	PendingCrawl(ctx context.Context, limit int) ([]*entity.Article, error)

	// ClaimCrawl locks the article for crawlerID. Returns
	// entity.ErrAlreadyLocked if the lock is held and entity.ErrNotFound if
	// the article does not exist.
	ClaimCrawl(ctx context.Context, articleID int64, crawlerID string, now time.Time) (*entity.Article, error)

	// SubmitCrawlSuccess stores the content reference, marks the article ok,
	// and clears the lease and error message in one statement. The statement
	// only hits rows still leased by crawlerID; a vanished or reassigned
	// lease returns entity.ErrLeaseMismatch.
	SubmitCrawlSuccess(ctx context.Context, articleID, contentID int64, crawlerID string) error

	// SubmitCrawlFailure marks the article failed, bumps retry_count, and
	// clears the lease in one statement, guarded by crawlerID like
	// SubmitCrawlSuccess.
	SubmitCrawlFailure(ctx context.Context, articleID int64, crawlerID, errorMessage string) error

	// UpdateProcessingStep applies a step outcome to the article's matching
	// column block: content_saved settles the crawl status and clears the
	// lease, summary_generated records the summarization outcome,
	// vectorized settles the vectorization state machine.
	UpdateProcessingStep(ctx context.Context, upd ProcessingStepUpdate) error

	// ResetArticle returns the article to the pending state: lease cleared,
	// retry_count zeroed, error message removed.
	ResetArticle(ctx context.Context, articleID int64) error

	// ReleaseExpiredCrawlLeases unlocks articles whose lock_timestamp is
	// older than the timeout. Returns the number of leases released.
	ReleaseExpiredCrawlLeases(ctx context.Context, now time.Time, leaseTimeout time.Duration) (int64, error)

	// UpdateSummaries writes the bilingual summaries. A nil pointer leaves
	// the column untouched; clearSummary wipes the upstream summary column.
	UpdateSummaries(ctx context.Context, articleID int64, chinese, english *string, clearSummary bool) error

	// PendingVectorization returns vectorizable articles (pending status,
	// content present), newest published first.
	PendingVectorization(ctx context.Context, limit int) ([]*entity.Article, error)

	// ClaimVectorization moves vectorization_status pending→in_progress.
	// Returns entity.ErrConflict when the transition pre-state does not hold.
	ClaimVectorization(ctx context.Context, articleID int64) (*entity.Article, error)

	// MarkVectorized records a completed embedding write.
	MarkVectorized(ctx context.Context, wb VectorWriteback) error

	// MarkVectorizationFailed records a failed attempt and releases the
	// in_progress claim. The message is truncated to 1000 characters.
	MarkVectorizationFailed(ctx context.Context, articleID int64, errorMessage string) error

	// ResetVectorization returns vectorization_status to pending.
	ResetVectorization(ctx context.Context, articleID int64) error

	// CountByVectorizationStatus aggregates per-status article counts.
	CountByVectorizationStatus(ctx context.Context) (*VectorizationCounts, error)

	// ListByFeedAndDay returns the feed's ok articles whose published_date
	// (or created_at when null) falls on the given UTC day, newest first.
	ListByFeedAndDay(ctx context.Context, feedID string, day time.Time) ([]*entity.Article, error)
}
