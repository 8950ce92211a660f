package entity

import "time"

// ArticleStatus represents the content-extraction state of an article.
type ArticleStatus string

const (
	// ArticleStatusPending means the article has not been crawled yet,
	// or has been reset and is waiting for another attempt.
	ArticleStatusPending ArticleStatus = "pending"
	// ArticleStatusOK means content extraction succeeded.
	ArticleStatusOK ArticleStatus = "ok"
	// ArticleStatusFailed means the last extraction attempt failed.
	ArticleStatusFailed ArticleStatus = "failed"
)

// VectorizationStatus represents the embedding state of an article.
type VectorizationStatus string

const (
	// VectorizationPending means the article has not been embedded yet.
	VectorizationPending VectorizationStatus = "pending"
	// VectorizationInProgress means a worker holds the vectorization claim.
	VectorizationInProgress VectorizationStatus = "in_progress"
	// VectorizationOK means the embedding was written to the vector store.
	VectorizationOK VectorizationStatus = "ok"
	// VectorizationFailed means the embedding attempt failed.
	VectorizationFailed VectorizationStatus = "failed"
)

// Article represents a single RSS entry brokered through the pipeline.
// The crawl-lease block is mutated only through atomic claim updates;
// the vector block is owned by the vectorization scheduler.
type Article struct {
	ID             int64
	FeedID         string
	Link           string
	Title          string
	Summary        string
	ChineseSummary string
	EnglishSummary string
	ThumbnailURL   string
	PublishedDate  *time.Time
	Status         ArticleStatus

	// Crawl-lease block.
	IsLocked      bool
	LockTimestamp *time.Time
	CrawlerID     string

	RetryCount   int
	MaxRetries   int
	ErrorMessage string
	ContentID    *int64

	// Vector block.
	IsVectorized        bool
	VectorID            string
	VectorizedAt        *time.Time
	EmbeddingModel      string
	VectorDimension     int
	VectorizationStatus VectorizationStatus
	VectorizationError  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TerminallyFailed reports whether the article has exhausted its retries.
// A terminal article stays in the system and only leaves via an explicit reset.
func (a *Article) TerminallyFailed() bool {
	return a.Status == ArticleStatusFailed && a.RetryCount >= a.MaxRetries
}

// LeaseExpired reports whether the crawl lease, if any, is older than the timeout.
func (a *Article) LeaseExpired(now time.Time, leaseTimeout time.Duration) bool {
	if !a.IsLocked || a.LockTimestamp == nil {
		return false
	}
	return now.Sub(*a.LockTimestamp) >= leaseTimeout
}

// Validate checks the article's required fields.
func (a *Article) Validate() error {
	if a.FeedID == "" {
		return &ValidationError{Field: "feed_id", Message: "is required"}
	}
	if a.Link == "" {
		return &ValidationError{Field: "link", Message: "is required"}
	}
	if err := ValidateURL(a.Link); err != nil {
		return err
	}
	if a.Title == "" {
		return &ValidationError{Field: "title", Message: "is required"}
	}
	return nil
}

// ArticleContent is the immutable post-extraction payload of an article.
// Rows are never updated; a reset allocates a new row.
type ArticleContent struct {
	ID          int64
	HTMLContent string
	TextContent string
	CreatedAt   time.Time
}
