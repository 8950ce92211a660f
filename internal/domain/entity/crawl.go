package entity

import "time"

// CrawlBatch records one completed crawl attempt for an article.
// Rows are append-only telemetry; they are never updated after insertion.
type CrawlBatch struct {
	ID                  int64
	BatchID             string
	ArticleID           int64
	FeedID              string
	CrawlerID           string
	FinalStatus         ArticleStatus
	ErrorStage          string
	ErrorType           string
	ErrorMessage        string
	OriginalHTMLSize    int
	ProcessedHTMLSize   int
	ProcessedTextSize   int
	ContentHash         string
	HTTPStatus          int
	ImageCount          int
	LinkCount           int
	VideoCount          int
	StartedAt           *time.Time
	EndedAt             *time.Time
	TotalProcessingTime float64
	MaxMemoryUsage      float64
	AvgCPUUsage         float64
	CreatedAt           time.Time
}

// CrawlLog records one sub-stage timing inside a crawl batch.
type CrawlLog struct {
	ID         int64
	BatchID    string
	ArticleID  int64
	Stage      string
	Status     string
	Message    string
	DurationMS int64
	CreatedAt  time.Time
}

// ExtractionScript is an opaque per-feed extraction program shipped to workers.
// The coordinator never parses or executes the script body; it only stores text
// and enforces at most one published row per feed.
type ExtractionScript struct {
	ID          int64
	FeedID      string
	Version     int
	Script      string
	Description string
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the script's required fields.
func (s *ExtractionScript) Validate() error {
	if s.FeedID == "" {
		return &ValidationError{Field: "feed_id", Message: "is required"}
	}
	if s.Script == "" {
		return &ValidationError{Field: "script", Message: "is required"}
	}
	if s.Version < 1 {
		return &ValidationError{Field: "version", Message: "must be positive"}
	}
	return nil
}
