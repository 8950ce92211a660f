// Package entity defines the core domain entities and validation logic for the
// coordinator. It contains the pipeline business objects such as Feed, Article
// and DailySummary, along with their validation rules and domain-specific errors.
package entity

import "time"

// SyncStatus represents the outcome of the most recent sync attempt for a feed.
type SyncStatus string

const (
	// SyncStatusNone means the feed has never been synced.
	SyncStatusNone SyncStatus = "none"
	// SyncStatusOK means the last sync attempt succeeded.
	SyncStatusOK SyncStatus = "ok"
	// SyncStatusFailed means the last sync attempt failed.
	SyncStatusFailed SyncStatus = "failed"
)

// Feed represents an RSS subscription managed by the coordinator.
// Sync-health fields are mutated exclusively by the feed-sync scheduler;
// crawl hints are opaque to the coordinator and shipped to workers as-is.
type Feed struct {
	ID            string
	URL           string
	CategoryID    string
	Title         string
	Description   string
	Logo          string
	IsActive      bool
	DisableReason string

	// Sync-health block.
	LastSyncAt           *time.Time
	LastSuccessfulSyncAt *time.Time
	LastSyncStatus       SyncStatus
	ConsecutiveFailures  int
	LastSyncError        string
	LastSyncCrawlerID    string
	LastSyncStartedAt    *time.Time

	// Crawl hints forwarded to workers.
	CrawlWithJS   bool
	CrawlDelaySec int
	CustomHeaders map[string]string
	UseProxy      bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Leased reports whether the feed currently carries an unexpired sync lease.
func (f *Feed) Leased(now time.Time, leaseTimeout time.Duration) bool {
	if f.LastSyncCrawlerID == "" || f.LastSyncStartedAt == nil {
		return false
	}
	return now.Sub(*f.LastSyncStartedAt) < leaseTimeout
}

// Validate checks the feed's required fields.
// Returns a ValidationError describing the first invalid field.
func (f *Feed) Validate() error {
	if f.ID == "" {
		return &ValidationError{Field: "id", Message: "is required"}
	}
	if f.URL == "" {
		return &ValidationError{Field: "url", Message: "is required"}
	}
	if err := ValidateURL(f.URL); err != nil {
		return err
	}
	if f.ConsecutiveFailures < 0 {
		return &ValidationError{Field: "consecutive_failures", Message: "must not be negative"}
	}
	return nil
}
