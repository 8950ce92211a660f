package entity

import "time"

// FeedSyncLog is one append-only record of a feed sync submission.
type FeedSyncLog struct {
	ID            int64
	SyncID        string
	TotalFeeds    int
	SyncedFeeds   int
	FailedFeeds   int
	TotalArticles int
	Status        SyncStatus
	StartTime     *time.Time
	EndTime       *time.Time
	TotalTime     float64
	Details       string
	TriggeredBy   string
	CreatedAt     time.Time
}
