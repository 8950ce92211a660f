// Package repository defines the persistence interfaces consumed by the
// coordinator's use cases. Implementations live under
// internal/infra/adapter/persistence.
package repository

import (
	"context"
	"time"

	"rss-coordinator/internal/domain/entity"
)

// FeedQueueOptions controls pending-feed selection for the sync queue.
type FeedQueueOptions struct {
	// Limit caps the number of returned feeds.
	Limit int
	// SkipRecentSuccess excludes feeds synced successfully within SuccessInterval.
	SkipRecentSuccess bool
	// SuccessInterval is the minimum spacing between successful syncs.
	SuccessInterval time.Duration
	// LeaseTimeout is the window after which an abandoned sync lease is re-claimable.
	LeaseTimeout time.Duration
	// DisableThreshold is the consecutive-failure count that excludes a feed.
	DisableThreshold int
}

// SyncSuccess carries the feed-side effects of a successful sync submission.
type SyncSuccess struct {
	FeedID string
	Now    time.Time
}

// SyncFailure carries the feed-side effects of a failed sync submission.
type SyncFailure struct {
	FeedID           string
	ErrorMessage     string
	Now              time.Time
	DisableThreshold int
}

// SyncFailureResult reports the updated health counters after a failure.
type SyncFailureResult struct {
	ConsecutiveFailures int
	AutoDisabled        bool
}

// FeedRepository manages Feed rows and the sync lease state machine.
//
// ClaimSync and the submit methods are the serialization points of the sync
// pipeline: each is a single atomic UPDATE whose WHERE clause covers the
// required pre-state, so two racing workers resolve at the database row.
type FeedRepository interface {
	// Get returns the feed by id, or (nil, nil) when absent.
	Get(ctx context.Context, id string) (*entity.Feed, error)

	// List returns all feeds ordered by id.
	List(ctx context.Context) ([]*entity.Feed, error)

	// Create inserts a new feed.
	Create(ctx context.Context, feed *entity.Feed) error

	// Update rewrites the feed's descriptive fields (title, description,
	// logo, category, crawl hints, is_active).
	Update(ctx context.Context, feed *entity.Feed) error

	// PendingSync returns the sync queue in priority order: never-synced
	// first, then fewest consecutive failures, then NULL last_sync_at,
	// then oldest last_sync_at.
	PendingSync(ctx context.Context, opts FeedQueueOptions, now time.Time) ([]*entity.Feed, error)

	// ClaimSync acquires the sync lease for crawlerID. It succeeds only if
	// the feed is active, under the disable threshold, and unleased (or the
	// lease expired, or crawlerID already holds it). Returns
	// entity.ErrConflict when another worker holds a live lease and
	// entity.ErrNotFound when the feed does not exist or is inactive.
	ClaimSync(ctx context.Context, feedID, crawlerID string, now time.Time, leaseTimeout time.Duration, disableThreshold int) (*entity.Feed, error)

	// SubmitSyncSuccess resets the failure counter, records the successful
	// sync timestamps, and releases the lease in one statement.
	SubmitSyncSuccess(ctx context.Context, s SyncSuccess) error

	// SubmitSyncFailure increments the failure counter, records the error,
	// releases the lease, and flips is_active off in the same statement when
	// the counter reaches the threshold.
	SubmitSyncFailure(ctx context.Context, f SyncFailure) (*SyncFailureResult, error)

	// AutoDisableFailed deactivates every feed at or over the threshold.
	// Returns the number of feeds disabled by this pass.
	AutoDisableFailed(ctx context.Context, threshold int, reason string) (int64, error)

	// ResetFailures zeroes the failure counter and optionally reactivates
	// the feed. Safe to run concurrently with a sync in progress.
	ResetFailures(ctx context.Context, feedID string, reactivate bool) error

	// CountDisabled returns the number of inactive feeds.
	CountDisabled(ctx context.Context) (int64, error)
}
