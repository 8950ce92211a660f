// Package feedsync brokers the feed sync queue to stateless workers: queue
// selection, lease claims, result ingestion, and feed health accounting.
package feedsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/repository"
)

// Defaults for the sync queue; overridable per deployment through Config.
const (
	DefaultDisableThreshold = 20
	DefaultLeaseTimeout     = 30 * time.Minute
	DefaultSuccessInterval  = 30 * time.Minute
)

// Config carries the queue tuning knobs.
type Config struct {
	DisableThreshold int
	LeaseTimeout     time.Duration
	SuccessInterval  time.Duration
}

// DefaultConfig returns the standard queue configuration.
func DefaultConfig() Config {
	return Config{
		DisableThreshold: DefaultDisableThreshold,
		LeaseTimeout:     DefaultLeaseTimeout,
		SuccessInterval:  DefaultSuccessInterval,
	}
}

// Notifier receives feed health alerts. Implementations must not block the
// submit path for long.
type Notifier interface {
	NotifyFeedDisabled(ctx context.Context, feed string, failures int)
}

// ArticleEntry is one feed entry carried in a sync result.
type ArticleEntry struct {
	Title         string
	Link          string
	Summary       string
	PublishedDate *time.Time
	ThumbnailURL  string
}

// SubmitInput is a worker's sync result for one feed.
type SubmitInput struct {
	FeedID         string
	CrawlerID      string
	Status         entity.SyncStatus
	Articles       []ArticleEntry
	ErrorMessage   string
	ErrorType      string
	ResponseStatus int
	EntriesFound   int
	StartTime      *time.Time
	EndTime        *time.Time
	TotalTime      float64
	TriggeredBy    string
}

// SubmitResult reports the outcome of a sync submission.
type SubmitResult struct {
	SyncID              string
	Status              entity.SyncStatus
	NewArticles         int
	ConsecutiveFailures int
	AutoDisabled        bool
}

// PendingResult is the queue snapshot handed to a polling worker.
type PendingResult struct {
	Feeds         []*entity.Feed
	DisabledCount int64
	Timestamp     time.Time
}

// Service implements the feed-sync scheduler.
type Service struct {
	Feeds    repository.FeedRepository
	Articles repository.ArticleRepository
	SyncLogs repository.SyncLogRepository
	Notifier Notifier
	Config   Config
}

// PendingFeeds runs the auto-disable pass, then returns the sync queue in
// priority order together with the disabled-feed count.
func (s *Service) PendingFeeds(ctx context.Context, limit int, skipRecentSuccess bool, successInterval time.Duration) (*PendingResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if successInterval <= 0 {
		successInterval = s.Config.SuccessInterval
	}
	now := time.Now()

	disabled, err := s.Feeds.AutoDisableFailed(ctx, s.Config.DisableThreshold,
		"auto-disabled: consecutive sync failures reached threshold")
	if err != nil {
		return nil, fmt.Errorf("auto-disable pass: %w", err)
	}
	if disabled > 0 {
		slog.InfoContext(ctx, "auto-disabled failing feeds",
			slog.Int64("count", disabled),
			slog.Int("threshold", s.Config.DisableThreshold))
	}

	feeds, err := s.Feeds.PendingSync(ctx, repository.FeedQueueOptions{
		Limit:             limit,
		SkipRecentSuccess: skipRecentSuccess,
		SuccessInterval:   successInterval,
		LeaseTimeout:      s.Config.LeaseTimeout,
		DisableThreshold:  s.Config.DisableThreshold,
	}, now)
	if err != nil {
		return nil, fmt.Errorf("pending feeds: %w", err)
	}

	disabledCount, err := s.Feeds.CountDisabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("count disabled feeds: %w", err)
	}

	return &PendingResult{Feeds: feeds, DisabledCount: disabledCount, Timestamp: now}, nil
}

// ClaimFeed acquires the sync lease for crawlerID.
func (s *Service) ClaimFeed(ctx context.Context, feedID, crawlerID string) (*entity.Feed, error) {
	if feedID == "" {
		return nil, &entity.ValidationError{Field: "feed_id", Message: "is required"}
	}
	if crawlerID == "" {
		return nil, &entity.ValidationError{Field: "crawler_id", Message: "is required"}
	}
	feed, err := s.Feeds.ClaimSync(ctx, feedID, crawlerID, time.Now(),
		s.Config.LeaseTimeout, s.Config.DisableThreshold)
	if err != nil {
		return nil, fmt.Errorf("claim feed %s: %w", feedID, err)
	}
	slog.InfoContext(ctx, "feed claimed",
		slog.String("feed_id", feedID),
		slog.String("crawler_id", crawlerID))
	return feed, nil
}

// SubmitResult ingests a worker's sync outcome: inserts new articles, updates
// feed health, and appends a FeedSyncLog row. Duplicate links are silently
// dropped by the batch insert.
func (s *Service) SubmitResult(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if in.FeedID == "" {
		return nil, &entity.ValidationError{Field: "feed_id", Message: "is required"}
	}
	if in.Status != entity.SyncStatusOK && in.Status != entity.SyncStatusFailed {
		return nil, &entity.ValidationError{Field: "status", Message: "must be ok or failed"}
	}

	now := time.Now()
	result := &SubmitResult{
		SyncID: uuid.New().String(),
		Status: in.Status,
	}

	switch in.Status {
	case entity.SyncStatusOK:
		inserted, err := s.ingestArticles(ctx, in.FeedID, in.Articles)
		if err != nil {
			return nil, err
		}
		result.NewArticles = inserted

		if err := s.Feeds.SubmitSyncSuccess(ctx, repository.SyncSuccess{
			FeedID: in.FeedID,
			Now:    now,
		}); err != nil {
			return nil, fmt.Errorf("submit sync success: %w", err)
		}

	case entity.SyncStatusFailed:
		failure, err := s.Feeds.SubmitSyncFailure(ctx, repository.SyncFailure{
			FeedID:           in.FeedID,
			ErrorMessage:     in.ErrorMessage,
			DisableThreshold: s.Config.DisableThreshold,
			Now:              now,
		})
		if err != nil {
			return nil, fmt.Errorf("submit sync failure: %w", err)
		}
		result.ConsecutiveFailures = failure.ConsecutiveFailures
		result.AutoDisabled = failure.AutoDisabled

		if failure.AutoDisabled {
			slog.WarnContext(ctx, "feed auto-disabled",
				slog.String("feed_id", in.FeedID),
				slog.Int("consecutive_failures", failure.ConsecutiveFailures))
			if s.Notifier != nil {
				s.Notifier.NotifyFeedDisabled(ctx, in.FeedID, failure.ConsecutiveFailures)
			}
		}
	}

	s.appendSyncLog(ctx, in, result)
	return result, nil
}

func (s *Service) ingestArticles(ctx context.Context, feedID string, entries []ArticleEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	articles := make([]*entity.Article, 0, len(entries))
	for _, e := range entries {
		if e.Link == "" {
			continue
		}
		articles = append(articles, &entity.Article{
			FeedID:        feedID,
			Link:          e.Link,
			Title:         e.Title,
			Summary:       e.Summary,
			PublishedDate: e.PublishedDate,
			ThumbnailURL:  e.ThumbnailURL,
		})
	}
	inserted, err := s.Articles.InsertBatch(ctx, articles)
	if err != nil {
		return 0, fmt.Errorf("ingest articles: %w", err)
	}
	if dropped := len(articles) - inserted; dropped > 0 {
		slog.InfoContext(ctx, "duplicate links dropped during ingest",
			slog.String("feed_id", feedID),
			slog.Int("dropped", dropped))
	}
	return inserted, nil
}

// appendSyncLog is best-effort; a telemetry write failure never fails the
// submit itself.
func (s *Service) appendSyncLog(ctx context.Context, in SubmitInput, result *SubmitResult) {
	syncedFeeds, failedFeeds := 1, 0
	if in.Status == entity.SyncStatusFailed {
		syncedFeeds, failedFeeds = 0, 1
	}
	log := &entity.FeedSyncLog{
		SyncID:        result.SyncID,
		TotalFeeds:    1,
		SyncedFeeds:   syncedFeeds,
		FailedFeeds:   failedFeeds,
		TotalArticles: result.NewArticles,
		Status:        in.Status,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		TotalTime:     in.TotalTime,
		Details:       in.ErrorMessage,
		TriggeredBy:   in.TriggeredBy,
	}
	if err := s.SyncLogs.Insert(ctx, log); err != nil {
		slog.ErrorContext(ctx, "append sync log failed",
			slog.String("feed_id", in.FeedID),
			slog.String("error", err.Error()))
	}
}

// Stats aggregates sync counters for the stats endpoint.
func (s *Service) Stats(ctx context.Context) (*repository.SyncStats, error) {
	stats, err := s.SyncLogs.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync stats: %w", err)
	}
	return stats, nil
}

// ResetFailures clears a feed's failure counter and optionally reactivates it.
// Safe to run while a sync is in progress.
func (s *Service) ResetFailures(ctx context.Context, feedID string, reactivate bool) error {
	if feedID == "" {
		return &entity.ValidationError{Field: "feed_id", Message: "is required"}
	}
	if err := s.Feeds.ResetFailures(ctx, feedID, reactivate); err != nil {
		return fmt.Errorf("reset feed failures: %w", err)
	}
	slog.InfoContext(ctx, "feed failures reset",
		slog.String("feed_id", feedID),
		slog.Bool("reactivate", reactivate))
	return nil
}
