package feedsync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/repository"
	"rss-coordinator/internal/usecase/feedsync"
)

type stubFeedRepo struct {
	repository.FeedRepository

	autoDisabled   int64
	pendingOpts    repository.FeedQueueOptions
	pendingFeeds   []*entity.Feed
	disabledCount  int64
	claimFeed      *entity.Feed
	claimErr       error
	claimedBy      string
	successInput   *repository.SyncSuccess
	failureInput   *repository.SyncFailure
	failureResult  *repository.SyncFailureResult
	resetFeedID    string
	resetReactivte bool
}

func (s *stubFeedRepo) AutoDisableFailed(_ context.Context, _ int, _ string) (int64, error) {
	return s.autoDisabled, nil
}

func (s *stubFeedRepo) PendingSync(_ context.Context, opts repository.FeedQueueOptions, _ time.Time) ([]*entity.Feed, error) {
	s.pendingOpts = opts
	return s.pendingFeeds, nil
}

func (s *stubFeedRepo) CountDisabled(_ context.Context) (int64, error) {
	return s.disabledCount, nil
}

func (s *stubFeedRepo) ClaimSync(_ context.Context, _, crawlerID string, _ time.Time, _ time.Duration, _ int) (*entity.Feed, error) {
	s.claimedBy = crawlerID
	return s.claimFeed, s.claimErr
}

func (s *stubFeedRepo) SubmitSyncSuccess(_ context.Context, in repository.SyncSuccess) error {
	s.successInput = &in
	return nil
}

func (s *stubFeedRepo) SubmitSyncFailure(_ context.Context, in repository.SyncFailure) (*repository.SyncFailureResult, error) {
	s.failureInput = &in
	return s.failureResult, nil
}

func (s *stubFeedRepo) ResetFailures(_ context.Context, feedID string, reactivate bool) error {
	s.resetFeedID = feedID
	s.resetReactivte = reactivate
	return nil
}

type stubArticleRepo struct {
	repository.ArticleRepository

	insertedArticles []*entity.Article
	insertedCount    int
	insertErr        error
}

func (s *stubArticleRepo) InsertBatch(_ context.Context, articles []*entity.Article) (int, error) {
	s.insertedArticles = articles
	return s.insertedCount, s.insertErr
}

type stubSyncLogRepo struct {
	repository.SyncLogRepository

	inserted []*entity.FeedSyncLog
	stats    *repository.SyncStats
}

func (s *stubSyncLogRepo) Insert(_ context.Context, log *entity.FeedSyncLog) error {
	s.inserted = append(s.inserted, log)
	return nil
}

func (s *stubSyncLogRepo) Stats(_ context.Context) (*repository.SyncStats, error) {
	return s.stats, nil
}

type stubNotifier struct {
	feedID   string
	failures int
}

func (s *stubNotifier) NotifyFeedDisabled(_ context.Context, feed string, failures int) {
	s.feedID = feed
	s.failures = failures
}

func newService(feeds *stubFeedRepo, articles *stubArticleRepo, logs *stubSyncLogRepo) *feedsync.Service {
	return &feedsync.Service{
		Feeds:    feeds,
		Articles: articles,
		SyncLogs: logs,
		Config:   feedsync.DefaultConfig(),
	}
}

func TestPendingFeeds(t *testing.T) {
	feeds := &stubFeedRepo{
		autoDisabled:  2,
		pendingFeeds:  []*entity.Feed{{ID: "hn"}, {ID: "lobsters"}},
		disabledCount: 5,
	}
	svc := newService(feeds, &stubArticleRepo{}, &stubSyncLogRepo{})

	got, err := svc.PendingFeeds(context.Background(), 0, true, 0)
	require.NoError(t, err)

	assert.Len(t, got.Feeds, 2)
	assert.Equal(t, int64(5), got.DisabledCount)
	// Zero limit and interval fall back to defaults.
	assert.Equal(t, 10, feeds.pendingOpts.Limit)
	assert.Equal(t, feedsync.DefaultSuccessInterval, feeds.pendingOpts.SuccessInterval)
	assert.True(t, feeds.pendingOpts.SkipRecentSuccess)
}

func TestClaimFeed(t *testing.T) {
	feeds := &stubFeedRepo{claimFeed: &entity.Feed{ID: "hn", LastSyncCrawlerID: "worker-1"}}
	svc := newService(feeds, &stubArticleRepo{}, &stubSyncLogRepo{})

	feed, err := svc.ClaimFeed(context.Background(), "hn", "worker-1")
	require.NoError(t, err)
	assert.Equal(t, "hn", feed.ID)
	assert.Equal(t, "worker-1", feeds.claimedBy)
}

func TestClaimFeed_Conflict(t *testing.T) {
	feeds := &stubFeedRepo{claimErr: entity.ErrConflict}
	svc := newService(feeds, &stubArticleRepo{}, &stubSyncLogRepo{})

	_, err := svc.ClaimFeed(context.Background(), "hn", "worker-2")
	assert.True(t, errors.Is(err, entity.ErrConflict))
}

func TestClaimFeed_MissingCrawlerID(t *testing.T) {
	svc := newService(&stubFeedRepo{}, &stubArticleRepo{}, &stubSyncLogRepo{})

	_, err := svc.ClaimFeed(context.Background(), "hn", "")
	var verr *entity.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "crawler_id", verr.Field)
}

func TestSubmitResult_Success(t *testing.T) {
	pub := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	feeds := &stubFeedRepo{}
	articles := &stubArticleRepo{insertedCount: 2}
	logs := &stubSyncLogRepo{}
	svc := newService(feeds, articles, logs)

	got, err := svc.SubmitResult(context.Background(), feedsync.SubmitInput{
		FeedID:    "hn",
		CrawlerID: "worker-1",
		Status:    entity.SyncStatusOK,
		Articles: []feedsync.ArticleEntry{
			{Title: "a", Link: "https://example.com/a", PublishedDate: &pub},
			{Title: "b", Link: "https://example.com/b"},
			{Title: "no link, skipped"},
		},
		TriggeredBy: "scheduler",
	})
	require.NoError(t, err)

	assert.Equal(t, entity.SyncStatusOK, got.Status)
	assert.Equal(t, 2, got.NewArticles)
	assert.NotEmpty(t, got.SyncID)
	assert.False(t, got.AutoDisabled)

	// The entry without a link never reaches the batch insert.
	require.Len(t, articles.insertedArticles, 2)
	assert.Equal(t, "hn", articles.insertedArticles[0].FeedID)

	require.NotNil(t, feeds.successInput)
	assert.Equal(t, "hn", feeds.successInput.FeedID)

	require.Len(t, logs.inserted, 1)
	assert.Equal(t, 1, logs.inserted[0].SyncedFeeds)
	assert.Equal(t, 2, logs.inserted[0].TotalArticles)
	assert.Equal(t, "scheduler", logs.inserted[0].TriggeredBy)
}

func TestSubmitResult_FailureBelowThreshold(t *testing.T) {
	feeds := &stubFeedRepo{
		failureResult: &repository.SyncFailureResult{ConsecutiveFailures: 3},
	}
	notifier := &stubNotifier{}
	logs := &stubSyncLogRepo{}
	svc := newService(feeds, &stubArticleRepo{}, logs)
	svc.Notifier = notifier

	got, err := svc.SubmitResult(context.Background(), feedsync.SubmitInput{
		FeedID:       "hn",
		Status:       entity.SyncStatusFailed,
		ErrorMessage: "connection refused",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, got.ConsecutiveFailures)
	assert.False(t, got.AutoDisabled)
	assert.Empty(t, notifier.feedID)

	require.NotNil(t, feeds.failureInput)
	assert.Equal(t, "connection refused", feeds.failureInput.ErrorMessage)

	require.Len(t, logs.inserted, 1)
	assert.Equal(t, 1, logs.inserted[0].FailedFeeds)
}

func TestSubmitResult_AutoDisableNotifies(t *testing.T) {
	feeds := &stubFeedRepo{
		failureResult: &repository.SyncFailureResult{ConsecutiveFailures: 20, AutoDisabled: true},
	}
	notifier := &stubNotifier{}
	svc := newService(feeds, &stubArticleRepo{}, &stubSyncLogRepo{})
	svc.Notifier = notifier

	got, err := svc.SubmitResult(context.Background(), feedsync.SubmitInput{
		FeedID:       "hn",
		Status:       entity.SyncStatusFailed,
		ErrorMessage: "410 gone",
	})
	require.NoError(t, err)

	assert.True(t, got.AutoDisabled)
	assert.Equal(t, "hn", notifier.feedID)
	assert.Equal(t, 20, notifier.failures)
}

func TestSubmitResult_InvalidStatus(t *testing.T) {
	svc := newService(&stubFeedRepo{}, &stubArticleRepo{}, &stubSyncLogRepo{})

	_, err := svc.SubmitResult(context.Background(), feedsync.SubmitInput{
		FeedID: "hn",
		Status: entity.SyncStatus("partial"),
	})
	var verr *entity.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "status", verr.Field)
}

func TestResetFailures(t *testing.T) {
	feeds := &stubFeedRepo{}
	svc := newService(feeds, &stubArticleRepo{}, &stubSyncLogRepo{})

	require.NoError(t, svc.ResetFailures(context.Background(), "hn", true))
	assert.Equal(t, "hn", feeds.resetFeedID)
	assert.True(t, feeds.resetReactivte)
}
