package syncapi_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/handler/http/syncapi"
	"rss-coordinator/internal/repository"
	"rss-coordinator/internal/usecase/feedsync"
)

type stubFeedRepo struct {
	repository.FeedRepository

	pendingFeeds  []*entity.Feed
	disabledCount int64
	claimFeed     *entity.Feed
	claimErr      error
	failureResult *repository.SyncFailureResult
	resetFeedID   string
	reactivated   bool
}

func (s *stubFeedRepo) AutoDisableFailed(_ context.Context, _ int, _ string) (int64, error) {
	return 0, nil
}

func (s *stubFeedRepo) PendingSync(_ context.Context, _ repository.FeedQueueOptions, _ time.Time) ([]*entity.Feed, error) {
	return s.pendingFeeds, nil
}

func (s *stubFeedRepo) CountDisabled(_ context.Context) (int64, error) {
	return s.disabledCount, nil
}

func (s *stubFeedRepo) ClaimSync(_ context.Context, _, _ string, _ time.Time, _ time.Duration, _ int) (*entity.Feed, error) {
	return s.claimFeed, s.claimErr
}

func (s *stubFeedRepo) SubmitSyncSuccess(_ context.Context, _ repository.SyncSuccess) error {
	return nil
}

func (s *stubFeedRepo) SubmitSyncFailure(_ context.Context, _ repository.SyncFailure) (*repository.SyncFailureResult, error) {
	return s.failureResult, nil
}

func (s *stubFeedRepo) ResetFailures(_ context.Context, feedID string, reactivate bool) error {
	s.resetFeedID = feedID
	s.reactivated = reactivate
	return nil
}

type stubArticleRepo struct {
	repository.ArticleRepository

	insertedCount int
}

func (s *stubArticleRepo) InsertBatch(_ context.Context, articles []*entity.Article) (int, error) {
	if s.insertedCount > len(articles) {
		return len(articles), nil
	}
	return s.insertedCount, nil
}

type stubSyncLogRepo struct {
	repository.SyncLogRepository

	stats *repository.SyncStats
}

func (s *stubSyncLogRepo) Insert(_ context.Context, _ *entity.FeedSyncLog) error {
	return nil
}

func (s *stubSyncLogRepo) Stats(_ context.Context) (*repository.SyncStats, error) {
	return s.stats, nil
}

func newMux(feeds *stubFeedRepo, articles *stubArticleRepo, logs *stubSyncLogRepo) *http.ServeMux {
	svc := &feedsync.Service{
		Feeds:    feeds,
		Articles: articles,
		SyncLogs: logs,
		Config:   feedsync.DefaultConfig(),
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	mux := http.NewServeMux()
	syncapi.Register(mux, svc, logger)
	return mux
}

func TestPendingEndpoint(t *testing.T) {
	mux := newMux(&stubFeedRepo{
		pendingFeeds:  []*entity.Feed{{ID: "hn", URL: "https://hn.example/rss"}, {ID: "lobsters"}},
		disabledCount: 3,
	}, &stubArticleRepo{}, &stubSyncLogRepo{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sync/pending?limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Feeds []struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		} `json:"feeds"`
		Count         int   `json:"count"`
		DisabledCount int64 `json:"disabled_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, int64(3), body.DisabledCount)
	assert.Equal(t, "hn", body.Feeds[0].ID)
	assert.Equal(t, "https://hn.example/rss", body.Feeds[0].URL)
}

func TestPendingEndpoint_RejectsNegativeInterval(t *testing.T) {
	mux := newMux(&stubFeedRepo{}, &stubArticleRepo{}, &stubSyncLogRepo{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sync/pending?success_interval=-5", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClaimEndpoint(t *testing.T) {
	mux := newMux(&stubFeedRepo{
		claimFeed: &entity.Feed{ID: "hn", CrawlWithJS: true},
	}, &stubArticleRepo{}, &stubSyncLogRepo{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync/claim",
		strings.NewReader(`{"feed_id":"hn","crawler_id":"worker-1"}`))
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Feed struct {
			ID          string `json:"id"`
			CrawlWithJS bool   `json:"crawl_with_js"`
		} `json:"feed"`
		Claimed bool `json:"claimed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Claimed)
	assert.Equal(t, "hn", body.Feed.ID)
	assert.True(t, body.Feed.CrawlWithJS)
}

func TestClaimEndpoint_Conflict(t *testing.T) {
	mux := newMux(&stubFeedRepo{claimErr: entity.ErrConflict}, &stubArticleRepo{}, &stubSyncLogRepo{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync/claim",
		strings.NewReader(`{"feed_id":"hn","crawler_id":"worker-2"}`))
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestClaimEndpoint_MissingCrawlerID(t *testing.T) {
	mux := newMux(&stubFeedRepo{}, &stubArticleRepo{}, &stubSyncLogRepo{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync/claim",
		strings.NewReader(`{"feed_id":"hn"}`))
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResultEndpoint_Success(t *testing.T) {
	mux := newMux(&stubFeedRepo{}, &stubArticleRepo{insertedCount: 2}, &stubSyncLogRepo{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync/result", strings.NewReader(`{
		"feed_id": "hn",
		"crawler_id": "worker-1",
		"status": "ok",
		"articles": [
			{"title": "a", "link": "https://example.com/a"},
			{"title": "b", "link": "https://example.com/b"}
		]
	}`))
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		SyncID       string `json:"sync_id"`
		Status       string `json:"status"`
		NewArticles  int    `json:"new_articles"`
		AutoDisabled bool   `json:"auto_disabled"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.SyncID)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 2, body.NewArticles)
	assert.False(t, body.AutoDisabled)
}

func TestResultEndpoint_FailureReportsCounter(t *testing.T) {
	mux := newMux(&stubFeedRepo{
		failureResult: &repository.SyncFailureResult{ConsecutiveFailures: 7},
	}, &stubArticleRepo{}, &stubSyncLogRepo{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync/result", strings.NewReader(`{
		"feed_id": "hn",
		"crawler_id": "worker-1",
		"status": "failed",
		"error_message": "connection refused"
	}`))
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		ConsecutiveFailures int `json:"consecutive_failures"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 7, body.ConsecutiveFailures)
}

func TestResultEndpoint_InvalidStatus(t *testing.T) {
	mux := newMux(&stubFeedRepo{}, &stubArticleRepo{}, &stubSyncLogRepo{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync/result",
		strings.NewReader(`{"feed_id":"hn","status":"partial"}`))
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	mux := newMux(&stubFeedRepo{}, &stubArticleRepo{}, &stubSyncLogRepo{
		stats: &repository.SyncStats{TotalSyncs: 10, OKSyncs: 8, FailedSyncs: 2, TotalArticles: 140},
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sync/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		TotalSyncs    int64 `json:"total_syncs"`
		TotalArticles int64 `json:"total_articles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(10), body.TotalSyncs)
	assert.Equal(t, int64(140), body.TotalArticles)
}

func TestResetEndpoint(t *testing.T) {
	feeds := &stubFeedRepo{}
	mux := newMux(feeds, &stubArticleRepo{}, &stubSyncLogRepo{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/sync/feeds/hn/reset",
		strings.NewReader(`{"reactivate":true}`))
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hn", feeds.resetFeedID)
	assert.True(t, feeds.reactivated)
}
