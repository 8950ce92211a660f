package digestapi_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/handler/http/digestapi"
	"rss-coordinator/internal/infra/provider"
	"rss-coordinator/internal/repository"
	"rss-coordinator/internal/usecase/digest"
)

type stubFeeds struct {
	repository.FeedRepository

	feeds map[string]*entity.Feed
}

func (s *stubFeeds) Get(_ context.Context, id string) (*entity.Feed, error) {
	return s.feeds[id], nil
}

type stubArticles struct {
	repository.ArticleRepository

	byFeed map[string][]*entity.Article
}

func (s *stubArticles) ListByFeedAndDay(_ context.Context, feedID string, _ time.Time) ([]*entity.Article, error) {
	return s.byFeed[feedID], nil
}

type stubSummaries struct {
	repository.DailySummaryRepository

	pending  []string
	existing map[string]*entity.DailySummary
	inserted []*entity.DailySummary
}

func (s *stubSummaries) FeedsNeedingSummary(_ context.Context, _ time.Time, _ entity.SummaryLanguage) ([]string, error) {
	return s.pending, nil
}

func (s *stubSummaries) Get(_ context.Context, feedID string, _ time.Time, _ entity.SummaryLanguage) (*entity.DailySummary, error) {
	return s.existing[feedID], nil
}

func (s *stubSummaries) Insert(_ context.Context, summary *entity.DailySummary) error {
	summary.ID = 21
	s.inserted = append(s.inserted, summary)
	return nil
}

type stubChat struct{}

func (stubChat) Chat(_ context.Context, req provider.ChatRequest) (*provider.ChatResponse, error) {
	return &provider.ChatResponse{
		Message: provider.Message{
			Role:    provider.RoleAssistant,
			Content: `{"title": "今日要闻", "content": "综述内容。"}`,
		},
		Model: "gpt-4o-mini",
	}, nil
}

func newMux(summaries *stubSummaries) *http.ServeMux {
	svc := &digest.Service{
		Feeds: &stubFeeds{feeds: map[string]*entity.Feed{
			"hn": {ID: "hn", Title: "Hacker News"},
		}},
		Articles: &stubArticles{byFeed: map[string][]*entity.Article{
			"hn": {{ID: 1, Title: "Lease design", ChineseSummary: "关于租约协调机制设计的详细摘要内容。"}},
		}},
		Summaries: summaries,
		Chat:      stubChat{},
		Provider:  "openai",
		Model:     "gpt-4o-mini",
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	mux := http.NewServeMux()
	digestapi.Register(mux, svc, logger)
	return mux
}

func TestPendingEndpoint(t *testing.T) {
	mux := newMux(&stubSummaries{pending: []string{"hn", "lobsters"}})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/digests/pending?date=2026-03-01&language=zh&worker_id=worker-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Date     string   `json:"date"`
		Language string   `json:"language"`
		FeedIDs  []string `json:"feed_ids"`
		Count    int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2026-03-01", body.Date)
	assert.Equal(t, []string{"hn", "lobsters"}, body.FeedIDs)
	assert.Equal(t, 2, body.Count)
}

func TestPendingEndpoint_InvalidLanguage(t *testing.T) {
	mux := newMux(&stubSummaries{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/digests/pending?language=fr", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessFeedEndpoint(t *testing.T) {
	summaries := &stubSummaries{existing: map[string]*entity.DailySummary{}}
	mux := newMux(summaries)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/digests/feeds/hn/process?date=2026-03-01&language=zh&worker_id=worker-1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Result struct {
			FeedID       string `json:"feed_id"`
			SummaryTitle string `json:"summary_title"`
		} `json:"result"`
		Status           string `json:"status"`
		ProcessingTimeMS *int64 `json:"processing_time_ms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "generated", body.Status)
	assert.Equal(t, "hn", body.Result.FeedID)
	assert.Equal(t, "今日要闻", body.Result.SummaryTitle)
	require.NotNil(t, body.ProcessingTimeMS)
	require.Len(t, summaries.inserted, 1)
}

func TestProcessFeedEndpoint_ExistingRow(t *testing.T) {
	existing := &entity.DailySummary{
		ID: 9, FeedID: "hn", SummaryDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Language: entity.LanguageChinese, SummaryTitle: "already there",
	}
	mux := newMux(&stubSummaries{existing: map[string]*entity.DailySummary{"hn": existing}})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/digests/feeds/hn/process?date=2026-03-01&language=zh&worker_id=worker-2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status string `json:"status"`
		Result struct {
			SummaryTitle string `json:"summary_title"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "exists", body.Status)
	assert.Equal(t, "already there", body.Result.SummaryTitle)
}
