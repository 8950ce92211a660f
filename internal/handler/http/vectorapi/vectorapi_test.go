package vectorapi_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/handler/http/vectorapi"
	"rss-coordinator/internal/repository"
	"rss-coordinator/internal/usecase/vectorize"
)

type stubArticles struct {
	repository.ArticleRepository

	article  *entity.Article
	claimErr error
}

func (s *stubArticles) Get(_ context.Context, _ int64) (*entity.Article, error) {
	return s.article, nil
}

func (s *stubArticles) ClaimVectorization(_ context.Context, _ int64) (*entity.Article, error) {
	if s.claimErr != nil {
		return nil, s.claimErr
	}
	claimed := *s.article
	claimed.VectorizationStatus = entity.VectorizationInProgress
	return &claimed, nil
}

type stubTasks struct {
	repository.VectorizationTaskRepository
}

func (s *stubTasks) Create(_ context.Context, task *entity.VectorizationTask) error {
	task.ID = 31
	return nil
}

func newMux(articles *stubArticles) *http.ServeMux {
	svc := &vectorize.Service{Articles: articles, Tasks: &stubTasks{}}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	mux := http.NewServeMux()
	vectorapi.Register(mux, svc, logger)
	return mux
}

func TestClaimEndpoint(t *testing.T) {
	mux := newMux(&stubArticles{article: &entity.Article{
		ID: 42, FeedID: "hn", Title: "Lease design",
		VectorizationStatus: entity.VectorizationPending,
	}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/vectorize/claim",
		strings.NewReader(`{"article_id":42,"worker_id":"worker-1"}`))
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Article struct {
			ID     int64  `json:"id"`
			FeedID string `json:"feed_id"`
		} `json:"article"`
		TaskID int64  `json:"task_id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(42), body.Article.ID)
	assert.Equal(t, int64(31), body.TaskID)
	assert.Equal(t, "in_progress", body.Status)
}

func TestClaimEndpoint_AlreadyClaimed(t *testing.T) {
	mux := newMux(&stubArticles{claimErr: entity.ErrConflict})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/vectorize/claim",
		strings.NewReader(`{"article_id":42,"worker_id":"worker-2"}`))
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestClaimEndpoint_MissingWorkerID(t *testing.T) {
	mux := newMux(&stubArticles{article: &entity.Article{ID: 42}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/vectorize/claim",
		strings.NewReader(`{"article_id":42}`))
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessEndpoint_ForeignClaim(t *testing.T) {
	mux := newMux(&stubArticles{article: &entity.Article{
		ID: 42, FeedID: "hn", Title: "Lease design",
		VectorizationStatus: entity.VectorizationInProgress,
	}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/vectorize/process",
		strings.NewReader(`{"article_id":42,"worker_id":"worker-2"}`))
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
