package crawlapi_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rss-coordinator/internal/handler/http/crawlapi"
	"rss-coordinator/internal/repository"
	"rss-coordinator/internal/usecase/crawl"
)

type stubStepArticles struct {
	repository.ArticleRepository

	stepUpd *repository.ProcessingStepUpdate
}

func (s *stubStepArticles) UpdateProcessingStep(_ context.Context, upd repository.ProcessingStepUpdate) error {
	s.stepUpd = &upd
	return nil
}

func newStepMux(articles *stubStepArticles) *http.ServeMux {
	svc := &crawl.Service{Articles: articles}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	mux := http.NewServeMux()
	crawlapi.Register(mux, svc, logger)
	return mux
}

func TestStepEndpoint(t *testing.T) {
	articles := &stubStepArticles{}
	mux := newStepMux(articles)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/crawl/articles/9/step",
		strings.NewReader(`{"step":"summary_generated","status":"failed","error_message":"model unavailable"}`))
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, articles.stepUpd)
	assert.Equal(t, int64(9), articles.stepUpd.ArticleID)
	assert.Equal(t, "summary_generated", articles.stepUpd.Step)
	assert.False(t, articles.stepUpd.OK)
	assert.Equal(t, "model unavailable", articles.stepUpd.ErrorMessage)
}

func TestStepEndpoint_InvalidStatus(t *testing.T) {
	mux := newStepMux(&stubStepArticles{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/crawl/articles/9/step",
		strings.NewReader(`{"step":"content_saved","status":"partial"}`))
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStepEndpoint_UnknownStep(t *testing.T) {
	mux := newStepMux(&stubStepArticles{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/crawl/articles/9/step",
		strings.NewReader(`{"step":"uploaded","status":"ok"}`))
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
