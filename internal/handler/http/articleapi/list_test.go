package articleapi_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rss-coordinator/internal/common/pagination"
	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/handler/http/articleapi"
	"rss-coordinator/internal/repository"
	"rss-coordinator/internal/usecase/retrieve"
)

type stubArticleRepo struct {
	repository.ArticleRepository

	listFilter repository.ArticleFilter
	listPage   repository.Page
	page       *repository.ArticlePage
}

func (s *stubArticleRepo) List(_ context.Context, filter repository.ArticleFilter, page repository.Page) (*repository.ArticlePage, error) {
	s.listFilter = filter
	s.listPage = page
	return s.page, nil
}

func newMux(articles *stubArticleRepo) *http.ServeMux {
	svc := &retrieve.Service{Articles: articles}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	mux := http.NewServeMux()
	articleapi.Register(mux, svc, pagination.DefaultConfig(), logger)
	return mux
}

func TestListEndpoint(t *testing.T) {
	articles := &stubArticleRepo{
		page: &repository.ArticlePage{
			List:        []*entity.Article{{ID: 1, FeedID: "hn", Title: "a"}, {ID: 2, FeedID: "hn", Title: "b"}},
			Total:       42,
			Pages:       3,
			CurrentPage: 2,
			PerPage:     15,
		},
	}
	mux := newMux(articles)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/articles?page=2&limit=15&feed_id=hn&status=summarized", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Articles []struct {
			ID    int64  `json:"id"`
			Title string `json:"title"`
		} `json:"articles"`
		Total       int64 `json:"total"`
		Pages       int   `json:"pages"`
		CurrentPage int   `json:"current_page"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Articles, 2)
	assert.Equal(t, int64(42), body.Total)
	assert.Equal(t, 2, body.CurrentPage)

	assert.Equal(t, repository.Page{Page: 2, PerPage: 15}, articles.listPage)
	assert.Equal(t, "hn", articles.listFilter["feed_id"])
	assert.Equal(t, "summarized", articles.listFilter["status"])
}

func TestListEndpoint_DefaultsApply(t *testing.T) {
	articles := &stubArticleRepo{page: &repository.ArticlePage{}}
	mux := newMux(articles)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/articles", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, repository.Page{Page: 1, PerPage: 20}, articles.listPage)
}

func TestListEndpoint_RejectsOversizedLimit(t *testing.T) {
	mux := newMux(&stubArticleRepo{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/articles?limit=500", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
