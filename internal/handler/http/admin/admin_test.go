package admin_test

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
	"rss-coordinator/internal/handler/http/admin"
	"rss-coordinator/internal/repository"
)

type stubFeedRepo struct {
	repository.FeedRepository

	feeds   map[string]*entity.Feed
	created *entity.Feed
	updated *entity.Feed
}

func (s *stubFeedRepo) Get(_ context.Context, id string) (*entity.Feed, error) {
	return s.feeds[id], nil
}

func (s *stubFeedRepo) List(_ context.Context) ([]*entity.Feed, error) {
	feeds := make([]*entity.Feed, 0, len(s.feeds))
	for _, f := range s.feeds {
		feeds = append(feeds, f)
	}
	return feeds, nil
}

func (s *stubFeedRepo) Create(_ context.Context, feed *entity.Feed) error {
	s.created = feed
	return nil
}

func (s *stubFeedRepo) Update(_ context.Context, feed *entity.Feed) error {
	s.updated = feed
	return nil
}

type stubScriptRepo struct {
	repository.ScriptRepository

	versions    []*entity.ExtractionScript
	created     *entity.ExtractionScript
	publishedID int64
}

func (s *stubScriptRepo) ListByFeed(_ context.Context, _ string) ([]*entity.ExtractionScript, error) {
	return s.versions, nil
}

func (s *stubScriptRepo) Create(_ context.Context, script *entity.ExtractionScript) error {
	script.ID = 42
	s.created = script
	return nil
}

func (s *stubScriptRepo) Publish(_ context.Context, scriptID int64) error {
	s.publishedID = scriptID
	return nil
}

func newMux(feeds *stubFeedRepo, scripts *stubScriptRepo) *http.ServeMux {
	mux := http.NewServeMux()
	admin.Register(mux, feeds, scripts, nil, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	return mux
}

func TestCreateFeed(t *testing.T) {
	feeds := &stubFeedRepo{feeds: map[string]*entity.Feed{}}
	mux := newMux(feeds, &stubScriptRepo{})

	body := `{"id":"hn","url":"https://news.ycombinator.com/rss","title":"Hacker News"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/feeds", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, feeds.created)
	assert.Equal(t, "hn", feeds.created.ID)
	assert.True(t, feeds.created.IsActive)
}

func TestCreateFeed_RejectsInvalidURL(t *testing.T) {
	feeds := &stubFeedRepo{feeds: map[string]*entity.Feed{}}
	mux := newMux(feeds, &stubScriptRepo{})

	body := `{"id":"bad","url":"ftp://example.com/feed"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/feeds", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, feeds.created)
}

func TestUpdateFeed_Deactivates(t *testing.T) {
	feeds := &stubFeedRepo{feeds: map[string]*entity.Feed{
		"hn": {ID: "hn", URL: "https://news.ycombinator.com/rss", IsActive: true},
	}}
	mux := newMux(feeds, &stubScriptRepo{})

	req := httptest.NewRequest(http.MethodPut, "/admin/feeds/hn", strings.NewReader(`{"is_active":false}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, feeds.updated)
	assert.False(t, feeds.updated.IsActive)
}

func TestUpdateFeed_NotFound(t *testing.T) {
	mux := newMux(&stubFeedRepo{feeds: map[string]*entity.Feed{}}, &stubScriptRepo{})

	req := httptest.NewRequest(http.MethodPut, "/admin/feeds/missing", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateScript_IncrementsVersion(t *testing.T) {
	feeds := &stubFeedRepo{feeds: map[string]*entity.Feed{
		"hn": {ID: "hn", URL: "https://news.ycombinator.com/rss", IsActive: true},
	}}
	scripts := &stubScriptRepo{versions: []*entity.ExtractionScript{
		{ID: 7, FeedID: "hn", Version: 3, Script: "old"},
	}}
	mux := newMux(feeds, scripts)

	req := httptest.NewRequest(http.MethodPost, "/admin/feeds/hn/scripts",
		strings.NewReader(`{"script":"return document.title","description":"title only"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, scripts.created)
	assert.Equal(t, 4, scripts.created.Version)
	assert.False(t, scripts.created.IsPublished)

	var resp struct {
		Version int `json:"version"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Version)
}

func TestCreateScript_RequiresBody(t *testing.T) {
	feeds := &stubFeedRepo{feeds: map[string]*entity.Feed{
		"hn": {ID: "hn", URL: "https://news.ycombinator.com/rss", IsActive: true},
	}}
	scripts := &stubScriptRepo{}
	mux := newMux(feeds, scripts)

	req := httptest.NewRequest(http.MethodPost, "/admin/feeds/hn/scripts", strings.NewReader(`{"script":""}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, scripts.created)
}

func TestPublishScript(t *testing.T) {
	scripts := &stubScriptRepo{}
	mux := newMux(&stubFeedRepo{feeds: map[string]*entity.Feed{}}, scripts)

	req := httptest.NewRequest(http.MethodPost, "/admin/scripts/7/publish", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), scripts.publishedID)
}

func TestPublishScript_InvalidID(t *testing.T) {
	scripts := &stubScriptRepo{}
	mux := newMux(&stubFeedRepo{feeds: map[string]*entity.Feed{}}, scripts)

	req := httptest.NewRequest(http.MethodPost, "/admin/scripts/abc/publish", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, scripts.publishedID)
}
