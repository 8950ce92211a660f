package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"rss-coordinator/internal/domain/entity"
	pg "rss-coordinator/internal/infra/adapter/persistence/postgres"
	"rss-coordinator/internal/repository"
)

func articleRow(a *entity.Article) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "feed_id", "link", "title", "summary", "chinese_summary",
		"english_summary", "thumbnail_url", "published_date", "status",
		"is_locked", "lock_timestamp", "crawler_id", "retry_count",
		"max_retries", "error_message", "content_id", "is_vectorized",
		"vector_id", "vectorized_at", "embedding_model", "vector_dimension",
		"vectorization_status", "vectorization_error", "created_at", "updated_at",
	}).AddRow(
		a.ID, a.FeedID, a.Link, a.Title, a.Summary, a.ChineseSummary,
		a.EnglishSummary, a.ThumbnailURL, a.PublishedDate, string(a.Status),
		a.IsLocked, a.LockTimestamp, a.CrawlerID, a.RetryCount,
		a.MaxRetries, a.ErrorMessage, a.ContentID, a.IsVectorized,
		a.VectorID, a.VectorizedAt, a.EmbeddingModel, a.VectorDimension,
		string(a.VectorizationStatus), a.VectorizationError, a.CreatedAt, a.UpdatedAt,
	)
}

func TestArticleRepo_Get(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Date(2025, 7, 19, 0, 0, 0, 0, time.UTC)
	want := &entity.Article{
		ID: 1, FeedID: "hn", Link: "https://example.com/post",
		Title: "Go 1.24 released", Status: entity.ArticleStatusPending,
		MaxRetries: 3, VectorizationStatus: entity.VectorizationPending,
		PublishedDate: &now, CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id")).
		WithArgs(int64(1)).
		WillReturnRows(articleRow(want))

	repo := pg.NewArticleRepo(db)
	got, err := repo.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestArticleRepo_List_Paged(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM articles WHERE feed_id = $1")).
		WithArgs("hn").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(41))
	mock.ExpectQuery("FROM articles").
		WithArgs("hn", 20, 20).
		WillReturnRows(articleRow(&entity.Article{
			ID: 7, FeedID: "hn", Link: "https://example.com/7", Title: "x",
			Status: entity.ArticleStatusOK, MaxRetries: 3,
			VectorizationStatus: entity.VectorizationPending,
			CreatedAt:           now, UpdatedAt: now,
		}))

	repo := pg.NewArticleRepo(db)
	got, err := repo.List(context.Background(),
		repository.ArticleFilter{"feed_id": "hn"},
		repository.Page{Page: 2, PerPage: 20})
	if err != nil {
		t.Fatalf("List err=%v", err)
	}
	if got.Total != 41 || got.Pages != 3 || got.CurrentPage != 2 || len(got.List) != 1 {
		t.Fatalf("page=%+v len=%d", got, len(got.List))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestArticleRepo_InsertBatch_SkipsDuplicates(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	articles := []*entity.Article{
		{FeedID: "hn", Link: "https://example.com/a", Title: "a"},
		{FeedID: "hn", Link: "https://example.com/b", Title: "b"},
	}

	// Two rows submitted, one survives the conflict clause.
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (link) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := pg.NewArticleRepo(db)
	inserted, err := repo.InsertBatch(context.Background(), articles)
	if err != nil {
		t.Fatalf("InsertBatch err=%v", err)
	}
	if inserted != 1 {
		t.Fatalf("inserted=%d", inserted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestArticleRepo_InsertBatch_Empty(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	repo := pg.NewArticleRepo(db)
	inserted, err := repo.InsertBatch(context.Background(), nil)
	if err != nil || inserted != 0 {
		t.Fatalf("inserted=%d err=%v", inserted, err)
	}
}

func TestArticleRepo_ClaimCrawl(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Date(2025, 7, 19, 10, 0, 0, 0, time.UTC)
	claimed := &entity.Article{
		ID: 5, FeedID: "hn", Link: "https://example.com/5", Title: "t",
		Status: entity.ArticleStatusPending, MaxRetries: 3,
		IsLocked: true, LockTimestamp: &now, CrawlerID: "worker-1",
		VectorizationStatus: entity.VectorizationPending,
		CreatedAt:           now, UpdatedAt: now,
	}

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE articles SET")).
		WithArgs(now, "worker-1", int64(5)).
		WillReturnRows(articleRow(claimed))

	repo := pg.NewArticleRepo(db)
	got, err := repo.ClaimCrawl(context.Background(), 5, "worker-1", now)
	if err != nil {
		t.Fatalf("ClaimCrawl err=%v", err)
	}
	if !got.IsLocked || got.CrawlerID != "worker-1" {
		t.Fatalf("claim not applied: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestArticleRepo_ClaimCrawl_AlreadyLocked(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Date(2025, 7, 19, 10, 0, 0, 0, time.UTC)
	held := &entity.Article{
		ID: 5, FeedID: "hn", Link: "https://example.com/5", Title: "t",
		Status: entity.ArticleStatusPending, MaxRetries: 3,
		IsLocked: true, LockTimestamp: &now, CrawlerID: "worker-2",
		VectorizationStatus: entity.VectorizationPending,
		CreatedAt:           now, UpdatedAt: now,
	}

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE articles SET")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id")).
		WithArgs(int64(5)).
		WillReturnRows(articleRow(held))

	repo := pg.NewArticleRepo(db)
	_, err := repo.ClaimCrawl(context.Background(), 5, "worker-1", now)
	if !errors.Is(err, entity.ErrAlreadyLocked) {
		t.Fatalf("want ErrAlreadyLocked, got %v", err)
	}
}

func TestArticleRepo_SubmitCrawlFailure(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("AND crawler_id = $3")).
		WithArgs("fetch: 503", int64(5), "worker-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := pg.NewArticleRepo(db)
	if err := repo.SubmitCrawlFailure(context.Background(), 5, "worker-1", "fetch: 503"); err != nil {
		t.Fatalf("SubmitCrawlFailure err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestArticleRepo_SubmitCrawlSuccess_LeaseReassigned(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Date(2025, 7, 19, 10, 0, 0, 0, time.UTC)
	held := &entity.Article{
		ID: 5, FeedID: "hn", Link: "https://example.com/5", Title: "t",
		Status: entity.ArticleStatusPending, MaxRetries: 3,
		IsLocked: true, LockTimestamp: &now, CrawlerID: "worker-2",
		VectorizationStatus: entity.VectorizationPending,
		CreatedAt:           now, UpdatedAt: now,
	}

	// The guarded UPDATE misses because worker-2 holds the lease now.
	mock.ExpectExec(regexp.QuoteMeta("AND crawler_id = $3")).
		WithArgs(int64(77), int64(5), "worker-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id")).
		WithArgs(int64(5)).
		WillReturnRows(articleRow(held))

	repo := pg.NewArticleRepo(db)
	err := repo.SubmitCrawlSuccess(context.Background(), 5, 77, "worker-1")
	if !errors.Is(err, entity.ErrLeaseMismatch) {
		t.Fatalf("want ErrLeaseMismatch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestArticleRepo_SubmitCrawlFailure_UnknownArticle(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("AND crawler_id = $3")).
		WithArgs("fetch: 503", int64(404), "worker-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id")).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := pg.NewArticleRepo(db)
	err := repo.SubmitCrawlFailure(context.Background(), 404, "worker-1", "fetch: 503")
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestArticleRepo_UpdateProcessingStep_VectorizedOK(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	// The vector id is derived in SQL from the row itself.
	mock.ExpectExec(regexp.QuoteMeta("vector_id            = 'article_' || feed_id || '_' || id::text")).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := pg.NewArticleRepo(db)
	err := repo.UpdateProcessingStep(context.Background(), repository.ProcessingStepUpdate{
		ArticleID: 9, Step: "vectorized", OK: true,
	})
	if err != nil {
		t.Fatalf("UpdateProcessingStep err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestArticleRepo_UpdateProcessingStep_ContentSavedFailed(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("retry_count    = retry_count + 1")).
		WithArgs(int64(9), "fetch: 503").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := pg.NewArticleRepo(db)
	err := repo.UpdateProcessingStep(context.Background(), repository.ProcessingStepUpdate{
		ArticleID: 9, Step: "content_saved", OK: false, ErrorMessage: "fetch: 503",
	})
	if err != nil {
		t.Fatalf("UpdateProcessingStep err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestArticleRepo_UpdateProcessingStep_UnknownStep(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	repo := pg.NewArticleRepo(db)
	err := repo.UpdateProcessingStep(context.Background(), repository.ProcessingStepUpdate{
		ArticleID: 9, Step: "uploaded", OK: true,
	})
	if !errors.Is(err, entity.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestArticleRepo_UpdateSummaries_PartialWrite(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	chinese := "摘要"
	mock.ExpectExec(regexp.QuoteMeta("chinese_summary = $1")).
		WithArgs(chinese, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := pg.NewArticleRepo(db)
	err := repo.UpdateSummaries(context.Background(), 9, &chinese, nil, false)
	if err != nil {
		t.Fatalf("UpdateSummaries err=%v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestArticleRepo_ClaimVectorization_Conflict(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Date(2025, 7, 19, 10, 0, 0, 0, time.UTC)
	inProgress := &entity.Article{
		ID: 3, FeedID: "hn", Link: "https://example.com/3", Title: "t",
		Status: entity.ArticleStatusOK, MaxRetries: 3,
		VectorizationStatus: entity.VectorizationInProgress,
		CreatedAt:           now, UpdatedAt: now,
	}

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE articles SET")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id")).
		WithArgs(int64(3)).
		WillReturnRows(articleRow(inProgress))

	repo := pg.NewArticleRepo(db)
	_, err := repo.ClaimVectorization(context.Background(), 3)
	if !errors.Is(err, entity.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}

func TestArticleRepo_ReleaseExpiredCrawlLeases(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Date(2025, 7, 19, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE articles SET")).
		WithArgs(now.Add(-30 * time.Minute)).
		WillReturnResult(sqlmock.NewResult(0, 4))

	repo := pg.NewArticleRepo(db)
	n, err := repo.ReleaseExpiredCrawlLeases(context.Background(), now, 30*time.Minute)
	if err != nil || n != 4 {
		t.Fatalf("released=%d err=%v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestArticleRepo_CountByVectorizationStatus(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY vectorization_status")).
		WillReturnRows(sqlmock.NewRows([]string{"vectorization_status", "count"}).
			AddRow("pending", 10).
			AddRow("ok", 90).
			AddRow("failed", 2))

	repo := pg.NewArticleRepo(db)
	counts, err := repo.CountByVectorizationStatus(context.Background())
	if err != nil {
		t.Fatalf("CountByVectorizationStatus err=%v", err)
	}
	want := &repository.VectorizationCounts{Pending: 10, OK: 90, Failed: 2}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}
