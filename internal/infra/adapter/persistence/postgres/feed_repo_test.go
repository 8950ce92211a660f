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

func feedRow(f *entity.Feed) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "url", "category_id", "title", "description", "logo",
		"is_active", "disable_reason",
		"last_sync_at", "last_successful_sync_at", "last_sync_status",
		"consecutive_failures", "last_sync_error", "last_sync_crawler_id",
		"last_sync_started_at",
		"crawl_with_js", "crawl_delay_s", "custom_headers", "use_proxy",
		"created_at", "updated_at",
	}).AddRow(
		f.ID, f.URL, f.CategoryID, f.Title, f.Description, f.Logo,
		f.IsActive, f.DisableReason,
		f.LastSyncAt, f.LastSuccessfulSyncAt, string(f.LastSyncStatus),
		f.ConsecutiveFailures, f.LastSyncError, f.LastSyncCrawlerID,
		f.LastSyncStartedAt,
		f.CrawlWithJS, f.CrawlDelaySec, nil, f.UseProxy,
		f.CreatedAt, f.UpdatedAt,
	)
}

func TestFeedRepo_Get(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Date(2025, 7, 19, 0, 0, 0, 0, time.UTC)
	want := &entity.Feed{
		ID: "hn", URL: "https://news.ycombinator.com/rss",
		Title: "Hacker News", IsActive: true,
		LastSyncStatus: entity.SyncStatusNone,
		CreatedAt:      now, UpdatedAt: now,
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id")).
		WithArgs("hn").
		WillReturnRows(feedRow(want))

	repo := pg.NewFeedRepo(db)
	got, err := repo.Get(context.Background(), "hn")
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

func TestFeedRepo_Get_Absent(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := pg.NewFeedRepo(db)
	got, err := repo.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get err=%v", err)
	}
	if got != nil {
		t.Fatalf("want nil feed, got %+v", got)
	}
}

func TestFeedRepo_ClaimSync(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Date(2025, 7, 19, 10, 0, 0, 0, time.UTC)
	claimed := &entity.Feed{
		ID: "hn", URL: "https://news.ycombinator.com/rss",
		IsActive: true, LastSyncStatus: entity.SyncStatusOK,
		LastSyncCrawlerID: "worker-1", LastSyncStartedAt: &now,
		CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE feeds SET")).
		WithArgs(now, "worker-1", "hn", 20, now.Add(-30*time.Minute)).
		WillReturnRows(feedRow(claimed))

	repo := pg.NewFeedRepo(db)
	got, err := repo.ClaimSync(context.Background(), "hn", "worker-1", now, 30*time.Minute, 20)
	if err != nil {
		t.Fatalf("ClaimSync err=%v", err)
	}
	if got.LastSyncCrawlerID != "worker-1" {
		t.Fatalf("crawler_id=%q", got.LastSyncCrawlerID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFeedRepo_ClaimSync_LostRace(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Date(2025, 7, 19, 10, 0, 0, 0, time.UTC)
	started := now.Add(-time.Minute)
	held := &entity.Feed{
		ID: "hn", URL: "https://news.ycombinator.com/rss",
		IsActive: true, LastSyncStatus: entity.SyncStatusOK,
		LastSyncCrawlerID: "worker-2", LastSyncStartedAt: &started,
		CreatedAt: now, UpdatedAt: now,
	}

	// CAS update matches no row, follow-up Get shows an eligible feed
	// leased by someone else.
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE feeds SET")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id")).
		WithArgs("hn").
		WillReturnRows(feedRow(held))

	repo := pg.NewFeedRepo(db)
	_, err := repo.ClaimSync(context.Background(), "hn", "worker-1", now, 30*time.Minute, 20)
	if !errors.Is(err, entity.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}

func TestFeedRepo_ClaimSync_Ineligible(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Date(2025, 7, 19, 10, 0, 0, 0, time.UTC)
	disabled := &entity.Feed{
		ID: "dead", URL: "https://example.com/rss",
		IsActive: false, LastSyncStatus: entity.SyncStatusFailed,
		ConsecutiveFailures: 20,
		CreatedAt:           now, UpdatedAt: now,
	}

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE feeds SET")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id")).
		WithArgs("dead").
		WillReturnRows(feedRow(disabled))

	repo := pg.NewFeedRepo(db)
	_, err := repo.ClaimSync(context.Background(), "dead", "worker-1", now, 30*time.Minute, 20)
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestFeedRepo_SubmitSyncFailure_AutoDisable(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Date(2025, 7, 19, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE feeds SET")).
		WithArgs(now, "connect timeout", 20, "hn").
		WillReturnRows(sqlmock.NewRows([]string{"consecutive_failures", "is_active"}).
			AddRow(20, false))

	repo := pg.NewFeedRepo(db)
	result, err := repo.SubmitSyncFailure(context.Background(), repository.SyncFailure{
		FeedID: "hn", ErrorMessage: "connect timeout",
		DisableThreshold: 20, Now: now,
	})
	if err != nil {
		t.Fatalf("SubmitSyncFailure err=%v", err)
	}
	if !result.AutoDisabled || result.ConsecutiveFailures != 20 {
		t.Fatalf("result=%+v", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFeedRepo_PendingSync(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer func() { _ = db.Close() }()

	now := time.Date(2025, 7, 19, 10, 0, 0, 0, time.UTC)
	feed := &entity.Feed{
		ID: "hn", URL: "https://news.ycombinator.com/rss",
		IsActive: true, LastSyncStatus: entity.SyncStatusNone,
		CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectQuery("FROM feeds").
		WithArgs(20, now.Add(-30*time.Minute), now.Add(-30*time.Minute), 10).
		WillReturnRows(feedRow(feed))

	repo := pg.NewFeedRepo(db)
	got, err := repo.PendingSync(context.Background(), repository.FeedQueueOptions{
		Limit:             10,
		SkipRecentSuccess: true,
		SuccessInterval:   30 * time.Minute,
		LeaseTimeout:      30 * time.Minute,
		DisableThreshold:  20,
	}, now)
	if err != nil || len(got) != 1 {
		t.Fatalf("PendingSync err=%v len=%d", err, len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
