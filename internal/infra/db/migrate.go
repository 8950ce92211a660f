package db

import (
	"database/sql"
)

// MigrateUp creates the coordinator schema. Statements are idempotent so the
// migration can run on every startup.
func MigrateUp(db *sql.DB) error {
	tables := []string{
		`
CREATE TABLE IF NOT EXISTS feeds (
    id                      TEXT PRIMARY KEY,
    url                     TEXT NOT NULL UNIQUE,
    category_id             TEXT NOT NULL DEFAULT '',
    title                   TEXT NOT NULL DEFAULT '',
    description             TEXT NOT NULL DEFAULT '',
    logo                    TEXT NOT NULL DEFAULT '',
    is_active               BOOLEAN NOT NULL DEFAULT TRUE,
    last_sync_at            TIMESTAMPTZ,
    last_successful_sync_at TIMESTAMPTZ,
    last_sync_status        VARCHAR(10) NOT NULL DEFAULT 'none',
    consecutive_failures    INTEGER NOT NULL DEFAULT 0,
    last_sync_error         TEXT NOT NULL DEFAULT '',
    last_sync_crawler_id    TEXT NOT NULL DEFAULT '',
    last_sync_started_at    TIMESTAMPTZ,
    disable_reason          TEXT NOT NULL DEFAULT '',
    crawl_with_js           BOOLEAN NOT NULL DEFAULT FALSE,
    crawl_delay_s           INTEGER NOT NULL DEFAULT 0,
    custom_headers          JSONB,
    use_proxy               BOOLEAN NOT NULL DEFAULT FALSE,
    created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS article_contents (
    id           BIGSERIAL PRIMARY KEY,
    html_content TEXT NOT NULL DEFAULT '',
    text_content TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS articles (
    id                   BIGSERIAL PRIMARY KEY,
    feed_id              TEXT NOT NULL REFERENCES feeds(id),
    link                 TEXT NOT NULL UNIQUE,
    title                TEXT NOT NULL DEFAULT '',
    summary              TEXT,
    chinese_summary      TEXT,
    english_summary      TEXT,
    thumbnail_url        TEXT NOT NULL DEFAULT '',
    published_date       TIMESTAMPTZ,
    status               VARCHAR(10) NOT NULL DEFAULT 'pending',
    is_locked            BOOLEAN NOT NULL DEFAULT FALSE,
    lock_timestamp       TIMESTAMPTZ,
    crawler_id           TEXT NOT NULL DEFAULT '',
    retry_count          INTEGER NOT NULL DEFAULT 0,
    max_retries          INTEGER NOT NULL DEFAULT 3,
    error_message        TEXT NOT NULL DEFAULT '',
    content_id           BIGINT REFERENCES article_contents(id),
    is_vectorized        BOOLEAN NOT NULL DEFAULT FALSE,
    vector_id            TEXT NOT NULL DEFAULT '',
    vectorized_at        TIMESTAMPTZ,
    embedding_model      TEXT NOT NULL DEFAULT '',
    vector_dimension     INTEGER NOT NULL DEFAULT 0,
    vectorization_status VARCHAR(15) NOT NULL DEFAULT 'pending',
    vectorization_error  TEXT NOT NULL DEFAULT '',
    created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS crawl_batches (
    id                    BIGSERIAL PRIMARY KEY,
    batch_id              UUID NOT NULL UNIQUE,
    article_id            BIGINT NOT NULL REFERENCES articles(id),
    feed_id               TEXT NOT NULL,
    crawler_id            TEXT NOT NULL DEFAULT '',
    final_status          VARCHAR(10) NOT NULL,
    error_stage           TEXT NOT NULL DEFAULT '',
    error_type            TEXT NOT NULL DEFAULT '',
    error_message         TEXT NOT NULL DEFAULT '',
    original_html_size    INTEGER NOT NULL DEFAULT 0,
    processed_html_size   INTEGER NOT NULL DEFAULT 0,
    processed_text_size   INTEGER NOT NULL DEFAULT 0,
    content_hash          TEXT NOT NULL DEFAULT '',
    http_status           INTEGER NOT NULL DEFAULT 0,
    image_count           INTEGER NOT NULL DEFAULT 0,
    link_count            INTEGER NOT NULL DEFAULT 0,
    video_count           INTEGER NOT NULL DEFAULT 0,
    started_at            TIMESTAMPTZ,
    ended_at              TIMESTAMPTZ,
    total_processing_time DOUBLE PRECISION NOT NULL DEFAULT 0,
    max_memory_usage      DOUBLE PRECISION NOT NULL DEFAULT 0,
    avg_cpu_usage         DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS crawl_logs (
    id          BIGSERIAL PRIMARY KEY,
    batch_id    UUID NOT NULL,
    article_id  BIGINT NOT NULL,
    stage       TEXT NOT NULL,
    status      TEXT NOT NULL,
    message     TEXT NOT NULL DEFAULT '',
    duration_ms BIGINT NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS extraction_scripts (
    id           BIGSERIAL PRIMARY KEY,
    feed_id      TEXT NOT NULL REFERENCES feeds(id),
    version      INTEGER NOT NULL,
    script       TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    is_published BOOLEAN NOT NULL DEFAULT FALSE,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (feed_id, version)
)`,
		`
CREATE TABLE IF NOT EXISTS vectorization_tasks (
    id              BIGSERIAL PRIMARY KEY,
    batch_id        UUID NOT NULL,
    article_id      BIGINT NOT NULL,
    worker_id       TEXT NOT NULL DEFAULT '',
    total_count     INTEGER NOT NULL DEFAULT 0,
    processed_count INTEGER NOT NULL DEFAULT 0,
    success_count   INTEGER NOT NULL DEFAULT 0,
    failed_count    INTEGER NOT NULL DEFAULT 0,
    started_at      TIMESTAMPTZ,
    ended_at        TIMESTAMPTZ,
    embedding_model TEXT NOT NULL DEFAULT '',
    status          VARCHAR(15) NOT NULL DEFAULT 'pending',
    error_message   TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS daily_summaries (
    id              BIGSERIAL PRIMARY KEY,
    feed_id         TEXT NOT NULL REFERENCES feeds(id),
    summary_date    DATE NOT NULL,
    language        VARCHAR(2) NOT NULL,
    summary_title   TEXT NOT NULL DEFAULT '',
    summary_content TEXT NOT NULL DEFAULT '',
    article_count   INTEGER NOT NULL DEFAULT 0,
    article_ids     BIGINT[] NOT NULL DEFAULT '{}',
    llm_provider    TEXT NOT NULL DEFAULT '',
    llm_model       TEXT NOT NULL DEFAULT '',
    cost_tokens     INTEGER NOT NULL DEFAULT 0,
    status          VARCHAR(10) NOT NULL DEFAULT 'ok',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (feed_id, summary_date, language)
)`,
		`
CREATE TABLE IF NOT EXISTS raw_hot_topics (
    id          BIGSERIAL PRIMARY KEY,
    platform    TEXT NOT NULL,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    url         TEXT NOT NULL DEFAULT '',
    topic_date  DATE NOT NULL,
    status      VARCHAR(10) NOT NULL DEFAULT 'active',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS unified_hot_topics (
    id                   BIGSERIAL PRIMARY KEY,
    topic_date           DATE NOT NULL,
    unified_title        VARCHAR(120) NOT NULL,
    unified_summary      VARCHAR(240) NOT NULL,
    keywords             TEXT[] NOT NULL DEFAULT '{}',
    category             VARCHAR(20) NOT NULL,
    related_topic_hashes TEXT[] NOT NULL DEFAULT '{}',
    source_platforms     TEXT[] NOT NULL DEFAULT '{}',
    topic_count          INTEGER NOT NULL DEFAULT 0,
    representative_url   TEXT NOT NULL DEFAULT '',
    created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS feed_sync_logs (
    id             BIGSERIAL PRIMARY KEY,
    sync_id        UUID NOT NULL,
    total_feeds    INTEGER NOT NULL DEFAULT 0,
    synced_feeds   INTEGER NOT NULL DEFAULT 0,
    failed_feeds   INTEGER NOT NULL DEFAULT 0,
    total_articles INTEGER NOT NULL DEFAULT 0,
    status         VARCHAR(10) NOT NULL,
    start_time     TIMESTAMPTZ,
    end_time       TIMESTAMPTZ,
    total_time     DOUBLE PRECISION NOT NULL DEFAULT 0,
    details        TEXT NOT NULL DEFAULT '',
    triggered_by   TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	}

	for _, stmt := range tables {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	// pgvector is required by the vector-store adapter; collection tables are
	// created lazily by the adapter's bootstrap.
	if _, err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return err
	}

	indexes := []string{
		// Sync queue scan: active feeds under the failure threshold.
		`CREATE INDEX IF NOT EXISTS idx_feeds_sync_queue ON feeds(is_active, consecutive_failures, last_sync_at)`,
		// Pending crawl scan.
		`CREATE INDEX IF NOT EXISTS idx_articles_pending_crawl ON articles(status, is_locked, retry_count) WHERE status = 'pending'`,
		// Pending vectorization scan.
		`CREATE INDEX IF NOT EXISTS idx_articles_pending_vec ON articles(vectorization_status) WHERE vectorization_status = 'pending'`,
		`CREATE INDEX IF NOT EXISTS idx_articles_feed_id ON articles(feed_id)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_published_date ON articles(published_date DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_crawl_batches_article ON crawl_batches(article_id)`,
		`CREATE INDEX IF NOT EXISTS idx_crawl_logs_batch ON crawl_logs(batch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_scripts_published ON extraction_scripts(feed_id) WHERE is_published = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_daily_summaries_date ON daily_summaries(summary_date, language)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_topics_date ON raw_hot_topics(topic_date, status)`,
		`CREATE INDEX IF NOT EXISTS idx_unified_topics_date ON unified_hot_topics(topic_date)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}
