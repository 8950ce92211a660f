package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/repository"
)

// ContentRepo implements repository.ContentRepository for PostgreSQL.
// Content rows are insert-only.
type ContentRepo struct {
	db *sql.DB
}

// NewContentRepo creates a new PostgreSQL-backed ContentRepository.
func NewContentRepo(db *sql.DB) repository.ContentRepository {
	return &ContentRepo{db: db}
}

func (repo *ContentRepo) Create(ctx context.Context, content *entity.ArticleContent) error {
	const query = `
INSERT INTO article_contents (html_content, text_content)
VALUES ($1, $2)
RETURNING id, created_at`
	err := repo.db.QueryRowContext(ctx, query, content.HTMLContent, content.TextContent).
		Scan(&content.ID, &content.CreatedAt)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *ContentRepo) Get(ctx context.Context, id int64) (*entity.ArticleContent, error) {
	const query = `
SELECT id, html_content, text_content, created_at
FROM article_contents
WHERE id = $1
LIMIT 1`
	var content entity.ArticleContent
	err := repo.db.QueryRowContext(ctx, query, id).
		Scan(&content.ID, &content.HTMLContent, &content.TextContent, &content.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &content, nil
}
