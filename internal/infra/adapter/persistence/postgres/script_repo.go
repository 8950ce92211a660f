package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/repository"
)

const scriptColumns = `id, feed_id, version, script, description, is_published, created_at, updated_at`

// ScriptRepo implements repository.ScriptRepository for PostgreSQL.
type ScriptRepo struct {
	db *sql.DB
}

// NewScriptRepo creates a new PostgreSQL-backed ScriptRepository.
func NewScriptRepo(db *sql.DB) repository.ScriptRepository {
	return &ScriptRepo{db: db}
}

func scanScript(s rowScanner) (*entity.ExtractionScript, error) {
	var script entity.ExtractionScript
	err := s.Scan(&script.ID, &script.FeedID, &script.Version, &script.Script,
		&script.Description, &script.IsPublished, &script.CreatedAt, &script.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &script, nil
}

// Create inserts a new unpublished version. The version number is derived
// inside the statement so concurrent creates cannot race to the same version.
func (repo *ScriptRepo) Create(ctx context.Context, script *entity.ExtractionScript) error {
	const query = `
INSERT INTO extraction_scripts (feed_id, version, script, description, is_published)
VALUES ($1,
        (SELECT COALESCE(MAX(version), 0) + 1 FROM extraction_scripts WHERE feed_id = $1),
        $2, $3, FALSE)
RETURNING id, version, created_at, updated_at`
	err := repo.db.QueryRowContext(ctx, query, script.FeedID, script.Script, script.Description).
		Scan(&script.ID, &script.Version, &script.CreatedAt, &script.UpdatedAt)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	script.IsPublished = false
	return nil
}

func (repo *ScriptRepo) GetPublished(ctx context.Context, feedID string) (*entity.ExtractionScript, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM extraction_scripts
WHERE feed_id = $1 AND is_published = TRUE
LIMIT 1`, scriptColumns)
	script, err := scanScript(repo.db.QueryRowContext(ctx, query, feedID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetPublished: %w", err)
	}
	return script, nil
}

func (repo *ScriptRepo) GetPublishedBatch(ctx context.Context, feedIDs []string) (map[string]*entity.ExtractionScript, error) {
	result := make(map[string]*entity.ExtractionScript, len(feedIDs))
	if len(feedIDs) == 0 {
		return result, nil
	}
	query := fmt.Sprintf(`
SELECT %s
FROM extraction_scripts
WHERE feed_id = ANY($1) AND is_published = TRUE`, scriptColumns)
	rows, err := repo.db.QueryContext(ctx, query, pq.Array(feedIDs))
	if err != nil {
		return nil, fmt.Errorf("GetPublishedBatch: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		script, err := scanScript(rows)
		if err != nil {
			return nil, fmt.Errorf("GetPublishedBatch: Scan: %w", err)
		}
		result[script.FeedID] = script
	}
	return result, rows.Err()
}

// Publish flips the published flag to the given version, unpublishing the
// feed's previous one in the same transaction.
func (repo *ScriptRepo) Publish(ctx context.Context, scriptID int64) error {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Publish: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const unpublish = `
UPDATE extraction_scripts
SET is_published = FALSE, updated_at = NOW()
WHERE feed_id = (SELECT feed_id FROM extraction_scripts WHERE id = $1)
  AND is_published = TRUE`
	if _, err := tx.ExecContext(ctx, unpublish, scriptID); err != nil {
		return fmt.Errorf("Publish: unpublish: %w", err)
	}

	const publish = `
UPDATE extraction_scripts
SET is_published = TRUE, updated_at = NOW()
WHERE id = $1`
	res, err := tx.ExecContext(ctx, publish, scriptID)
	if err != nil {
		return fmt.Errorf("Publish: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Publish: RowsAffected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("Publish: script %d: %w", scriptID, entity.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Publish: commit: %w", err)
	}
	return nil
}

func (repo *ScriptRepo) ListByFeed(ctx context.Context, feedID string) ([]*entity.ExtractionScript, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM extraction_scripts
WHERE feed_id = $1
ORDER BY version DESC`, scriptColumns)
	rows, err := repo.db.QueryContext(ctx, query, feedID)
	if err != nil {
		return nil, fmt.Errorf("ListByFeed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scripts []*entity.ExtractionScript
	for rows.Next() {
		script, err := scanScript(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByFeed: Scan: %w", err)
		}
		scripts = append(scripts, script)
	}
	return scripts, rows.Err()
}
