package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
)

// searchTimeout bounds similarity queries so a slow index scan cannot hold a
// consumer request open.
const searchTimeout = 5 * time.Second

// Collection names become table identifiers, so only a conservative charset
// is accepted.
var collectionNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// PGStore implements Store on PostgreSQL with the pgvector extension.
// Each collection is one table vs_<name>(id, embedding vector(dim), metadata).
type PGStore struct {
	db *sql.DB
}

// NewPGStore creates a pgvector-backed Store.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func tableName(name string) (string, error) {
	if !collectionNameRe.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCollectionName, name)
	}
	return "vs_" + name, nil
}

func (s *PGStore) IndexExists(ctx context.Context, name string) (bool, error) {
	table, err := tableName(name)
	if err != nil {
		return false, err
	}
	const query = `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, table).Scan(&exists); err != nil {
		return false, fmt.Errorf("IndexExists: %w", err)
	}
	return exists, nil
}

func (s *PGStore) CreateIndex(ctx context.Context, name string, dim int) error {
	table, err := tableName(name)
	if err != nil {
		return err
	}
	if dim < 1 {
		return fmt.Errorf("CreateIndex: %w: dim %d", ErrDimensionMismatch, dim)
	}
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    id         TEXT PRIMARY KEY,
    embedding  vector(%d) NOT NULL,
    metadata   JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, table, dim),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s
USING hnsw (embedding vector_cosine_ops)`, table, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_metadata_idx ON %s
USING gin (metadata)`, table, table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("CreateIndex: %w", err)
		}
	}
	return nil
}

func (s *PGStore) Upsert(ctx context.Context, name string, records []Record) error {
	table, err := tableName(name)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `INSERT INTO %s (id, embedding, metadata) VALUES `, table)
	args := make([]any, 0, len(records)*3)
	for i, r := range records {
		if i > 0 {
			sb.WriteString(", ")
		}
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("Upsert: encode metadata for %q: %w", r.ID, err)
		}
		base := i * 3
		fmt.Fprintf(&sb, "($%d, $%d, $%d)", base+1, base+2, base+3)
		args = append(args, r.ID, pgvector.NewVector(r.Vector), meta)
	}
	sb.WriteString(`
ON CONFLICT (id) DO UPDATE SET
    embedding  = EXCLUDED.embedding,
    metadata   = EXCLUDED.metadata,
    updated_at = NOW()`)

	if _, err := s.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

// filterClause renders a metadata containment condition. Returns an empty
// clause for an empty filter.
func filterClause(filter Filter, argOffset int) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}
	raw, err := json.Marshal(map[string]any(filter))
	if err != nil {
		return "", nil, fmt.Errorf("encode filter: %w", err)
	}
	return fmt.Sprintf("metadata @> $%d", argOffset+1), []any{raw}, nil
}

func (s *PGStore) Search(ctx context.Context, name string, query []float32, topK int, filter Filter) ([]Hit, error) {
	table, err := tableName(name)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 10
	}
	if topK > 100 {
		topK = 100
	}

	args := []any{pgvector.NewVector(query)}
	where := ""
	clause, filterArgs, err := filterClause(filter, len(args))
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	if clause != "" {
		where = "WHERE " + clause
		args = append(args, filterArgs...)
	}
	args = append(args, topK)

	stmt := fmt.Sprintf(`
SELECT id, 1 - (embedding <=> $1) AS similarity, metadata
FROM %s
%s
ORDER BY embedding <=> $1
LIMIT $%d`, table, where, len(args))

	searchCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(searchCtx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hits := make([]Hit, 0, topK)
	for rows.Next() {
		var h Hit
		var meta []byte
		if err := rows.Scan(&h.ID, &h.Score, &meta); err != nil {
			return nil, fmt.Errorf("Search: Scan: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &h.Metadata); err != nil {
				return nil, fmt.Errorf("Search: decode metadata: %w", err)
			}
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (s *PGStore) Get(ctx context.Context, name string, ids []string) ([]Record, error) {
	table, err := tableName(name)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	stmt := fmt.Sprintf(`
SELECT id, embedding, metadata
FROM %s
WHERE id IN (%s)`, table, strings.Join(placeholders, ", "))

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]Record, 0, len(ids))
	for rows.Next() {
		var r Record
		var vec pgvector.Vector
		var meta []byte
		if err := rows.Scan(&r.ID, &vec, &meta); err != nil {
			return nil, fmt.Errorf("Get: Scan: %w", err)
		}
		r.Vector = vec.Slice()
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &r.Metadata); err != nil {
				return nil, fmt.Errorf("Get: decode metadata: %w", err)
			}
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *PGStore) Count(ctx context.Context, name string, filter Filter) (int64, error) {
	table, err := tableName(name)
	if err != nil {
		return 0, err
	}
	args := []any{}
	where := ""
	clause, filterArgs, err := filterClause(filter, 0)
	if err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	if clause != "" {
		where = "WHERE " + clause
		args = append(args, filterArgs...)
	}
	stmt := fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, table, where)

	var count int64
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return count, nil
}
