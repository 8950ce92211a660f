package postgres

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"rss-coordinator/internal/repository"
)

// allowedFilterFields are the plain equality keys accepted by article list
// queries. Anything else (other than the reserved composite keys) is rejected
// so caller-supplied maps cannot reach SQL identifiers.
var allowedFilterFields = map[string]bool{
	"feed_id":              true,
	"status":               true,
	"vectorization_status": true,
	"is_locked":            true,
	"is_vectorized":        true,
	"crawler_id":           true,
}

// ArticleQueryBuilder builds WHERE clauses for article list queries.
// It is shared between COUNT and SELECT statements to keep them in step.
// PostgreSQL-specific: numbered placeholders ($1, $2, ...).
type ArticleQueryBuilder struct{}

// NewArticleQueryBuilder creates a new query builder instance.
func NewArticleQueryBuilder() *ArticleQueryBuilder {
	return &ArticleQueryBuilder{}
}

// BuildWhereClause translates a flat filter map into a WHERE clause.
// Plain keys become equality conditions; the reserved composite keys
// "date_range" ([2]time.Time) and "retry_range" ([2]int) become inclusive
// range conditions on published_date and retry_count. Keys are emitted in
// sorted order so the clause is deterministic.
// Returns an empty clause when the filter is empty.
func (qb *ArticleQueryBuilder) BuildWhereClause(filter repository.ArticleFilter) (clause string, args []any, err error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var conditions []string
	for _, key := range keys {
		value := filter[key]
		switch key {
		case "date_range":
			r, ok := value.([2]time.Time)
			if !ok {
				return "", nil, fmt.Errorf("filter date_range must be [2]time.Time")
			}
			args = append(args, r[0])
			conditions = append(conditions, fmt.Sprintf("published_date >= $%d", len(args)))
			args = append(args, r[1])
			conditions = append(conditions, fmt.Sprintf("published_date <= $%d", len(args)))
		case "retry_range":
			r, ok := value.([2]int)
			if !ok {
				return "", nil, fmt.Errorf("filter retry_range must be [2]int")
			}
			args = append(args, r[0])
			conditions = append(conditions, fmt.Sprintf("retry_count >= $%d", len(args)))
			args = append(args, r[1])
			conditions = append(conditions, fmt.Sprintf("retry_count <= $%d", len(args)))
		default:
			if !allowedFilterFields[key] {
				return "", nil, fmt.Errorf("unsupported filter field %q", key)
			}
			args = append(args, value)
			conditions = append(conditions, fmt.Sprintf("%s = $%d", key, len(args)))
		}
	}

	return "WHERE " + strings.Join(conditions, " AND "), args, nil
}
