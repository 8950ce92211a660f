// Package vectorstore provides the similarity index behind article search.
// Collections hold {id, vector, metadata} records; the default collection is
// created lazily with the embedding model's dimension.
package vectorstore

import (
	"context"
	"errors"
)

// DefaultCollection is the collection bootstrapped on first use.
const DefaultCollection = "rss_articles"

// DefaultDimension matches the default embedding model output size.
const DefaultDimension = 3072

var (
	// ErrCollectionNotFound is returned when an operation targets a
	// collection that has not been created.
	ErrCollectionNotFound = errors.New("vectorstore: collection not found")
	// ErrInvalidCollectionName is returned for names that cannot be used
	// as an identifier.
	ErrInvalidCollectionName = errors.New("vectorstore: invalid collection name")
	// ErrDimensionMismatch is returned when a vector's length does not
	// match the collection's dimension.
	ErrDimensionMismatch = errors.New("vectorstore: dimension mismatch")
)

// Record is one stored vector with its payload.
type Record struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// Hit is one similarity search result. Score is cosine similarity in [−1, 1],
// higher is closer.
type Hit struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// Filter restricts search and count to records whose metadata contains all
// the given key/value pairs.
type Filter map[string]any

// Store is the capability surface of the similarity index. Failures are
// returned as-is; retry policy belongs to the caller.
type Store interface {
	// IndexExists reports whether the named collection exists.
	IndexExists(ctx context.Context, name string) (bool, error)

	// CreateIndex creates the named collection with the given vector
	// dimension. Cosine is the only supported metric. Creating an
	// existing collection is a no-op.
	CreateIndex(ctx context.Context, name string, dim int) error

	// Upsert writes records, replacing any with the same id.
	Upsert(ctx context.Context, name string, records []Record) error

	// Search returns the topK records closest to query by cosine distance.
	Search(ctx context.Context, name string, query []float32, topK int, filter Filter) ([]Hit, error)

	// Get returns the stored records for the given ids; absent ids are
	// simply missing from the result.
	Get(ctx context.Context, name string, ids []string) ([]Record, error)

	// Count returns the number of records matching the filter.
	Count(ctx context.Context, name string, filter Filter) (int64, error)
}

// EnsureCollection creates the collection when it does not exist yet.
// Called once at startup for the default collection.
func EnsureCollection(ctx context.Context, store Store, name string, dim int) error {
	exists, err := store.IndexExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return store.CreateIndex(ctx, name, dim)
}
