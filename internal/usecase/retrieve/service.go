// Package retrieve is the read-side façade: article listings, detail with
// similar-article lookup, semantic text search, and corpus statistics.
package retrieve

import (
	"context"
	"fmt"
	"time"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/infra/provider"
	"rss-coordinator/internal/infra/vectorstore"
	"rss-coordinator/internal/repository"
)

const (
	// maxSimilar caps the similar-article list on the detail view.
	maxSimilar = 5
	// defaultSearchLimit is the semantic search result count.
	defaultSearchLimit = 10
)

// Embedder is the single provider capability this package needs.
type Embedder interface {
	Embed(ctx context.Context, req provider.EmbedRequest) (*provider.EmbedResponse, error)
}

// SimilarArticle pairs an article with its cosine similarity to the anchor.
type SimilarArticle struct {
	Article    *entity.Article
	Similarity float64
}

// Detail is an article with its nearest neighbors attached. Similar is empty
// when the article has not been vectorized.
type Detail struct {
	Article *entity.Article
	Content *entity.ArticleContent
	Similar []*SimilarArticle
}

// SearchHit is one semantic search result.
type SearchHit struct {
	Article    *entity.Article
	Similarity float64
}

// Stats combines relational pipeline counters with the vector store count.
type Stats struct {
	Vectorization *repository.VectorizationCounts
	VectorCount   int64
	Collection    string
	GeneratedAt   time.Time
}

// Service implements the retrieval façade.
type Service struct {
	Articles repository.ArticleRepository
	Contents repository.ContentRepository
	Store    vectorstore.Store
	Embedder Embedder
	Model    string

	Collection string
}

func (s *Service) collection() string {
	if s.Collection != "" {
		return s.Collection
	}
	return vectorstore.DefaultCollection
}

// List returns one page of the filtered article listing.
func (s *Service) List(ctx context.Context, filter repository.ArticleFilter, page repository.Page) (*repository.ArticlePage, error) {
	result, err := s.Articles.List(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return result, nil
}

// Get returns the article detail with content and up to five similar
// articles. Similarity lookups are best-effort: a vector-store failure
// degrades to an empty similar list rather than failing the detail.
func (s *Service) Get(ctx context.Context, articleID int64) (*Detail, error) {
	article, err := s.Articles.Get(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("load article: %w", err)
	}
	if article == nil {
		return nil, fmt.Errorf("article %d: %w", articleID, entity.ErrNotFound)
	}

	detail := &Detail{Article: article}
	if article.ContentID != nil {
		content, err := s.Contents.Get(ctx, *article.ContentID)
		if err != nil {
			return nil, fmt.Errorf("load content: %w", err)
		}
		detail.Content = content
	}

	if article.IsVectorized && article.VectorID != "" {
		similar, err := s.similarTo(ctx, article)
		if err == nil {
			detail.Similar = similar
		}
	}
	return detail, nil
}

// similarTo searches the store with the anchor's own vector and hydrates the
// hits from the database, excluding the anchor itself.
func (s *Service) similarTo(ctx context.Context, anchor *entity.Article) ([]*SimilarArticle, error) {
	records, err := s.Store.Get(ctx, s.collection(), []string{anchor.VectorID})
	if err != nil || len(records) == 0 {
		return nil, err
	}

	// One extra hit absorbs the anchor matching itself at similarity 1.
	hits, err := s.Store.Search(ctx, s.collection(), records[0].Vector, maxSimilar+1, nil)
	if err != nil {
		return nil, err
	}

	similar := make([]*SimilarArticle, 0, maxSimilar)
	for _, hit := range hits {
		if hit.ID == anchor.VectorID || len(similar) == maxSimilar {
			continue
		}
		article := s.hydrate(ctx, hit.Metadata)
		if article == nil {
			continue
		}
		similar = append(similar, &SimilarArticle{Article: article, Similarity: hit.Score})
	}
	return similar, nil
}

// Search embeds the query text and returns the nearest articles.
func (s *Service) Search(ctx context.Context, query string, limit int, filter vectorstore.Filter) ([]*SearchHit, error) {
	if query == "" {
		return nil, &entity.ValidationError{Field: "query", Message: "is required"}
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	resp, err := s.Embedder.Embed(ctx, provider.EmbedRequest{
		Model:  s.Model,
		Inputs: []string{query},
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("embed query: empty response")
	}

	hits, err := s.Store.Search(ctx, s.collection(), resp.Embeddings[0], limit, filter)
	if err != nil {
		return nil, fmt.Errorf("search vectors: %w", err)
	}

	results := make([]*SearchHit, 0, len(hits))
	for _, hit := range hits {
		article := s.hydrate(ctx, hit.Metadata)
		if article == nil {
			continue
		}
		results = append(results, &SearchHit{Article: article, Similarity: hit.Score})
	}
	return results, nil
}

// hydrate resolves a vector hit's article row via the article_id metadata
// field. Hits whose article has since been deleted are skipped.
func (s *Service) hydrate(ctx context.Context, metadata map[string]any) *entity.Article {
	id, ok := articleID(metadata)
	if !ok {
		return nil
	}
	article, err := s.Articles.Get(ctx, id)
	if err != nil {
		return nil
	}
	return article
}

// articleID extracts the article id from hit metadata. JSON decoding turns
// the stored integer into a float64.
func articleID(metadata map[string]any) (int64, bool) {
	switch v := metadata["article_id"].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// Stats aggregates relational counters and the vector-store count. A missing
// collection reports zero vectors instead of an error.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.Articles.CountByVectorizationStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count vectorization status: %w", err)
	}

	stats := &Stats{
		Vectorization: counts,
		Collection:    s.collection(),
		GeneratedAt:   time.Now().UTC(),
	}
	exists, err := s.Store.IndexExists(ctx, s.collection())
	if err != nil {
		return nil, fmt.Errorf("check collection: %w", err)
	}
	if exists {
		count, err := s.Store.Count(ctx, s.collection(), nil)
		if err != nil {
			return nil, fmt.Errorf("count vectors: %w", err)
		}
		stats.VectorCount = count
	}
	return stats, nil
}
