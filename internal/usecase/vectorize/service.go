// Package vectorize embeds article summaries into the vector store and keeps
// the per-article vectorization state machine honest.
package vectorize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/infra/provider"
	"rss-coordinator/internal/infra/vectorstore"
	"rss-coordinator/internal/observability/metrics"
	"rss-coordinator/internal/repository"
	"rss-coordinator/internal/usecase/summarize"
)

// maxErrorLen caps stored vectorization error messages.
const maxErrorLen = 1000

// Embedder is the single provider capability this package needs.
type Embedder interface {
	Embed(ctx context.Context, req provider.EmbedRequest) (*provider.EmbedResponse, error)
}

// Service implements the vectorization scheduler.
type Service struct {
	Articles repository.ArticleRepository
	Tasks    repository.VectorizationTaskRepository
	Store    vectorstore.Store
	Embedder Embedder
	Model    string

	Collection string
	Dimension  int
}

func (s *Service) collection() string {
	if s.Collection != "" {
		return s.Collection
	}
	return vectorstore.DefaultCollection
}

func (s *Service) dimension() int {
	if s.Dimension > 0 {
		return s.Dimension
	}
	return vectorstore.DefaultDimension
}

// Pending returns articles whose content is saved but not yet embedded.
func (s *Service) Pending(ctx context.Context, limit int) ([]*entity.Article, error) {
	if limit <= 0 {
		limit = 10
	}
	articles, err := s.Articles.PendingVectorization(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("pending vectorization: %w", err)
	}
	return articles, nil
}

// Claim moves one article to in_progress for workerID and opens its task
// record. The task id proves the claim on a later Process call.
func (s *Service) Claim(ctx context.Context, articleID int64, workerID string) (*entity.Article, *entity.VectorizationTask, error) {
	if workerID == "" {
		return nil, nil, &entity.ValidationError{Field: "worker_id", Message: "is required"}
	}
	article, err := s.Articles.ClaimVectorization(ctx, articleID)
	if err != nil {
		return nil, nil, fmt.Errorf("claim vectorization %d: %w", articleID, err)
	}
	return article, s.openTask(ctx, articleID, workerID), nil
}

// Process embeds one article and writes the vector plus its metadata to the
// store. The caller must hold the in_progress claim: a pending article is
// claimed on the spot, an already-claimed one is accepted only when taskID
// proves the claim belongs to workerID. On failure the claim is released and
// the error recorded, so the article re-enters the queue until its retries
// run out.
func (s *Service) Process(ctx context.Context, articleID int64, workerID string, taskID int64) (err error) {
	article, task, err := s.admitClaim(ctx, articleID, workerID, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		task = s.openTask(ctx, articleID, workerID)
	}
	defer func() { s.finishTask(ctx, task, err) }()

	start := time.Now()
	if err = s.process(ctx, article); err != nil {
		metrics.RecordProcessingStep(metrics.StepVectorized, false)
		s.recordFailure(ctx, articleID, err)
		return err
	}
	metrics.RecordProcessingStep(metrics.StepVectorized, true)
	metrics.RecordEmbeddingDuration(time.Since(start))
	return nil
}

// admitClaim resolves the article and the worker's claim on it. It returns a
// non-nil task only when an existing claim was verified through taskID.
func (s *Service) admitClaim(ctx context.Context, articleID int64, workerID string, taskID int64) (*entity.Article, *entity.VectorizationTask, error) {
	article, err := s.Articles.Get(ctx, articleID)
	if err != nil {
		return nil, nil, fmt.Errorf("load article: %w", err)
	}
	if article == nil {
		return nil, nil, fmt.Errorf("article %d: %w", articleID, entity.ErrNotFound)
	}

	if article.VectorizationStatus == entity.VectorizationInProgress {
		if taskID <= 0 {
			return nil, nil, fmt.Errorf("article %d already claimed: %w", articleID, entity.ErrConflict)
		}
		task, err := s.Tasks.Get(ctx, taskID)
		if err != nil {
			return nil, nil, fmt.Errorf("load task %d: %w", taskID, err)
		}
		if task == nil || task.ArticleID != articleID ||
			task.WorkerID != workerID || task.Status != entity.VectorizationInProgress {
			return nil, nil, fmt.Errorf("task %d does not hold the claim on article %d: %w",
				taskID, articleID, entity.ErrConflict)
		}
		return article, task, nil
	}

	claimed, err := s.Articles.ClaimVectorization(ctx, articleID)
	if err != nil {
		return nil, nil, fmt.Errorf("claim vectorization %d: %w", articleID, err)
	}
	return claimed, nil, nil
}

// openTask records the start of a vectorization attempt. Bookkeeping
// failures are logged, never fatal.
func (s *Service) openTask(ctx context.Context, articleID int64, workerID string) *entity.VectorizationTask {
	start := time.Now()
	task := &entity.VectorizationTask{
		ArticleID:      articleID,
		WorkerID:       workerID,
		TotalCount:     1,
		StartedAt:      &start,
		EmbeddingModel: s.Model,
		Status:         entity.VectorizationInProgress,
	}
	if err := s.Tasks.Create(ctx, task); err != nil {
		slog.ErrorContext(ctx, "create vectorization task failed",
			slog.Int64("article_id", articleID), slog.String("error", err.Error()))
	}
	return task
}

func (s *Service) process(ctx context.Context, article *entity.Article) error {
	if err := vectorstore.EnsureCollection(ctx, s.Store, s.collection(), s.dimension()); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	text, summary := embeddingText(article)
	if text == "" {
		return fmt.Errorf("article %d has no embeddable text: %w", article.ID, entity.ErrInvalidInput)
	}

	resp, err := s.Embedder.Embed(ctx, provider.EmbedRequest{
		Model:  s.Model,
		Inputs: []string{text},
	})
	if err != nil {
		return fmt.Errorf("embed article %d: %w", article.ID, err)
	}
	if len(resp.Embeddings) == 0 {
		return fmt.Errorf("embed article %d: empty response", article.ID)
	}
	vector := resp.Embeddings[0]

	now := time.Now().UTC()
	vectorID := VectorID(article.FeedID, article.ID)
	record := vectorstore.Record{
		ID:     vectorID,
		Vector: vector,
		Metadata: map[string]any{
			"article_id":    article.ID,
			"feed_id":       article.FeedID,
			"title":         article.Title,
			"summary":       summary,
			"vectorized_at": now.Format(time.RFC3339),
		},
	}
	if article.PublishedDate != nil {
		record.Metadata["published_date"] = article.PublishedDate.UTC().Format(time.RFC3339)
	}
	if err := s.Store.Upsert(ctx, s.collection(), []vectorstore.Record{record}); err != nil {
		return fmt.Errorf("upsert vector %s: %w", vectorID, err)
	}

	if err := s.Articles.MarkVectorized(ctx, repository.VectorWriteback{
		ArticleID:      article.ID,
		VectorID:       vectorID,
		EmbeddingModel: resp.Model,
		Dimension:      len(vector),
		VectorizedAt:   now,
	}); err != nil {
		return fmt.Errorf("mark vectorized %d: %w", article.ID, err)
	}

	slog.InfoContext(ctx, "article vectorized",
		slog.Int64("article_id", article.ID),
		slog.String("vector_id", vectorID),
		slog.Int("dimension", len(vector)))
	return nil
}

// VectorID derives the stable vector-store id for an article.
func VectorID(feedID string, articleID int64) string {
	return fmt.Sprintf("article_%s_%d", feedID, articleID)
}

// embeddingText picks the richest text available: generated summaries first,
// then the feed summary, then the bare title. Returns the text to embed and
// the summary stored in metadata.
func embeddingText(article *entity.Article) (text, summary string) {
	switch {
	case article.ChineseSummary != "" || article.EnglishSummary != "":
		summary = strings.TrimSpace(strings.Join(nonEmpty(article.ChineseSummary, article.EnglishSummary), "\n"))
	case !summarize.IsInvalidSummary(article.Summary):
		summary = article.Summary
	}

	if summary == "" {
		return strings.TrimSpace(article.Title), ""
	}
	return strings.TrimSpace(article.Title + "\n" + summary), summary
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Service) recordFailure(ctx context.Context, articleID int64, cause error) {
	msg := cause.Error()
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	if err := s.Articles.MarkVectorizationFailed(ctx, articleID, msg); err != nil {
		slog.ErrorContext(ctx, "mark vectorization failed errored",
			slog.Int64("article_id", articleID), slog.String("error", err.Error()))
	}
}

func (s *Service) finishTask(ctx context.Context, task *entity.VectorizationTask, cause error) {
	if task.ID == 0 {
		return
	}
	now := time.Now()
	task.EndedAt = &now
	task.ProcessedCount = 1
	if cause == nil {
		task.SuccessCount = 1
		task.Status = entity.VectorizationOK
	} else {
		task.FailedCount = 1
		task.Status = entity.VectorizationFailed
		task.ErrorMessage = cause.Error()
	}
	if err := s.Tasks.Finish(ctx, task); err != nil {
		slog.ErrorContext(ctx, "finish vectorization task failed",
			slog.Int64("task_id", task.ID), slog.String("error", err.Error()))
	}
}

// Reset returns an article's vectorization state to pending.
func (s *Service) Reset(ctx context.Context, articleID int64) error {
	if err := s.Articles.ResetVectorization(ctx, articleID); err != nil {
		return fmt.Errorf("reset vectorization %d: %w", articleID, err)
	}
	return nil
}

// Tasks lists vectorization attempts for one article, newest first.
func (s *Service) TaskHistory(ctx context.Context, articleID int64) ([]*entity.VectorizationTask, error) {
	tasks, err := s.Tasks.ListByArticle(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("list vectorization tasks: %w", err)
	}
	return tasks, nil
}
