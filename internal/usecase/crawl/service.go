// Package crawl brokers article content extraction to stateless workers:
// the pending queue with extraction scripts attached, per-article leases,
// result ingestion, and batch telemetry.
package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/google/uuid"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/observability/metrics"
	"rss-coordinator/internal/repository"
)

// DefaultLeaseTimeout is the window after which an abandoned crawl lease is
// swept back to the queue.
const DefaultLeaseTimeout = 30 * time.Minute

// Summarizer is the inline summarization hook invoked after a successful
// content save. Failures are logged and swallowed; the crawl result stands.
type Summarizer interface {
	GenerateForArticle(ctx context.Context, articleID int64) error
}

// PendingArticle is one queue entry with its feed's published extraction
// script attached, if any.
type PendingArticle struct {
	Article *entity.Article
	Script  *entity.ExtractionScript
}

// StageLog is one sub-stage timing reported by a worker.
type StageLog struct {
	Stage      string
	Status     string
	Message    string
	DurationMS int64
}

// SubmitInput is a worker's extraction result for one article.
type SubmitInput struct {
	ArticleID    int64
	CrawlerID    string
	BatchID      string
	Status       entity.ArticleStatus
	HTMLContent  string
	TextContent  string
	ErrorStage   string
	ErrorType    string
	ErrorMessage string
	HTTPStatus   int
	ContentHash  string
	ImageCount   int
	LinkCount    int
	VideoCount   int
	StartedAt    *time.Time
	EndedAt      *time.Time
	TotalTime    float64
	Logs         []StageLog
}

// SubmitResult reports the outcome of a crawl submission.
type SubmitResult struct {
	BatchID   string
	Status    entity.ArticleStatus
	ContentID *int64
}

// Service implements the crawl scheduler.
type Service struct {
	Articles   repository.ArticleRepository
	Contents   repository.ContentRepository
	Crawls     repository.CrawlRepository
	Scripts    repository.ScriptRepository
	Summarizer Summarizer

	LeaseTimeout time.Duration
}

func (s *Service) leaseTimeout() time.Duration {
	if s.LeaseTimeout > 0 {
		return s.LeaseTimeout
	}
	return DefaultLeaseTimeout
}

// PendingArticles returns the crawl queue with published extraction scripts
// attached. Scripts are fetched in one batch query regardless of queue size.
func (s *Service) PendingArticles(ctx context.Context, limit int) ([]*PendingArticle, error) {
	if limit <= 0 {
		limit = 10
	}
	articles, err := s.Articles.PendingCrawl(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("pending articles: %w", err)
	}
	if len(articles) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool, len(articles))
	feedIDs := make([]string, 0, len(articles))
	for _, a := range articles {
		if !seen[a.FeedID] {
			seen[a.FeedID] = true
			feedIDs = append(feedIDs, a.FeedID)
		}
	}
	scripts, err := s.Scripts.GetPublishedBatch(ctx, feedIDs)
	if err != nil {
		return nil, fmt.Errorf("attach extraction scripts: %w", err)
	}

	pending := make([]*PendingArticle, len(articles))
	for i, a := range articles {
		pending[i] = &PendingArticle{Article: a, Script: scripts[a.FeedID]}
	}
	return pending, nil
}

// ClaimArticle acquires the crawl lease for crawlerID.
func (s *Service) ClaimArticle(ctx context.Context, articleID int64, crawlerID string) (*entity.Article, error) {
	if crawlerID == "" {
		return nil, &entity.ValidationError{Field: "crawler_id", Message: "is required"}
	}
	article, err := s.Articles.ClaimCrawl(ctx, articleID, crawlerID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("claim article %d: %w", articleID, err)
	}
	return article, nil
}

// SubmitResult ingests a worker's extraction outcome. The submitting worker
// must hold the article's lease; a mismatch rejects the submission without
// touching any state.
func (s *Service) SubmitResult(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if in.Status != entity.ArticleStatusOK && in.Status != entity.ArticleStatusFailed {
		return nil, &entity.ValidationError{Field: "status", Message: "must be ok or failed"}
	}

	article, err := s.Articles.Get(ctx, in.ArticleID)
	if err != nil {
		return nil, fmt.Errorf("load article: %w", err)
	}
	if article == nil {
		return nil, fmt.Errorf("article %d: %w", in.ArticleID, entity.ErrNotFound)
	}
	if article.CrawlerID != in.CrawlerID {
		return nil, fmt.Errorf("article %d held by %q: %w",
			in.ArticleID, article.CrawlerID, entity.ErrLeaseMismatch)
	}

	result := &SubmitResult{BatchID: in.BatchID, Status: in.Status}
	if result.BatchID == "" {
		result.BatchID = uuid.New().String()
	}

	switch in.Status {
	case entity.ArticleStatusOK:
		contentID, err := s.saveContent(ctx, article, in)
		if err != nil {
			metrics.RecordProcessingStep(metrics.StepContentSaved, false)
			return nil, err
		}
		result.ContentID = &contentID
		metrics.RecordProcessingStep(metrics.StepContentSaved, true)
		metrics.RecordCrawlSubmission(true)

		s.summarizeInline(ctx, in.ArticleID)

	case entity.ArticleStatusFailed:
		if err := s.Articles.SubmitCrawlFailure(ctx, in.ArticleID, in.CrawlerID, in.ErrorMessage); err != nil {
			return nil, fmt.Errorf("submit crawl failure: %w", err)
		}
		metrics.RecordProcessingStep(metrics.StepContentSaved, false)
		metrics.RecordCrawlSubmission(false)
	}

	s.recordBatch(ctx, article, in, result)
	return result, nil
}

func (s *Service) saveContent(ctx context.Context, article *entity.Article, in SubmitInput) (int64, error) {
	text := in.TextContent
	if text == "" && in.HTMLContent != "" {
		text = extractText(in.HTMLContent, article.Link)
	}
	content := &entity.ArticleContent{
		HTMLContent: in.HTMLContent,
		TextContent: text,
	}
	if err := s.Contents.Create(ctx, content); err != nil {
		return 0, fmt.Errorf("save content: %w", err)
	}
	if err := s.Articles.SubmitCrawlSuccess(ctx, article.ID, content.ID, in.CrawlerID); err != nil {
		return 0, fmt.Errorf("submit crawl success: %w", err)
	}
	return content.ID, nil
}

// extractText recovers readable text from raw HTML when the worker sent none.
func extractText(html, link string) string {
	pageURL, err := url.Parse(link)
	if err != nil {
		pageURL = &url.URL{}
	}
	parsed, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		slog.Warn("readability fallback failed", slog.String("link", link),
			slog.String("error", err.Error()))
		return ""
	}
	return strings.TrimSpace(parsed.TextContent)
}

// summarizeInline is best-effort: the content is already saved, so a
// summarization failure only logs and leaves the article for the next pass.
func (s *Service) summarizeInline(ctx context.Context, articleID int64) {
	if s.Summarizer == nil {
		return
	}
	if err := s.Summarizer.GenerateForArticle(ctx, articleID); err != nil {
		slog.WarnContext(ctx, "inline summarization failed",
			slog.Int64("article_id", articleID),
			slog.String("error", err.Error()))
	}
}

// recordBatch appends crawl telemetry. Telemetry failures never fail the
// submission itself.
func (s *Service) recordBatch(ctx context.Context, article *entity.Article, in SubmitInput, result *SubmitResult) {
	batch := &entity.CrawlBatch{
		BatchID:             result.BatchID,
		ArticleID:           article.ID,
		FeedID:              article.FeedID,
		CrawlerID:           in.CrawlerID,
		FinalStatus:         in.Status,
		ErrorStage:          in.ErrorStage,
		ErrorType:           in.ErrorType,
		ErrorMessage:        in.ErrorMessage,
		OriginalHTMLSize:    len(in.HTMLContent),
		ProcessedTextSize:   len(in.TextContent),
		ContentHash:         in.ContentHash,
		HTTPStatus:          in.HTTPStatus,
		ImageCount:          in.ImageCount,
		LinkCount:           in.LinkCount,
		VideoCount:          in.VideoCount,
		StartedAt:           in.StartedAt,
		EndedAt:             in.EndedAt,
		TotalProcessingTime: in.TotalTime,
	}
	if err := s.Crawls.InsertBatch(ctx, batch); err != nil {
		slog.ErrorContext(ctx, "record crawl batch failed",
			slog.String("batch_id", result.BatchID),
			slog.String("error", err.Error()))
		return
	}
	if len(in.Logs) == 0 {
		return
	}
	logs := make([]*entity.CrawlLog, len(in.Logs))
	for i, l := range in.Logs {
		logs[i] = &entity.CrawlLog{
			BatchID:    result.BatchID,
			ArticleID:  article.ID,
			Stage:      l.Stage,
			Status:     l.Status,
			Message:    l.Message,
			DurationMS: l.DurationMS,
		}
	}
	if err := s.Crawls.InsertLogs(ctx, logs); err != nil {
		slog.ErrorContext(ctx, "record crawl logs failed",
			slog.String("batch_id", result.BatchID),
			slog.String("error", err.Error()))
	}
}

// RecordStep applies a worker-reported pipeline step outcome to the article
// and feeds the pipeline counters. Steps: content_saved, summary_generated,
// vectorized.
func (s *Service) RecordStep(ctx context.Context, upd repository.ProcessingStepUpdate) error {
	switch upd.Step {
	case metrics.StepContentSaved, metrics.StepSummaryGenerated, metrics.StepVectorized:
	default:
		return &entity.ValidationError{Field: "step",
			Message: "must be content_saved, summary_generated, or vectorized"}
	}
	if err := s.Articles.UpdateProcessingStep(ctx, upd); err != nil {
		return fmt.Errorf("record step %s for article %d: %w", upd.Step, upd.ArticleID, err)
	}
	metrics.RecordProcessingStep(upd.Step, upd.OK)
	return nil
}

// ResetArticle returns a failed or stuck article to the pending queue.
func (s *Service) ResetArticle(ctx context.Context, articleID int64) error {
	if err := s.Articles.ResetArticle(ctx, articleID); err != nil {
		return fmt.Errorf("reset article %d: %w", articleID, err)
	}
	return nil
}

// ResetBatch re-queues the article behind a crawl batch and deletes the
// batch's stage logs.
func (s *Service) ResetBatch(ctx context.Context, batchID string) error {
	batch, err := s.Crawls.GetBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("load batch: %w", err)
	}
	if batch == nil {
		return fmt.Errorf("batch %s: %w", batchID, entity.ErrNotFound)
	}
	if err := s.Articles.ResetArticle(ctx, batch.ArticleID); err != nil {
		return fmt.Errorf("reset article %d: %w", batch.ArticleID, err)
	}
	deleted, err := s.Crawls.DeleteLogsByBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("delete batch logs: %w", err)
	}
	slog.InfoContext(ctx, "crawl batch reset",
		slog.String("batch_id", batchID),
		slog.Int64("article_id", batch.ArticleID),
		slog.Int64("logs_deleted", deleted))
	return nil
}

// Logs lists crawl stage logs matching the filter.
func (s *Service) Logs(ctx context.Context, filter repository.CrawlLogFilter) ([]*entity.CrawlLog, error) {
	logs, err := s.Crawls.ListLogs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list crawl logs: %w", err)
	}
	return logs, nil
}

// Stats aggregates crawl telemetry counters.
func (s *Service) Stats(ctx context.Context) (*repository.CrawlStats, error) {
	stats, err := s.Crawls.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("crawl stats: %w", err)
	}
	return stats, nil
}

// ReleaseExpiredLeases sweeps abandoned crawl leases back to the queue.
func (s *Service) ReleaseExpiredLeases(ctx context.Context) (int64, error) {
	released, err := s.Articles.ReleaseExpiredCrawlLeases(ctx, time.Now(), s.leaseTimeout())
	if err != nil {
		return 0, fmt.Errorf("release expired leases: %w", err)
	}
	metrics.RecordLeasesReleased("crawl", released)
	if released > 0 {
		slog.InfoContext(ctx, "expired crawl leases released", slog.Int64("count", released))
	}
	return released, nil
}
