// Package digest builds per-feed daily summaries. A run fans out over every
// feed needing a digest for the date; one failing feed never blocks the rest.
package digest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/infra/provider"
	"rss-coordinator/internal/observability/metrics"
	"rss-coordinator/internal/repository"
	"rss-coordinator/internal/usecase/summarize"
)

const (
	chatMaxTokens   = 1500
	chatTemperature = 0.4
	// maxEntryRunes caps each article's contribution to the prompt.
	maxEntryRunes = 500
	// defaultConcurrency bounds the per-feed fan-out.
	defaultConcurrency = 4
)

// ErrNoArticles means the feed has no successfully crawled articles that day.
var ErrNoArticles = errors.New("no articles for feed on date")

// ChatClient is the single provider capability this package needs.
type ChatClient interface {
	Chat(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, error)
}

// RunResult summarizes one fan-out pass.
type RunResult struct {
	Date      time.Time
	Language  entity.SummaryLanguage
	Generated int
	Skipped   int
	Failed    int
}

// Service implements the daily digest engine.
type Service struct {
	Feeds     repository.FeedRepository
	Articles  repository.ArticleRepository
	Summaries repository.DailySummaryRepository
	Chat      ChatClient
	Provider  string
	Model     string

	Concurrency int
}

func (s *Service) concurrency() int {
	if s.Concurrency > 0 {
		return s.Concurrency
	}
	return defaultConcurrency
}

// Run generates digests for every feed that published articles on date and
// has no digest yet. Per-feed failures are isolated and counted.
func (s *Service) Run(ctx context.Context, date time.Time, lang entity.SummaryLanguage) (*RunResult, error) {
	if !entity.ValidLanguage(lang) {
		return nil, &entity.ValidationError{Field: "language", Message: "must be zh or en"}
	}
	day := date.UTC().Truncate(24 * time.Hour)

	feedIDs, err := s.Summaries.FeedsNeedingSummary(ctx, day, lang)
	if err != nil {
		return nil, fmt.Errorf("feeds needing summary: %w", err)
	}
	result := &RunResult{Date: day, Language: lang}
	if len(feedIDs) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())
	for _, feedID := range feedIDs {
		g.Go(func() error {
			_, err := s.GenerateFeedSummary(gctx, feedID, day, lang)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				result.Generated++
			case errors.Is(err, ErrNoArticles):
				result.Skipped++
			default:
				result.Failed++
				slog.ErrorContext(gctx, "feed digest failed",
					slog.String("feed_id", feedID),
					slog.String("date", day.Format("2006-01-02")),
					slog.String("error", err.Error()))
			}
			return nil
		})
	}
	_ = g.Wait()

	metrics.RecordDailySummary(result.Failed == 0)
	slog.InfoContext(ctx, "daily digest run finished",
		slog.String("date", day.Format("2006-01-02")),
		slog.String("language", string(lang)),
		slog.Int("generated", result.Generated),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed))
	return result, nil
}

// FeedsNeedingSummary lists feeds that published articles on date but have
// no digest yet, so summary workers can shard the day's work among
// themselves.
func (s *Service) FeedsNeedingSummary(ctx context.Context, date time.Time, lang entity.SummaryLanguage) ([]string, error) {
	if !entity.ValidLanguage(lang) {
		return nil, &entity.ValidationError{Field: "language", Message: "must be zh or en"}
	}
	feedIDs, err := s.Summaries.FeedsNeedingSummary(ctx, date.UTC().Truncate(24*time.Hour), lang)
	if err != nil {
		return nil, fmt.Errorf("feeds needing summary: %w", err)
	}
	return feedIDs, nil
}

// ProcessFeedSummary generates one feed's digest on behalf of a worker.
// Returns created=false when the (feed, date, language) slot was already
// filled, with the stored row.
func (s *Service) ProcessFeedSummary(ctx context.Context, feedID string, date time.Time, lang entity.SummaryLanguage, workerID string) (*entity.DailySummary, bool, error) {
	if !entity.ValidLanguage(lang) {
		return nil, false, &entity.ValidationError{Field: "language", Message: "must be zh or en"}
	}
	day := date.UTC().Truncate(24 * time.Hour)

	existing, err := s.Summaries.Get(ctx, feedID, day, lang)
	if err != nil {
		return nil, false, fmt.Errorf("check existing summary: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	summary, err := s.GenerateFeedSummary(ctx, feedID, day, lang)
	if err != nil {
		return nil, false, err
	}
	slog.InfoContext(ctx, "feed digest generated",
		slog.String("feed_id", feedID),
		slog.String("date", day.Format("2006-01-02")),
		slog.String("language", string(lang)),
		slog.String("worker_id", workerID))
	return summary, true, nil
}

// GenerateFeedSummary builds one feed's digest for the date. Re-running for
// an existing (feed, date, language) is a no-op returning the stored row.
func (s *Service) GenerateFeedSummary(ctx context.Context, feedID string, date time.Time, lang entity.SummaryLanguage) (*entity.DailySummary, error) {
	day := date.UTC().Truncate(24 * time.Hour)

	if existing, err := s.Summaries.Get(ctx, feedID, day, lang); err != nil {
		return nil, fmt.Errorf("check existing summary: %w", err)
	} else if existing != nil {
		return existing, nil
	}

	feed, err := s.Feeds.Get(ctx, feedID)
	if err != nil {
		return nil, fmt.Errorf("load feed: %w", err)
	}
	if feed == nil {
		return nil, fmt.Errorf("feed %s: %w", feedID, entity.ErrNotFound)
	}

	articles, err := s.Articles.ListByFeedAndDay(ctx, feedID, day)
	if err != nil {
		return nil, fmt.Errorf("list day articles: %w", err)
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("feed %s on %s: %w", feedID, day.Format("2006-01-02"), ErrNoArticles)
	}

	resp, err := s.Chat.Chat(ctx, provider.ChatRequest{
		Model: s.Model,
		Messages: []provider.Message{
			{Role: provider.RoleUser, Content: buildPrompt(feed, articles, lang)},
		},
		MaxTokens:   chatMaxTokens,
		Temperature: chatTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate digest: %w", err)
	}

	title, content := parseDigest(resp.Message.Content, feed.Title)

	ids := make([]int64, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
	}
	summary := &entity.DailySummary{
		FeedID:         feedID,
		SummaryDate:    day,
		Language:       lang,
		SummaryTitle:   title,
		SummaryContent: content,
		ArticleCount:   len(articles),
		ArticleIDs:     ids,
		LLMProvider:    s.Provider,
		LLMModel:       resp.Model,
		CostTokens:     resp.Usage.TotalTokens,
		Status:         "ok",
	}
	if err := s.Summaries.Insert(ctx, summary); err != nil {
		// A concurrent run beat us to the unique slot; return its row.
		if errors.Is(err, entity.ErrConflict) {
			return s.Summaries.Get(ctx, feedID, day, lang)
		}
		return nil, fmt.Errorf("store digest: %w", err)
	}
	return summary, nil
}

// buildPrompt lays out the day's articles as a numbered list, each entry
// capped so one long article cannot crowd out the rest.
func buildPrompt(feed *entity.Feed, articles []*entity.Article, lang entity.SummaryLanguage) string {
	var b strings.Builder
	if lang == entity.LanguageChinese {
		fmt.Fprintf(&b, "以下是订阅源“%s”今日发布的 %d 篇文章。", feed.Title, len(articles))
		if feed.Description != "" {
			fmt.Fprintf(&b, "该订阅源的简介：%s。", feed.Description)
		}
		b.WriteString("请写一份200-300字的中文每日综述，并给出一个简短标题。")
	} else {
		fmt.Fprintf(&b, "Here are the %d articles feed %q published today.", len(articles), feed.Title)
		if feed.Description != "" {
			fmt.Fprintf(&b, " Feed description: %s.", feed.Description)
		}
		b.WriteString(" Write a 200-300 word English daily roundup with a short title.")
	}
	b.WriteString("\n严格以 JSON 返回：{\"title\": \"...\", \"content\": \"...\"}\n\n")

	for i, a := range articles {
		fmt.Fprintf(&b, "%d. %s\n", i+1, a.Title)
		if body := bestArticleText(a); body != "" {
			fmt.Fprintf(&b, "   %s\n", clipRunes(body, maxEntryRunes))
		}
	}
	return b.String()
}

// bestArticleText prefers the generated summaries, longest first, over the
// raw feed summary.
func bestArticleText(a *entity.Article) string {
	best := ""
	for _, candidate := range []string{a.ChineseSummary, a.EnglishSummary, a.Summary} {
		if len([]rune(candidate)) > len([]rune(best)) && !summarize.IsInvalidSummary(candidate) {
			best = candidate
		}
	}
	return best
}

func clipRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

type digestPayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// parseDigest decodes the model's JSON reply. When the reply is not valid
// JSON the raw text becomes the content under a derived title, so a
// formatting slip never loses the digest.
func parseDigest(raw, feedTitle string) (title, content string) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var payload digestPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err == nil &&
		payload.Title != "" && payload.Content != "" {
		return payload.Title, payload.Content
	}
	return fmt.Sprintf("%s 每日摘要", feedTitle), cleaned
}

// ListByDate returns the stored digests for one date and language.
func (s *Service) ListByDate(ctx context.Context, date time.Time, lang entity.SummaryLanguage) ([]*entity.DailySummary, error) {
	if !entity.ValidLanguage(lang) {
		return nil, &entity.ValidationError{Field: "language", Message: "must be zh or en"}
	}
	summaries, err := s.Summaries.ListByDate(ctx, date.UTC().Truncate(24*time.Hour), lang)
	if err != nil {
		return nil, fmt.Errorf("list digests: %w", err)
	}
	return summaries, nil
}
