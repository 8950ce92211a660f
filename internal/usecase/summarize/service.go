// Package summarize generates and validates bilingual article summaries.
// One model call produces both languages; each side is validated and
// truncated independently, so a half-usable response still lands.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/infra/provider"
	"rss-coordinator/internal/observability/metrics"
	"rss-coordinator/internal/repository"
)

const (
	chatMaxTokens   = 500
	chatTemperature = 0.3
)

// ErrTextTooShort means the cleaned article text is too short to summarize.
var ErrTextTooShort = errors.New("article text too short to summarize")

// ErrNoUsableSummary means the model produced nothing valid in either language.
var ErrNoUsableSummary = errors.New("no usable summary in either language")

// ChatClient is the single provider capability this package needs.
type ChatClient interface {
	Chat(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, error)
}

// Bilingual holds the validated, truncated summary pair. An empty side means
// that language failed validation.
type Bilingual struct {
	Chinese string
	English string
}

// Service generates bilingual summaries and writes them back to articles.
type Service struct {
	Chat     ChatClient
	Model    string
	Articles repository.ArticleRepository
	Contents repository.ContentRepository
}

// Generate produces a bilingual summary of the given article text.
// Returns ErrTextTooShort when the cleaned text is unusable and
// ErrNoUsableSummary when both languages fail validation.
func (s *Service) Generate(ctx context.Context, title, text string) (*Bilingual, error) {
	cleaned := CleanText(text)
	if len([]rune(cleaned)) < minCleanRunes {
		return nil, fmt.Errorf("generate summary: %w", ErrTextTooShort)
	}
	cleaned = clip(cleaned, maxInputRunes)

	start := time.Now()
	resp, err := s.Chat.Chat(ctx, provider.ChatRequest{
		Model: s.Model,
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: "你是一位精准的双语新闻编辑。You summarize articles faithfully, never inventing facts."},
			{Role: provider.RoleUser, Content: buildPrompt(title, cleaned)},
		},
		MaxTokens:   chatMaxTokens,
		Temperature: chatTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate summary: %w", err)
	}
	metrics.RecordSummarizationDuration(time.Since(start))

	chinese, english := parseBilingual(resp.Message.Content)
	if IsInvalidSummary(chinese) {
		chinese = ""
	}
	if IsInvalidSummary(english) {
		english = ""
	}
	if chinese == "" && english == "" {
		return nil, fmt.Errorf("generate summary: %w", ErrNoUsableSummary)
	}
	return &Bilingual{
		Chinese: Truncate(chinese),
		English: Truncate(english),
	}, nil
}

func buildPrompt(title, text string) string {
	return fmt.Sprintf(`请为以下文章生成两份摘要，每份不超过200字，格式如下：

中文摘要：<中文摘要内容>
English Summary：<English summary content>

标题：%s
正文：
%s`, title, text)
}

// GenerateForArticle summarizes one stored article and persists the result.
// The RSS-supplied summary is cleared in the same write when it is boilerplate.
func (s *Service) GenerateForArticle(ctx context.Context, articleID int64) (*Bilingual, error) {
	article, err := s.Articles.Get(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("load article: %w", err)
	}
	if article == nil {
		return nil, fmt.Errorf("load article %d: %w", articleID, entity.ErrNotFound)
	}

	text, err := s.articleText(ctx, article)
	if err != nil {
		return nil, err
	}

	summary, err := s.Generate(ctx, article.Title, text)
	if err != nil {
		metrics.RecordProcessingStep(metrics.StepSummaryGenerated, false)
		return nil, err
	}

	var chinese, english *string
	if summary.Chinese != "" {
		chinese = &summary.Chinese
	}
	if summary.English != "" {
		english = &summary.English
	}
	clearSummary := article.Summary != "" && IsInvalidSummary(article.Summary)

	if err := s.Articles.UpdateSummaries(ctx, articleID, chinese, english, clearSummary); err != nil {
		metrics.RecordProcessingStep(metrics.StepSummaryGenerated, false)
		return nil, fmt.Errorf("store summaries: %w", err)
	}
	metrics.RecordProcessingStep(metrics.StepSummaryGenerated, true)

	slog.InfoContext(ctx, "article summarized",
		slog.Int64("article_id", articleID),
		slog.Bool("has_chinese", chinese != nil),
		slog.Bool("has_english", english != nil),
		slog.Bool("cleared_feed_summary", clearSummary))
	return summary, nil
}

// articleText picks the best summarization source: extracted content first,
// then the feed summary when it is not boilerplate.
func (s *Service) articleText(ctx context.Context, article *entity.Article) (string, error) {
	if article.ContentID != nil {
		content, err := s.Contents.Get(ctx, *article.ContentID)
		if err != nil {
			return "", fmt.Errorf("load content: %w", err)
		}
		if content != nil && content.TextContent != "" {
			return content.TextContent, nil
		}
	}
	if !IsInvalidSummary(article.Summary) {
		return article.Summary, nil
	}
	return "", fmt.Errorf("article %d: %w", article.ID, ErrTextTooShort)
}
