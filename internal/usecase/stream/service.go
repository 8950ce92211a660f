// Package stream runs live summarization and translation sessions over
// server-sent events. Output is forwarded chunk by chunk and never stored;
// a disconnected client simply ends the session.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/semaphore"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/infra/provider"
	"rss-coordinator/internal/observability/metrics"
	"rss-coordinator/internal/repository"
)

// Event types in emission order. A session is
// start, config, payload events, then complete or error.
const (
	EventStart              = "start"
	EventConfig             = "config"
	EventContent            = "content"
	EventTitleSummary       = "title_summary_content"
	EventContentGroup       = "content_group"
	EventContentTranslation = "content_translation"
	EventComplete           = "complete"
	EventError              = "error"
)

// maxGroupRunes caps each translation group sent to the model.
const maxGroupRunes = 5000

// defaultMaxSessions bounds concurrently running sessions.
const defaultMaxSessions = 8

// ErrBusy means the session cap is reached; clients should retry later.
var ErrBusy = entity.NewKindError(entity.KindRateLimited,
	errors.New("too many streaming sessions in flight"))

// Event is one server-sent event of a session.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// EmitFunc delivers one event to the client. Returning an error means the
// client is gone; the session stops and discards remaining output.
type EmitFunc func(Event) error

// StreamClient is the single provider capability this package needs.
type StreamClient interface {
	ChatStream(ctx context.Context, req provider.ChatRequest) (provider.ChatStream, error)
}

// Options selects the provider and model for one session.
type Options struct {
	Provider string
	Model    string
}

// Service implements the streaming transformers.
type Service struct {
	Articles repository.ArticleRepository
	Contents repository.ContentRepository
	Client   StreamClient
	Model    string

	sem *semaphore.Weighted
}

// NewService builds a Service with the given session cap.
func NewService(articles repository.ArticleRepository, contents repository.ContentRepository, client StreamClient, model string, maxSessions int64) *Service {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	return &Service{
		Articles: articles,
		Contents: contents,
		Client:   client,
		Model:    model,
		sem:      semaphore.NewWeighted(maxSessions),
	}
}

func (s *Service) acquire() error {
	if s.sem == nil {
		s.sem = semaphore.NewWeighted(defaultMaxSessions)
	}
	if !s.sem.TryAcquire(1) {
		return ErrBusy
	}
	metrics.StreamSessionStarted()
	return nil
}

func (s *Service) release() {
	s.sem.Release(1)
	metrics.StreamSessionEnded()
}

// Summarize streams a live summary of one article. Output goes only to the
// client; nothing is persisted.
func (s *Service) Summarize(ctx context.Context, articleID int64, lang entity.SummaryLanguage, emit EmitFunc) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	article, text, err := s.loadArticle(ctx, articleID)
	if err != nil {
		return err
	}

	if err := emit(Event{Type: EventStart, Data: map[string]any{
		"article_id": articleID,
		"title":      article.Title,
	}}); err != nil {
		return err
	}
	if err := emit(Event{Type: EventConfig, Data: map[string]any{
		"model":    s.Model,
		"language": string(lang),
	}}); err != nil {
		return err
	}

	prompt := summarizePrompt(article.Title, text, lang)
	if err := s.streamChunks(ctx, prompt, EventContent, nil, emit); err != nil {
		return s.fail(emit, err)
	}
	return emit(Event{Type: EventComplete})
}

// Translate streams a two-phase translation: title and summary first as one
// event, then the body in bounded paragraph groups.
func (s *Service) Translate(ctx context.Context, articleID int64, targetLang entity.SummaryLanguage, emit EmitFunc) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	article, text, err := s.loadArticle(ctx, articleID)
	if err != nil {
		return err
	}

	if err := emit(Event{Type: EventStart, Data: map[string]any{
		"article_id": articleID,
		"title":      article.Title,
	}}); err != nil {
		return err
	}
	if err := emit(Event{Type: EventConfig, Data: map[string]any{
		"model":           s.Model,
		"target_language": string(targetLang),
	}}); err != nil {
		return err
	}

	// Phase one: title and summary in a single buffered event, so clients
	// can render the header before the body starts.
	header, err := s.collect(ctx, headerPrompt(article, targetLang))
	if err != nil {
		return s.fail(emit, err)
	}
	if err := emit(Event{Type: EventTitleSummary, Data: map[string]any{"text": header}}); err != nil {
		return err
	}

	// Phase two: body translation, group by group.
	groups := SplitGroups(text, maxGroupRunes)
	for i, group := range groups {
		if err := emit(Event{Type: EventContentGroup, Data: map[string]any{
			"index": i + 1,
			"total": len(groups),
		}}); err != nil {
			return err
		}
		extra := map[string]any{"group": i + 1}
		if err := s.streamChunks(ctx, bodyPrompt(group, targetLang), EventContentTranslation, extra, emit); err != nil {
			return s.fail(emit, err)
		}
	}
	return emit(Event{Type: EventComplete})
}

func (s *Service) loadArticle(ctx context.Context, articleID int64) (*entity.Article, string, error) {
	article, err := s.Articles.Get(ctx, articleID)
	if err != nil {
		return nil, "", fmt.Errorf("load article: %w", err)
	}
	if article == nil {
		return nil, "", fmt.Errorf("article %d: %w", articleID, entity.ErrNotFound)
	}
	text := article.Summary
	if article.ContentID != nil {
		content, err := s.Contents.Get(ctx, *article.ContentID)
		if err != nil {
			return nil, "", fmt.Errorf("load content: %w", err)
		}
		if content != nil && content.TextContent != "" {
			text = content.TextContent
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, "", fmt.Errorf("article %d has no text: %w", articleID, entity.ErrInvalidInput)
	}
	return article, text, nil
}

// streamChunks opens a model stream and forwards each delta as one event.
func (s *Service) streamChunks(ctx context.Context, prompt, eventType string, extra map[string]any, emit EmitFunc) error {
	stream, err := s.Client.ChatStream(ctx, provider.ChatRequest{
		Model:    s.Model,
		Messages: []provider.Message{{Role: provider.RoleUser, Content: prompt}},
	})
	if err != nil {
		return err
	}
	defer func() { _ = stream.Close() }()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if chunk.Delta == "" {
			continue
		}
		data := map[string]any{"text": chunk.Delta}
		for k, v := range extra {
			data[k] = v
		}
		if err := emit(Event{Type: eventType, Data: data}); err != nil {
			return err
		}
	}
}

// collect drains a model stream into one string.
func (s *Service) collect(ctx context.Context, prompt string) (string, error) {
	var b strings.Builder
	err := s.streamChunks(ctx, prompt, EventContent, nil, func(e Event) error {
		if text, ok := e.Data["text"].(string); ok {
			b.WriteString(text)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// fail emits a terminal error event; an emit failure means the client is
// already gone and only the original error matters.
func (s *Service) fail(emit EmitFunc, cause error) error {
	_ = emit(Event{Type: EventError, Data: map[string]any{
		"message": cause.Error(),
		"kind":    string(entity.KindOf(cause)),
	}})
	return cause
}

// SplitGroups packs paragraphs into groups of at most limit runes.
// A single oversized paragraph becomes its own group, hard-split.
func SplitGroups(text string, limit int) []string {
	paragraphs := strings.Split(text, "\n\n")
	var groups []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			groups = append(groups, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, p := range paragraphs {
		if strings.TrimSpace(p) == "" {
			continue
		}
		runes := []rune(p)
		if len(runes) > limit {
			flush()
			for start := 0; start < len(runes); start += limit {
				end := start + limit
				if end > len(runes) {
					end = len(runes)
				}
				groups = append(groups, string(runes[start:end]))
			}
			continue
		}
		// +2 accounts for the paragraph separator.
		if currentLen > 0 && currentLen+2+len(runes) > limit {
			flush()
		}
		if currentLen > 0 {
			current.WriteString("\n\n")
			currentLen += 2
		}
		current.WriteString(p)
		currentLen += len(runes)
	}
	flush()
	return groups
}

func summarizePrompt(title, text string, lang entity.SummaryLanguage) string {
	if lang == entity.LanguageEnglish {
		return fmt.Sprintf("Summarize the following article in English, 200 words at most.\n\nTitle: %s\n\n%s", title, text)
	}
	return fmt.Sprintf("请用中文总结以下文章，不超过200字。\n\n标题：%s\n\n%s", title, text)
}

func headerPrompt(article *entity.Article, lang entity.SummaryLanguage) string {
	target := "中文"
	if lang == entity.LanguageEnglish {
		target = "English"
	}
	return fmt.Sprintf("请把以下标题和摘要翻译成%s，先输出标题，再输出摘要。\n\n标题：%s\n摘要：%s",
		target, article.Title, article.Summary)
}

func bodyPrompt(group string, lang entity.SummaryLanguage) string {
	target := "中文"
	if lang == entity.LanguageEnglish {
		target = "English"
	}
	return fmt.Sprintf("请把以下正文段落翻译成%s，保持段落结构：\n\n%s", target, group)
}
