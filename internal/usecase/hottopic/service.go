// Package hottopic clusters one day's platform trending items into roughly
// ten unified topic groups via a single LLM pass.
package hottopic

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"rss-coordinator/internal/domain/entity"
	"rss-coordinator/internal/infra/provider"
	"rss-coordinator/internal/observability/metrics"
	"rss-coordinator/internal/repository"
)

const (
	chatMaxTokens   = 6000
	chatTemperature = 0.2
	// maxDescriptionRunes caps each raw topic's description in the prompt.
	maxDescriptionRunes = 50
	targetGroupCount    = 10
)

// ErrNoRawTopics means no platform items exist for the date.
var ErrNoRawTopics = errors.New("no raw topics for date")

// ErrEmptyClustering means the model returned no usable topic groups.
var ErrEmptyClustering = errors.New("clustering produced no valid groups")

// ChatClient is the single provider capability this package needs.
type ChatClient interface {
	Chat(ctx context.Context, req provider.ChatRequest) (*provider.ChatResponse, error)
}

// RunResult summarizes one aggregation run.
type RunResult struct {
	Date      time.Time
	RawTopics int
	Groups    int
	Dropped   int
}

// Service implements the hot-topic aggregator.
type Service struct {
	Topics repository.HotTopicRepository
	Chat   ChatClient
	Model  string
}

// Run clusters the date's raw topics and replaces that date's unified rows
// wholesale. Re-running a date is safe.
func (s *Service) Run(ctx context.Context, date time.Time) (*RunResult, error) {
	day := date.UTC().Truncate(24 * time.Hour)

	raw, err := s.Topics.RawTopicsByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("load raw topics: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("date %s: %w", day.Format("2006-01-02"), ErrNoRawTopics)
	}

	hashes := make(map[int64]string, len(raw))
	for _, t := range raw {
		hashes[t.ID] = TopicHash(t.Platform, t.Title)
	}

	resp, err := s.Chat.Chat(ctx, provider.ChatRequest{
		Model: s.Model,
		Messages: []provider.Message{
			{Role: provider.RoleUser, Content: buildPrompt(raw)},
		},
		MaxTokens:   chatMaxTokens,
		Temperature: chatTemperature,
	})
	if err != nil {
		metrics.RecordHotTopicRun(false)
		return nil, fmt.Errorf("cluster topics: %w", err)
	}

	groups, dropped := parseGroups(resp.Message.Content, raw, hashes, day)
	if len(groups) == 0 {
		metrics.RecordHotTopicRun(false)
		return nil, fmt.Errorf("date %s: %w", day.Format("2006-01-02"), ErrEmptyClustering)
	}

	if err := s.Topics.ReplaceUnifiedByDate(ctx, day, groups); err != nil {
		metrics.RecordHotTopicRun(false)
		return nil, fmt.Errorf("replace unified topics: %w", err)
	}
	metrics.RecordHotTopicRun(true)

	slog.InfoContext(ctx, "hot topics aggregated",
		slog.String("date", day.Format("2006-01-02")),
		slog.Int("raw_topics", len(raw)),
		slog.Int("groups", len(groups)),
		slog.Int("dropped", dropped))
	return &RunResult{Date: day, RawTopics: len(raw), Groups: len(groups), Dropped: dropped}, nil
}

// TopicHash derives the stable identity of a raw topic: platform plus the
// lowercased alphanumeric runes of its title. Titles that differ only in
// punctuation or spacing hash the same.
func TopicHash(platform, title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	sum := sha256.Sum256([]byte(platform + ":" + b.String()))
	return hex.EncodeToString(sum[:])
}

// promptTopic is the compact per-item shape sent to the model.
type promptTopic struct {
	ID          int64  `json:"id"`
	Platform    string `json:"platform"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

func buildPrompt(raw []*entity.RawTopic) string {
	items := make([]promptTopic, len(raw))
	for i, t := range raw {
		items[i] = promptTopic{
			ID:          t.ID,
			Platform:    t.Platform,
			Title:       t.Title,
			Description: clipRunes(t.Description, maxDescriptionRunes),
		}
	}
	encoded, _ := json.Marshal(items)

	return fmt.Sprintf(`以下是今天各平台的热搜条目（JSON 数组）。请把讨论同一事件的条目聚合成大约%d个主题组，严格以 JSON 数组返回，每组格式：
{"unified_title": "不超过30字", "unified_summary": "不超过60字", "keywords": ["1到2个关键词"], "category": "类别中文名", "topic_ids": [条目id], "representative_url_id": 代表条目id}

类别只能从以下选择：科技、财经、娱乐、体育、社会、政治、健康、教育、科学、汽车、游戏、军事、国际、生活、文化、其他。

%s`, targetGroupCount, encoded)
}

// modelGroup is the per-group shape expected back from the model.
type modelGroup struct {
	UnifiedTitle        string   `json:"unified_title"`
	UnifiedSummary      string   `json:"unified_summary"`
	Keywords            []string `json:"keywords"`
	Category            string   `json:"category"`
	TopicIDs            []int64  `json:"topic_ids"`
	RepresentativeURLID int64    `json:"representative_url_id"`
}

// parseGroups decodes, repairs, validates, and converts the model output.
// Invalid groups are dropped individually; one malformed group never voids
// the run.
func parseGroups(raw string, topics []*entity.RawTopic, hashes map[int64]string, day time.Time) ([]*entity.UnifiedHotTopic, int) {
	byID := make(map[int64]*entity.RawTopic, len(topics))
	for _, t := range topics {
		byID[t.ID] = t
	}

	var decoded []modelGroup
	if err := json.Unmarshal([]byte(unwrapFence(raw)), &decoded); err != nil {
		repaired, ok := repairTruncated(unwrapFence(raw))
		if !ok {
			return nil, 0
		}
		if err := json.Unmarshal([]byte(repaired), &decoded); err != nil {
			return nil, 0
		}
	}

	groups := make([]*entity.UnifiedHotTopic, 0, len(decoded))
	dropped := 0
	for _, g := range decoded {
		group := &entity.UnifiedHotTopic{
			TopicDate:      day,
			UnifiedTitle:   strings.TrimSpace(g.UnifiedTitle),
			UnifiedSummary: strings.TrimSpace(g.UnifiedSummary),
			Keywords:       g.Keywords,
			Category:       CanonicalCategory(g.Category),
			TopicCount:     len(g.TopicIDs),
		}
		for _, id := range g.TopicIDs {
			if h, ok := hashes[id]; ok {
				group.RelatedTopicHashes = append(group.RelatedTopicHashes, h)
			}
			if t, ok := byID[id]; ok && !contains(group.SourcePlatforms, t.Platform) {
				group.SourcePlatforms = append(group.SourcePlatforms, t.Platform)
			}
		}
		if rep, ok := byID[g.RepresentativeURLID]; ok {
			group.RepresentativeURL = rep.URL
		}
		if len(group.RelatedTopicHashes) == 0 {
			dropped++
			continue
		}
		if err := group.Validate(); err != nil {
			dropped++
			continue
		}
		groups = append(groups, group)
	}
	return groups, dropped
}

func unwrapFence(s string) string {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

// repairTruncated recovers from a response cut off mid-array by dropping the
// partial trailing object and closing the array.
func repairTruncated(s string) (string, bool) {
	idx := strings.LastIndex(s, "}")
	if idx < 0 {
		return "", false
	}
	return s[:idx+1] + "]", true
}

// chineseCategories maps the model's Chinese labels to canonical codes.
var chineseCategories = map[string]entity.TopicCategory{
	"科技": entity.CategoryTech,
	"财经": entity.CategoryFinance,
	"娱乐": entity.CategoryEntertainment,
	"体育": entity.CategorySports,
	"社会": entity.CategorySociety,
	"政治": entity.CategoryPolitics,
	"健康": entity.CategoryHealth,
	"教育": entity.CategoryEducation,
	"科学": entity.CategoryScience,
	"汽车": entity.CategoryAuto,
	"游戏": entity.CategoryGame,
	"军事": entity.CategoryMilitary,
	"国际": entity.CategoryInternational,
	"生活": entity.CategoryLifestyle,
	"文化": entity.CategoryCulture,
	"其他": entity.CategoryOther,
}

// CanonicalCategory maps a model-reported label to its canonical code.
// Unknown labels fall back to "other".
func CanonicalCategory(label string) entity.TopicCategory {
	if c, ok := chineseCategories[strings.TrimSpace(label)]; ok {
		return c
	}
	return entity.CategoryOther
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func clipRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// TopicsByDate returns the stored unified groups for a date, largest first.
func (s *Service) TopicsByDate(ctx context.Context, date time.Time) ([]*entity.UnifiedHotTopic, error) {
	topics, err := s.Topics.UnifiedByDate(ctx, date.UTC().Truncate(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("list unified topics: %w", err)
	}
	return topics, nil
}
