package entity

import (
	"strings"
	"testing"
	"time"
)

func TestArticleTerminallyFailed(t *testing.T) {
	tests := []struct {
		name    string
		article Article
		want    bool
	}{
		{"pending", Article{Status: ArticleStatusPending, RetryCount: 3, MaxRetries: 3}, false},
		{"failed with retries left", Article{Status: ArticleStatusFailed, RetryCount: 1, MaxRetries: 3}, false},
		{"failed at limit", Article{Status: ArticleStatusFailed, RetryCount: 3, MaxRetries: 3}, true},
		{"failed over limit", Article{Status: ArticleStatusFailed, RetryCount: 5, MaxRetries: 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.article.TerminallyFailed(); got != tt.want {
				t.Errorf("TerminallyFailed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArticleLeaseExpired(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	timeout := 30 * time.Minute

	fresh := now.Add(-5 * time.Minute)
	stale := now.Add(-45 * time.Minute)

	tests := []struct {
		name    string
		article Article
		want    bool
	}{
		{"not locked", Article{IsLocked: false}, false},
		{"locked without timestamp", Article{IsLocked: true}, false},
		{"fresh lease", Article{IsLocked: true, LockTimestamp: &fresh}, false},
		{"stale lease", Article{IsLocked: true, LockTimestamp: &stale}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.article.LeaseExpired(now, timeout); got != tt.want {
				t.Errorf("LeaseExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArticleValidate(t *testing.T) {
	valid := Article{FeedID: "f1", Link: "https://example.com/a", Title: "T"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	tests := []struct {
		name    string
		article Article
	}{
		{"missing feed id", Article{Link: "https://example.com/a", Title: "T"}},
		{"missing link", Article{FeedID: "f1", Title: "T"}},
		{"bad link scheme", Article{FeedID: "f1", Link: "ftp://example.com/a", Title: "T"}},
		{"missing title", Article{FeedID: "f1", Link: "https://example.com/a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.article.Validate(); err == nil {
				t.Errorf("Validate() = nil, want error")
			}
		})
	}
}

func TestFeedLeased(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	timeout := 30 * time.Minute
	fresh := now.Add(-10 * time.Minute)
	stale := now.Add(-31 * time.Minute)

	tests := []struct {
		name string
		feed Feed
		want bool
	}{
		{"no holder", Feed{}, false},
		{"holder without start", Feed{LastSyncCrawlerID: "w1"}, false},
		{"fresh lease", Feed{LastSyncCrawlerID: "w1", LastSyncStartedAt: &fresh}, true},
		{"expired lease", Feed{LastSyncCrawlerID: "w1", LastSyncStartedAt: &stale}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.feed.Leased(now, timeout); got != tt.want {
				t.Errorf("Leased() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnifiedHotTopicValidate(t *testing.T) {
	base := UnifiedHotTopic{
		UnifiedTitle:   "AI芯片出口新规",
		UnifiedSummary: "多平台讨论芯片出口限制升级",
		Keywords:       []string{"芯片"},
		Category:       CategoryTech,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	longTitle := base
	longTitle.UnifiedTitle = strings.Repeat("长", 31)
	if err := longTitle.Validate(); err == nil {
		t.Errorf("want error for 31-rune title")
	}

	noKeywords := base
	noKeywords.Keywords = nil
	if err := noKeywords.Validate(); err == nil {
		t.Errorf("want error for empty keywords")
	}

	threeKeywords := base
	threeKeywords.Keywords = []string{"a", "b", "c"}
	if err := threeKeywords.Validate(); err == nil {
		t.Errorf("want error for 3 keywords")
	}
}
