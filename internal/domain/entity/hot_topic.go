package entity

import "time"

// TopicCategory is the canonical English code of a hot-topic category.
type TopicCategory string

// The fixed category set. The LLM answers with the Chinese label; the
// aggregator maps it to the canonical code before insertion.
const (
	CategoryTech          TopicCategory = "tech"
	CategoryFinance       TopicCategory = "finance"
	CategoryEntertainment TopicCategory = "entertainment"
	CategorySports        TopicCategory = "sports"
	CategorySociety       TopicCategory = "society"
	CategoryPolitics      TopicCategory = "politics"
	CategoryHealth        TopicCategory = "health"
	CategoryEducation     TopicCategory = "education"
	CategoryScience       TopicCategory = "science"
	CategoryAuto          TopicCategory = "auto"
	CategoryGame          TopicCategory = "game"
	CategoryMilitary      TopicCategory = "military"
	CategoryInternational TopicCategory = "international"
	CategoryLifestyle     TopicCategory = "lifestyle"
	CategoryCulture       TopicCategory = "culture"
	CategoryOther         TopicCategory = "other"
)

// RawTopic is one platform-scoped trending item pulled for a date.
type RawTopic struct {
	ID          int64
	Platform    string
	Title       string
	Description string
	URL         string
	TopicDate   time.Time
	Status      string
	CreatedAt   time.Time
}

// UnifiedHotTopic is one clustered group of raw topics for a date.
// Per date, roughly ten groups exist; rows for a date are replaced wholesale
// by each aggregation run.
type UnifiedHotTopic struct {
	ID                 int64
	TopicDate          time.Time
	UnifiedTitle       string
	UnifiedSummary     string
	Keywords           []string
	Category           TopicCategory
	RelatedTopicHashes []string
	SourcePlatforms    []string
	TopicCount         int
	RepresentativeURL  string
	CreatedAt          time.Time
}

// Validate checks the group's required fields and size limits.
func (t *UnifiedHotTopic) Validate() error {
	if t.UnifiedTitle == "" {
		return &ValidationError{Field: "unified_title", Message: "is required"}
	}
	if len([]rune(t.UnifiedTitle)) > 30 {
		return &ValidationError{Field: "unified_title", Message: "must be at most 30 characters"}
	}
	if len([]rune(t.UnifiedSummary)) > 60 {
		return &ValidationError{Field: "unified_summary", Message: "must be at most 60 characters"}
	}
	if len(t.Keywords) < 1 || len(t.Keywords) > 2 {
		return &ValidationError{Field: "keywords", Message: "must contain 1 or 2 entries"}
	}
	if t.Category == "" {
		return &ValidationError{Field: "category", Message: "is required"}
	}
	return nil
}
