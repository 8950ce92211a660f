package entity

import "time"

// SummaryLanguage is the output language of a daily summary.
type SummaryLanguage string

const (
	// LanguageChinese selects Chinese output.
	LanguageChinese SummaryLanguage = "zh"
	// LanguageEnglish selects English output.
	LanguageEnglish SummaryLanguage = "en"
)

// ValidLanguage reports whether lang is a supported summary language.
func ValidLanguage(lang SummaryLanguage) bool {
	return lang == LanguageChinese || lang == LanguageEnglish
}

// DailySummary is a per-feed, per-date, per-language digest of one day's
// articles. Rows are unique on (feed_id, summary_date, language).
type DailySummary struct {
	ID             int64
	FeedID         string
	SummaryDate    time.Time
	Language       SummaryLanguage
	SummaryTitle   string
	SummaryContent string
	ArticleCount   int
	ArticleIDs     []int64
	LLMProvider    string
	LLMModel       string
	CostTokens     int
	Status         string
	CreatedAt      time.Time
}

// Validate checks the summary's required fields.
func (d *DailySummary) Validate() error {
	if d.FeedID == "" {
		return &ValidationError{Field: "feed_id", Message: "is required"}
	}
	if !ValidLanguage(d.Language) {
		return &ValidationError{Field: "language", Message: "must be zh or en"}
	}
	if d.SummaryDate.IsZero() {
		return &ValidationError{Field: "summary_date", Message: "is required"}
	}
	return nil
}
