package summarize

import (
	"regexp"
	"strings"
	"unicode"
)

// Boilerplate patterns that mark an RSS-supplied summary as useless.
// Feeds frequently ship "click through" stubs instead of real abstracts.
var boilerplatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`点击.{0,20}查看`),
	regexp.MustCompile(`查看.{0,20}原文`),
	regexp.MustCompile(`阅读.{0,20}原文`),
	regexp.MustCompile(`(?i)read\s+more`),
	regexp.MustCompile(`(?i)click\s+here`),
	regexp.MustCompile(`来源[:：]`),
}

const minSummaryRunes = 10

// IsInvalidSummary reports whether a summary is unusable: empty, too short,
// boilerplate, or punctuation-only.
func IsInvalidSummary(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return true
	}
	if len([]rune(trimmed)) < minSummaryRunes {
		return true
	}
	for _, re := range boilerplatePatterns {
		if re.MatchString(trimmed) {
			return true
		}
	}
	return punctuationOnly(trimmed)
}

func punctuationOnly(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return false
		}
	}
	return true
}
