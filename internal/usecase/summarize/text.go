package summarize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// minCleanRunes is the minimum usable length of cleaned article text.
	minCleanRunes = 50
	// maxSummaryRunes caps each generated summary.
	maxSummaryRunes = 200
	// maxInputRunes caps the text sent to the model.
	maxInputRunes = 10000
)

// CleanText strips markup from raw article text and collapses whitespace.
// Plain text passes through unchanged apart from whitespace normalization.
func CleanText(raw string) string {
	text := raw
	if strings.Contains(raw, "<") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
			doc.Find("script, style, noscript").Remove()
			text = doc.Text()
		}
	}
	return strings.Join(strings.Fields(text), " ")
}

// sentence enders: a cut here leaves a complete sentence.
var sentenceEnders = map[rune]bool{
	'。': true, '！': true, '？': true,
	'.': true, '!': true, '?': true,
}

// clause enders: a cut here is mid-sentence but still readable.
var clauseEnders = map[rune]bool{
	'，': true, '、': true, '；': true, '：': true,
	',': true, ';': true, ':': true,
}

// Truncate shortens s to at most maxSummaryRunes. It prefers cutting at a
// sentence end in the last 30% of the window, then at a clause end in the
// last 20%, and only then cuts mid-word with an ellipsis.
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxSummaryRunes {
		return s
	}
	window := runes[:maxSummaryRunes]

	for i := len(window) - 1; i >= maxSummaryRunes*7/10; i-- {
		if sentenceEnders[window[i]] {
			return string(window[:i+1])
		}
	}
	for i := len(window) - 1; i >= maxSummaryRunes*8/10; i-- {
		if clauseEnders[window[i]] {
			return string(window[:i]) + "…"
		}
	}
	return string(window) + "…"
}

// clip caps text at n runes without boundary preference.
func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
