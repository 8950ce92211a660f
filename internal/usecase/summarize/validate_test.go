package summarize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsInvalidSummary(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		invalid bool
	}{
		{"empty", "", true},
		{"whitespace only", "   \n\t ", true},
		{"too short", "短文。", true},
		{"click through stub", "点击这里查看完整文章内容哦", true},
		{"view original stub", "请查看原文了解更多详细信息", true},
		{"read original stub", "欢迎阅读原文获取完整报道内容", true},
		{"read more english", "This article continues, read more on our site", true},
		{"click here english", "Click Here for the full story and analysis", true},
		{"source prefix", "来源：新华社报道今日要闻汇总", true},
		{"punctuation only", "——…………！！！？？？。。。", true},
		{"valid chinese", "本文介绍了分布式系统中租约机制的设计与实现细节。", false},
		{"valid english", "A detailed look at lease-based coordination in distributed crawlers.", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.invalid, IsInvalidSummary(tt.summary))
		})
	}
}

func TestCleanText(t *testing.T) {
	html := `<html><head><style>p{color:red}</style></head>
<body><script>alert(1)</script><p>First   paragraph.</p><p>Second one.</p></body></html>`
	assert.Equal(t, "First paragraph. Second one.", CleanText(html))

	// Plain text only gets whitespace normalization.
	assert.Equal(t, "a b c", CleanText("  a \n b \t c "))
}

func TestTruncate(t *testing.T) {
	short := "fits as is"
	assert.Equal(t, short, Truncate(short))

	// A sentence end inside the last 30% of the window wins.
	sentence := strings.Repeat("字", 150) + "。" + strings.Repeat("多", 100)
	got := Truncate(sentence)
	assert.Equal(t, 151, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "。"))

	// No sentence end: fall back to a clause end in the last 20%.
	clause := strings.Repeat("字", 170) + "，" + strings.Repeat("多", 100)
	got = Truncate(clause)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.Equal(t, 171, len([]rune(got)))

	// No usable boundary at all: hard cut with ellipsis.
	hard := strings.Repeat("字", 400)
	got = Truncate(hard)
	assert.Equal(t, 201, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestParseBilingual(t *testing.T) {
	output := `中文摘要：这是一篇关于分布式爬虫协调机制的文章，介绍了租约与重试设计。
English Summary：An article about distributed crawler coordination, covering leases and retries.`

	zh, en := parseBilingual(output)
	assert.Contains(t, zh, "分布式爬虫")
	assert.Contains(t, en, "distributed crawler")
}

func TestParseBilingual_LineFallback(t *testing.T) {
	// Labels wrapped in markdown emphasis defeat the section regexps.
	output := "**中文摘要**\n这是中文部分的内容。\n\n**English Summary**\nThe english part here."

	zh, en := parseBilingual(output)
	assert.Empty(t, zh)
	assert.Empty(t, en)

	// Bare labels on their own lines are recovered by the scanner.
	output = "中文摘要\n这是中文部分的内容。\nEnglish Summary\nThe english part here."
	zh, en = parseBilingual(output)
	assert.Equal(t, "这是中文部分的内容。", zh)
	assert.Equal(t, "The english part here.", en)
}
