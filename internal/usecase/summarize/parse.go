package summarize

import (
	"regexp"
	"strings"
)

var (
	chineseSectionRe = regexp.MustCompile(`(?s)中文摘要[:：]\s*(.*?)\s*(?:English Summary[:：]|\z)`)
	englishSectionRe = regexp.MustCompile(`(?s)English Summary[:：]\s*(.*)\s*\z`)
)

// parseBilingual splits a labeled model response into its Chinese and English
// parts. Falls back to line scanning when the labels are reformatted in ways
// the section regexps miss.
func parseBilingual(output string) (chinese, english string) {
	if m := chineseSectionRe.FindStringSubmatch(output); m != nil {
		chinese = strings.TrimSpace(m[1])
	}
	if m := englishSectionRe.FindStringSubmatch(output); m != nil {
		english = strings.TrimSpace(m[1])
	}
	if chinese != "" || english != "" {
		return chinese, english
	}

	var zh, en []string
	current := ""
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "中文摘要"):
			current = "zh"
			trimmed = trimLabel(trimmed, "中文摘要")
		case strings.HasPrefix(trimmed, "English Summary"):
			current = "en"
			trimmed = trimLabel(trimmed, "English Summary")
		}
		if trimmed == "" {
			continue
		}
		switch current {
		case "zh":
			zh = append(zh, trimmed)
		case "en":
			en = append(en, trimmed)
		}
	}
	return strings.Join(zh, " "), strings.Join(en, " ")
}

func trimLabel(line, label string) string {
	rest := strings.TrimPrefix(line, label)
	rest = strings.TrimLeft(rest, ":： \t")
	return strings.TrimSpace(rest)
}
