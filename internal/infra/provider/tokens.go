package provider

import "unicode"

// EstimateTokens approximates the token count of text without a tokenizer.
// CJK codepoints count as one token each; everything else averages four
// bytes per token. Good enough for budget checks and usage reporting when
// the backend offers no counting endpoint.
func EstimateTokens(text string) int {
	cjk := 0
	other := 0
	for _, r := range text {
		if unicode.Is(unicode.Han, r) ||
			unicode.Is(unicode.Hiragana, r) ||
			unicode.Is(unicode.Katakana, r) ||
			unicode.Is(unicode.Hangul, r) {
			cjk++
		} else {
			other += len(string(r))
		}
	}
	tokens := cjk + (other+3)/4
	if tokens == 0 && text != "" {
		tokens = 1
	}
	return tokens
}
