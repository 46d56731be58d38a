package cleaner

import (
	"strings"
	"unicode/utf8"
)

// EstimateTokens is a fast token count estimate: rune count / 3, a middle
// ground between English (~4 chars/token) and CJK (~1.5 chars/token).
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	est := n / 3
	if est < 1 {
		return 1
	}
	return est
}

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
