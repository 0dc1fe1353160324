package dispatch

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageRunes is Telegram's hard limit for one text message.
const MaxMessageRunes = 4096

// Split cuts text into parts of at most limit runes. It prefers paragraph
// breaks, then line breaks, within the last two thirds of each window, so
// a news link is never cut in half unless a single line exceeds the limit.
func Split(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	start := 0 // byte index
	for start < len(text) {
		runes, end := 0, start
		lastPara, lastLine := -1, -1 // byte index after the break
		for end < len(text) && runes < limit {
			r, size := utf8.DecodeRuneInString(text[end:])
			if r == '\n' && runes >= limit/3 {
				lastLine = end + size
				if end > start && text[end-1] == '\n' {
					lastPara = end + size
				}
			}
			runes++
			end += size
		}
		if end < len(text) {
			switch {
			case lastPara != -1:
				end = lastPara
			case lastLine != -1:
				end = lastLine
			}
		}
		if part := strings.TrimRight(text[start:end], "\n"); part != "" {
			parts = append(parts, part)
		}
		start = end
		for start < len(text) && text[start] == '\n' {
			start++
		}
	}
	return parts
}
