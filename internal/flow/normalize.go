package flow

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"
)

// SummaryLimit is the character cap applied to language-model summaries.
const SummaryLimit = 200

// ParseStarRating normalizes a star answer to its digit form. It accepts a
// run of one to five star glyphs with at least one filled star (the value
// is the count of filled stars) or a bare digit 1-5, so "★★★" and "3" both
// normalize to "3". An all-hollow run like "☆☆☆" is rejected: the rating
// scale starts at 1.
func ParseStarRating(text string) (string, bool) {
	if isStarGlyphRun(text) {
		if filled := strings.Count(text, "★"); filled >= 1 {
			return strconv.Itoa(filled), true
		}
	}
	if utf8.RuneCountInString(text) == 1 && text >= "1" && text <= "5" {
		return text, true
	}
	return "", false
}

func isStarGlyphRun(text string) bool {
	n := 0
	for _, r := range text {
		if r != '★' && r != '☆' {
			return false
		}
		n++
	}
	return n >= 1 && n <= 5
}

// TruncateRunes hard-truncates s to at most n runes.
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// summarizeOrTruncate condenses text with the language model and caps the
// result at maxLen runes. If summarization fails the original text is
// hard-truncated instead, so the answer is never lost.
func summarizeOrTruncate(ctx context.Context, lm LanguageModel, text string, maxLen int) string {
	summary, err := lm.Summarize(ctx, text)
	if err != nil {
		slog.Warn("Summarization failed, truncating original text", "error", err, "length", utf8.RuneCountInString(text))
		summary = text
	}
	return TruncateRunes(summary, maxLen)
}

// CaptureText normalizes a free text answer for a question with the given
// length cap. Audio-sourced or over-length input is summarized (with
// truncation fallback); anything else is stored verbatim.
func CaptureText(ctx context.Context, lm LanguageModel, text string, maxLen int, isAudio bool) string {
	if !isAudio && utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	return summarizeOrTruncate(ctx, lm, text, maxLen)
}
