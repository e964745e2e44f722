package flow

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParseStarRating(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{input: "★★★", want: "3", ok: true},
		{input: "★", want: "1", ok: true},
		{input: "★★★★★", want: "5", ok: true},
		{input: "★★★☆☆", want: "3", ok: true},
		{input: "☆☆☆", ok: false}, // no filled star, rating scale starts at 1
		{input: "☆", ok: false},
		{input: "3", want: "3", ok: true},
		{input: "1", want: "1", ok: true},
		{input: "5", want: "5", ok: true},
		{input: "0", ok: false},
		{input: "6", ok: false},
		{input: "35", ok: false},
		{input: "★★★★★★", ok: false}, // more than five glyphs
		{input: "star", ok: false},
		{input: "★3", ok: false},
		{input: "", ok: false},
	}
	for _, tc := range tests {
		got, ok := ParseStarRating(tc.input)
		if ok != tc.ok {
			t.Errorf("ParseStarRating(%q) ok = %v, want %v", tc.input, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("ParseStarRating(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("こんにちは", 3); got != "こんに" {
		t.Errorf("expected こんに, got %q", got)
	}
	if got := TruncateRunes("abc", 5); got != "abc" {
		t.Errorf("short input must be returned verbatim, got %q", got)
	}
	if got := TruncateRunes("", 5); got != "" {
		t.Errorf("empty input must stay empty, got %q", got)
	}
}

func TestCaptureText_ShortTextVerbatim(t *testing.T) {
	lm := &fakeLanguageModel{}
	got := CaptureText(context.Background(), lm, "短い回答", 100, false)
	if got != "短い回答" {
		t.Errorf("expected verbatim capture, got %q", got)
	}
	if lm.summarizeCalls != 0 {
		t.Errorf("short text must not be summarized, got %d calls", lm.summarizeCalls)
	}
}

func TestCaptureText_AudioAlwaysSummarized(t *testing.T) {
	lm := &fakeLanguageModel{summarizeFn: func(text string) (string, error) {
		return "要約済み", nil
	}}
	got := CaptureText(context.Background(), lm, "短い", 100, true)
	if got != "要約済み" {
		t.Errorf("expected summarized transcript, got %q", got)
	}
	if lm.summarizeCalls != 1 {
		t.Errorf("expected 1 summarize call, got %d", lm.summarizeCalls)
	}
}

func TestCaptureText_OverLengthSummarizedAndCapped(t *testing.T) {
	long := strings.Repeat("あ", 150)
	lm := &fakeLanguageModel{summarizeFn: func(text string) (string, error) {
		return strings.Repeat("い", 120), nil
	}}
	got := CaptureText(context.Background(), lm, long, 100, false)
	if got != strings.Repeat("い", 100) {
		t.Errorf("expected summary capped to 100 runes, got %d runes", len([]rune(got)))
	}
}

func TestCaptureText_SummarizerFailureTruncatesOriginal(t *testing.T) {
	long := strings.Repeat("あ", 150)
	lm := &fakeLanguageModel{summarizeFn: func(text string) (string, error) {
		return "", errors.New("model unavailable")
	}}
	got := CaptureText(context.Background(), lm, long, 100, false)
	if got != strings.Repeat("あ", 100) {
		t.Errorf("expected truncated original on failure, got %q", got)
	}
}
