package tokenizer

import (
	"strings"
	"testing"
)

func TestGetEncoding(t *testing.T) {
	tok := New()

	tests := []struct {
		model string
		want  string
	}{
		{"gpt-4o-mini", "o200k_base"},
		{"gpt-4", "cl100k_base"},
		{"llama3.1", "cl100k_base"}, // unknown local model defaults
		{"", "cl100k_base"},
	}
	for _, tt := range tests {
		if got := tok.GetEncoding(tt.model); got != tt.want {
			t.Errorf("GetEncoding(%q): got %q, want %q", tt.model, got, tt.want)
		}
	}
}

func TestCountTokens(t *testing.T) {
	tok := New()

	n := tok.CountTokens("gpt-4", "The quick brown fox jumps over the lazy dog.")
	if n <= 0 {
		t.Fatalf("expected positive token count, got %d", n)
	}
	if empty := tok.CountTokens("gpt-4", ""); empty != 0 {
		t.Errorf("empty string: got %d tokens, want 0", empty)
	}
}

func TestTruncate(t *testing.T) {
	tok := New()

	long := strings.Repeat("many words in a long note body ", 200)

	clipped := tok.Truncate("gpt-4", long, 50)
	if got := tok.CountTokens("gpt-4", clipped); got > 50 {
		t.Errorf("truncated text still has %d tokens", got)
	}
	if len(clipped) >= len(long) {
		t.Error("truncation did not shorten the text")
	}

	// Below the limit: unchanged.
	short := "a short note"
	if got := tok.Truncate("gpt-4", short, 50); got != short {
		t.Errorf("short text modified: %q", got)
	}

	// Zero limit disables truncation.
	if got := tok.Truncate("gpt-4", long, 0); got != long {
		t.Error("maxTokens=0 must disable truncation")
	}
}
