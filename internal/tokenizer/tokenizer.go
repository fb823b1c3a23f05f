// Package tokenizer provides token counting for prompt budgeting. Oversized
// note bodies are truncated before prompt construction so a single pasted
// article cannot blow a task's context budget.
package tokenizer

import (
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts tokens using tiktoken encodings. Encodings are cached
// via sync.Once to avoid repeated initialization. Local models do not use
// tiktoken vocabularies, but cl100k_base is a close enough proxy for
// budgeting purposes.
type Tokenizer struct {
	cl100kOnce sync.Once
	cl100kEnc  *tiktoken.Tiktoken
	cl100kErr  error

	o200kOnce sync.Once
	o200kEnc  *tiktoken.Tiktoken
	o200kErr  error
}

// modelEncodings maps model names to their tiktoken encoding.
var modelEncodings = map[string]string{
	// OpenAI models — cl100k_base
	"gpt-4":       "cl100k_base",
	"gpt-4-turbo": "cl100k_base",
	"gpt-4o":      "cl100k_base",

	// OpenAI models — o200k_base
	"gpt-4o-2024-08-06":      "o200k_base",
	"gpt-4o-mini":            "o200k_base",
	"gpt-4o-mini-2024-07-18": "o200k_base",
}

// New creates a new Tokenizer instance.
func New() *Tokenizer {
	return &Tokenizer{}
}

// GetEncoding returns the encoding name for the given model.
// Unknown models (including all local ones) default to cl100k_base.
func (t *Tokenizer) GetEncoding(model string) string {
	if enc, ok := modelEncodings[model]; ok {
		return enc
	}

	lower := strings.ToLower(model)
	for m, enc := range modelEncodings {
		if strings.HasPrefix(lower, m) {
			return enc
		}
	}

	return "cl100k_base"
}

// getEncoder returns the cached tiktoken encoder for the given model.
func (t *Tokenizer) getEncoder(model string) (*tiktoken.Tiktoken, error) {
	switch t.GetEncoding(model) {
	case "o200k_base":
		t.o200kOnce.Do(func() {
			t.o200kEnc, t.o200kErr = tiktoken.GetEncoding("o200k_base")
		})
		return t.o200kEnc, t.o200kErr
	default:
		t.cl100kOnce.Do(func() {
			t.cl100kEnc, t.cl100kErr = tiktoken.GetEncoding("cl100k_base")
		})
		return t.cl100kEnc, t.cl100kErr
	}
}

// CountTokens counts the number of tokens in text for the given model.
// Returns 0 when the encoder cannot be initialised.
func (t *Tokenizer) CountTokens(model, text string) int {
	enc, err := t.getEncoder(model)
	if err != nil {
		return 0
	}
	return len(enc.Encode(text, nil, nil))
}

// Truncate clips text to at most maxTokens tokens for the given model.
// A maxTokens of zero or below disables truncation. When the encoder is
// unavailable the text is returned unchanged rather than risking data loss.
func (t *Tokenizer) Truncate(model, text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	enc, err := t.getEncoder(model)
	if err != nil {
		return text
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return enc.Decode(tokens[:maxTokens])
}
