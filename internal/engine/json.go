package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseModelJSON extracts and decodes the JSON document in a completion.
// Models sometimes wrap their output in markdown fences or surround it
// with commentary despite instructions, so the parser tolerates both: it
// strips fences and scans for the outermost object or array.
func parseModelJSON(content string) (any, error) {
	s := strings.TrimSpace(content)
	if s == "" {
		return nil, fmt.Errorf("empty completion")
	}

	s = stripFences(s)

	// Fast path: the whole content is the document.
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v, nil
	}

	// Slow path: carve out the outermost {...} or [...].
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return nil, fmt.Errorf("no JSON document in completion")
	}
	var end int
	if s[start] == '{' {
		end = strings.LastIndexByte(s, '}')
	} else {
		end = strings.LastIndexByte(s, ']')
	}
	if end <= start {
		return nil, fmt.Errorf("unterminated JSON document in completion")
	}

	if err := json.Unmarshal([]byte(s[start:end+1]), &v); err != nil {
		return nil, fmt.Errorf("decoding completion JSON: %w", err)
	}
	return v, nil
}

// stripFences removes a surrounding markdown code fence, with or without
// a language tag.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	rest := s[3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// Drop the fence line, including any language tag.
		rest = rest[nl+1:]
	}
	if i := strings.LastIndex(rest, "```"); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}
