package catalog

import (
	"fmt"
	"time"

	"github.com/doughub/engine/internal/task"
)

// extractConcepts pulls the key concepts out of a captured note so they
// can be turned into topic cards.
var extractConcepts = &task.Def{
	TaskID:   "extract-concepts",
	TaskName: "Extract concepts",
	TaskDesc: "Identify the key concepts in a note and give each a one-sentence definition.",

	ModelParams: task.Params{
		Temperature: 0.2,
		MaxTokens:   800,
		Timeout:     45 * time.Second,
		CacheTTL:    time.Hour,
	},

	Prompt: func(input task.Input) string {
		return fmt.Sprintf(`You are helping organise a personal knowledge base.
Extract the key concepts from the note below. Return strict JSON:
{"concepts":[{"name":"...","definition":"..."}]}

Rules:
- at most 8 concepts
- "name" is 1-4 words, "definition" is exactly one sentence
- no markdown, no commentary, JSON only

Note:
%s`, input["text"])
	},

	Norm: func(parsed any) any {
		m := task.Obj(parsed)
		concepts := []map[string]string{}
		if arr, ok := m["concepts"].([]any); ok {
			for _, el := range arr {
				c := task.Obj(el)
				name := task.Str(c, "name", "")
				if name == "" {
					continue
				}
				concepts = append(concepts, map[string]string{
					"name":       name,
					"definition": task.Str(c, "definition", ""),
				})
			}
		}
		return map[string]any{"concepts": task.Limit(concepts, 8)}
	},

	FallbackValue: map[string]any{"concepts": []map[string]string{}},
	HasFallback:   true,
}
