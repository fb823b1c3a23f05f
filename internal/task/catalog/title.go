package catalog

import (
	"fmt"
	"time"

	"github.com/doughub/engine/internal/task"
)

// generateTitle names untitled captures in the inbox.
var generateTitle = &task.Def{
	TaskID:   "generate-title",
	TaskName: "Generate title",
	TaskDesc: "Produce a short descriptive title for an untitled note.",

	ModelParams: task.Params{
		Temperature: 0.4,
		MaxTokens:   60,
		Timeout:     30 * time.Second,
		CacheTTL:    time.Hour,
	},

	Prompt: func(input task.Input) string {
		return fmt.Sprintf(`Write a title for the note below.
Return strict JSON: {"title":"..."}

Rules:
- at most 8 words
- no quotes inside the title, no trailing punctuation
- JSON only

Note:
%s`, input["text"])
	},

	Norm: func(parsed any) any {
		m := task.Obj(parsed)
		return map[string]any{
			"title": task.Str(m, "title", "Untitled note"),
		}
	},

	FallbackValue: map[string]any{"title": "Untitled note"},
	HasFallback:   true,
}
