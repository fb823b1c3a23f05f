package catalog

import (
	"fmt"
	"time"

	"github.com/doughub/engine/internal/task"
)

// summarizeNote condenses a note body for the inbox preview pane.
var summarizeNote = &task.Def{
	TaskID:   "summarize-note",
	TaskName: "Summarize note",
	TaskDesc: "Produce a short summary and key points for a captured note.",

	ModelParams: task.Params{
		Temperature: 0.3,
		MaxTokens:   500,
		Timeout:     45 * time.Second,
		CacheTTL:    time.Hour,
	},

	Prompt: func(input task.Input) string {
		maxSentences := 3
		if n, ok := input["max_sentences"].(float64); ok && n > 0 {
			maxSentences = int(n)
		}
		return fmt.Sprintf(`Summarise the note below in at most %d sentences, then list its
key points. Return strict JSON:
{"summary":"...","key_points":["..."]}

No markdown, no commentary, JSON only.

Note:
%s`, maxSentences, input["text"])
	},

	Norm: func(parsed any) any {
		m := task.Obj(parsed)
		return map[string]any{
			"summary":    task.Str(m, "summary", ""),
			"key_points": task.Limit(task.StrSlice(m, "key_points"), 10),
		}
	},

	FallbackValue: map[string]any{"summary": "", "key_points": []string{}},
	HasFallback:   true,
}
