package catalog

import (
	"fmt"
	"time"

	"github.com/doughub/engine/internal/task"
)

// extractActionItems pulls todo items out of meeting notes and journals.
var extractActionItems = &task.Def{
	TaskID:   "extract-action-items",
	TaskName: "Extract action items",
	TaskDesc: "Extract actionable todo items from a note.",

	ModelParams: task.Params{
		Temperature: 0.1,
		MaxTokens:   600,
		Timeout:     45 * time.Second,
		CacheTTL:    time.Hour,
	},

	Prompt: func(input task.Input) string {
		return fmt.Sprintf(`Extract action items from the note below.
Return strict JSON: {"items":[{"text":"...","owner":"","due":""}]}

Rules:
- only concrete actions someone committed to
- owner and due stay empty strings when the note does not name them
- due is an ISO date when present
- JSON only

Note:
%s`, input["text"])
	},

	Norm: func(parsed any) any {
		m := task.Obj(parsed)
		raw, _ := m["items"].([]any)
		items := make([]map[string]string, 0, len(raw))
		for _, it := range raw {
			im := task.Obj(it)
			text := task.Str(im, "text", "")
			if text == "" {
				continue
			}
			items = append(items, map[string]string{
				"text":  text,
				"owner": task.Str(im, "owner", ""),
				"due":   task.Str(im, "due", ""),
			})
		}
		return map[string]any{
			"items": task.Limit(items, 20),
		}
	},

	FallbackValue: map[string]any{"items": []map[string]string{}},
	HasFallback:   true,
}
