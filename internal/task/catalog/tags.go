package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/doughub/engine/internal/task"
)

// suggestTags proposes tags for a note, biased toward the vocabulary the
// user already has.
var suggestTags = &task.Def{
	TaskID:   "suggest-tags",
	TaskName: "Suggest tags",
	TaskDesc: "Suggest tags for a note, preferring tags already in use.",

	ModelParams: task.Params{
		Temperature: 0.2,
		MaxTokens:   200,
		Timeout:     30 * time.Second,
		CacheTTL:    time.Hour,
	},

	Prompt: func(input task.Input) string {
		known := task.StrSlice(input, "existing_tags")
		var hint string
		if len(known) > 0 {
			hint = "Prefer these existing tags when they fit: " + strings.Join(known, ", ") + "\n"
		}
		return fmt.Sprintf(`Suggest tags for the note below.
Return strict JSON: {"tags":["..."]}

Rules:
- between 1 and 5 tags
- lowercase, single words or hyphenated phrases
%s- JSON only

Note:
%s`, hint, input["text"])
	},

	Norm: func(parsed any) any {
		m := task.Obj(parsed)
		tags := task.StrSlice(m, "tags")
		out := make([]string, 0, len(tags))
		for _, t := range tags {
			t = strings.ToLower(strings.TrimSpace(t))
			if t != "" {
				out = append(out, t)
			}
		}
		return map[string]any{
			"tags": task.Limit(out, 5),
		}
	},

	FallbackValue: map[string]any{"tags": []string{}},
	HasFallback:   true,
}
