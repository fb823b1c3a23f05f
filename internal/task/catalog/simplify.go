package catalog

import (
	"fmt"
	"time"

	"github.com/doughub/engine/internal/task"
)

// simplifyText rewrites a passage in plainer language.
var simplifyText = &task.Def{
	TaskID:   "simplify-text",
	TaskName: "Simplify text",
	TaskDesc: "Rewrite a passage in simpler language without losing meaning.",

	ModelParams: task.Params{
		Temperature: 0.3,
		MaxTokens:   800,
		Timeout:     45 * time.Second,
		CacheTTL:    time.Hour,
	},

	Prompt: func(input task.Input) string {
		audience := task.Str(input, "audience", "a general reader")
		return fmt.Sprintf(`Rewrite the passage below in simpler language for %s.
Return strict JSON: {"simplified":"..."}

Rules:
- keep every fact and claim from the original
- shorter sentences, common words
- JSON only

Passage:
%s`, audience, input["text"])
	},

	Norm: func(parsed any) any {
		m := task.Obj(parsed)
		return map[string]any{
			"simplified": task.Str(m, "simplified", ""),
		}
	},

	FallbackValue: map[string]any{"simplified": ""},
	HasFallback:   true,
}
