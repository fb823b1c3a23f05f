package catalog

import (
	"fmt"
	"time"

	"github.com/doughub/engine/internal/task"
)

// relatedTopics surfaces adjacent topics worth a follow-up note. The
// short TTL keeps suggestions fresh as the note evolves.
var relatedTopics = &task.Def{
	TaskID:   "related-topics",
	TaskName: "Related topics",
	TaskDesc: "Suggest topics related to a note that are worth exploring.",

	ModelParams: task.Params{
		Temperature: 0.6,
		MaxTokens:   300,
		Timeout:     30 * time.Second,
		CacheTTL:    10 * time.Minute,
	},

	Prompt: func(input task.Input) string {
		return fmt.Sprintf(`List topics related to the note below that the author might want to explore next.
Return strict JSON: {"topics":[{"name":"...","reason":"..."}]}

Rules:
- between 2 and 6 topics
- the reason is one short sentence tying the topic to the note
- JSON only

Note:
%s`, input["text"])
	},

	Norm: func(parsed any) any {
		m := task.Obj(parsed)
		raw, _ := m["topics"].([]any)
		topics := make([]map[string]string, 0, len(raw))
		for _, t := range raw {
			tm := task.Obj(t)
			name := task.Str(tm, "name", "")
			if name == "" {
				continue
			}
			topics = append(topics, map[string]string{
				"name":   name,
				"reason": task.Str(tm, "reason", ""),
			})
		}
		return map[string]any{
			"topics": task.Limit(topics, 6),
		}
	},

	FallbackValue: map[string]any{"topics": []map[string]string{}},
	HasFallback:   true,
}
