package catalog

import (
	"fmt"
	"time"

	"github.com/doughub/engine/internal/task"
)

// generateFlashcards turns a note into question/answer study cards.
var generateFlashcards = &task.Def{
	TaskID:   "generate-flashcards",
	TaskName: "Generate flashcards",
	TaskDesc: "Create question and answer flashcards from a note.",

	ModelParams: task.Params{
		Temperature: 0.3,
		MaxTokens:   1000,
		Timeout:     60 * time.Second,
		CacheTTL:    time.Hour,
	},

	Prompt: func(input task.Input) string {
		return fmt.Sprintf(`Create flashcards from the note below.
Return strict JSON: {"cards":[{"front":"...","back":"..."}]}

Rules:
- at most 12 cards
- the front is a short question, the back is the answer
- each card must stand on its own without the note
- JSON only

Note:
%s`, input["text"])
	},

	Norm: func(parsed any) any {
		m := task.Obj(parsed)
		raw, _ := m["cards"].([]any)
		cards := make([]map[string]string, 0, len(raw))
		for _, c := range raw {
			cm := task.Obj(c)
			front := task.Str(cm, "front", "")
			back := task.Str(cm, "back", "")
			if front == "" || back == "" {
				continue
			}
			cards = append(cards, map[string]string{"front": front, "back": back})
		}
		return map[string]any{
			"cards": task.Limit(cards, 12),
		}
	},

	FallbackValue: map[string]any{"cards": []map[string]string{}},
	HasFallback:   true,
}
