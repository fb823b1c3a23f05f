package catalog

import (
	"fmt"
	"time"

	"github.com/doughub/engine/internal/task"
)

// answerQuestion answers a free-form question against a note. Answers
// are question-specific so they are never cached, and a canned answer
// would be worse than an error, so there is no fallback.
var answerQuestion = &task.Def{
	TaskID:   "answer-question",
	TaskName: "Answer question",
	TaskDesc: "Answer a question using a note as the only source.",

	ModelParams: task.Params{
		Temperature: 0.1,
		MaxTokens:   600,
		Timeout:     45 * time.Second,
		CacheTTL:    0,
	},

	Prompt: func(input task.Input) string {
		return fmt.Sprintf(`Answer the question using only the note below. If the note does not
contain the answer, say so and set "grounded" to false.
Return strict JSON: {"answer":"...","grounded":true}

Rules:
- do not use knowledge outside the note
- JSON only

Question: %s

Note:
%s`, input["question"], input["text"])
	},

	Norm: func(parsed any) any {
		m := task.Obj(parsed)
		return map[string]any{
			"answer":   task.Str(m, "answer", ""),
			"grounded": task.Bool(m, "grounded", false),
		}
	},

	HasFallback: false,
}
