package catalog

import (
	"fmt"
	"time"

	"github.com/doughub/engine/internal/task"
)

var sourceCategories = []string{"note", "article", "meeting", "recipe", "receipt", "reference", "journal"}

// classifySource assigns a captured item to one of the known source
// categories so the app can route it to the right notebook.
var classifySource = &task.Def{
	TaskID:   "classify-source",
	TaskName: "Classify source",
	TaskDesc: "Classify a captured item into a source category.",

	ModelParams: task.Params{
		Temperature: 0,
		MaxTokens:   100,
		Timeout:     30 * time.Second,
		CacheTTL:    24 * time.Hour,
	},

	Prompt: func(input task.Input) string {
		return fmt.Sprintf(`Classify the item below into exactly one category:
note, article, meeting, recipe, receipt, reference, journal.
Return strict JSON: {"category":"...","confidence":0.0}

Rules:
- confidence is between 0 and 1
- when unsure, use "note" with low confidence
- JSON only

Item:
%s`, input["text"])
	},

	Norm: func(parsed any) any {
		m := task.Obj(parsed)
		cat := task.Str(m, "category", "note")
		known := false
		for _, c := range sourceCategories {
			if cat == c {
				known = true
				break
			}
		}
		if !known {
			cat = "note"
		}
		return map[string]any{
			"category":   cat,
			"confidence": task.Num(m, "confidence", 0, 0, 1),
		}
	},

	FallbackValue: map[string]any{"category": "note", "confidence": 0.0},
	HasFallback:   true,
}
