// Package catalog declares the app's AI task specifications. Each task is
// a task.Def literal: identity, model parameters, a pure prompt builder,
// a total normalizer, and (usually) a fallback shown when no backend can
// be reached.
package catalog

import "github.com/doughub/engine/internal/task"

// New returns a registry populated with every built-in task.
func New() *task.Registry {
	r := task.NewRegistry()

	r.MustRegister(extractConcepts)
	r.MustRegister(summarizeNote)
	r.MustRegister(generateTitle)
	r.MustRegister(suggestTags)
	r.MustRegister(generateFlashcards)
	r.MustRegister(relatedTopics)
	r.MustRegister(simplifyText)
	r.MustRegister(answerQuestion)
	r.MustRegister(classifySource)
	r.MustRegister(extractActionItems)

	return r
}
