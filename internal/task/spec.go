// Package task defines the declarative task model: each AI-assisted
// feature of the app is a Spec pairing a prompt builder with a total
// normalizer and an optional fallback. Concurrency, retry, and caching
// live in the engine, so specs stay pure data plus pure functions.
package task

import "time"

// Input is the serialisable context a task is invoked with. Callers must
// use stable, JSON-serialisable values so cache keys are deterministic.
type Input map[string]any

// Params holds the model parameters for one task.
type Params struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// CacheTTL of zero means "do not cache": for tasks whose answer is
	// sensitive to volatile per-call context.
	CacheTTL time.Duration
}

// Spec is a declaratively specified unit of work.
//
// BuildPrompt and Normalize must be pure. Normalize is total by contract:
// it accepts nil, partial, or malformed parsed input and always returns a
// well-formed result without panicking.
type Spec interface {
	ID() string
	Name() string
	Description() string
	Params() Params
	BuildPrompt(input Input) string
	Normalize(parsed any) any
	// Fallback returns the value used when invocation fails after
	// retries. ok=false means failure propagates to the caller instead.
	Fallback() (any, bool)
}

// Def is a data-driven Spec implementation. The catalog declares each
// task as one Def literal.
type Def struct {
	TaskID   string
	TaskName string
	TaskDesc string

	ModelParams Params

	Prompt func(input Input) string
	Norm   func(parsed any) any

	FallbackValue any
	HasFallback   bool
}

var _ Spec = (*Def)(nil)

func (d *Def) ID() string          { return d.TaskID }
func (d *Def) Name() string        { return d.TaskName }
func (d *Def) Description() string { return d.TaskDesc }
func (d *Def) Params() Params      { return d.ModelParams }

func (d *Def) BuildPrompt(input Input) string {
	if d.Prompt == nil {
		return ""
	}
	return d.Prompt(input)
}

func (d *Def) Normalize(parsed any) any {
	if d.Norm == nil {
		return parsed
	}
	return d.Norm(parsed)
}

func (d *Def) Fallback() (any, bool) {
	if !d.HasFallback {
		return nil, false
	}
	return d.FallbackValue, true
}
