// Package engine runs declarative AI tasks against the active provider.
// It owns the whole invocation pipeline: cache lookup, local backend
// readiness, prompt budgeting, bounded retry, output normalization, and
// fallback. Everything below it (client, supervisor) tries exactly once.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/doughub/engine/internal/cache"
	"github.com/doughub/engine/internal/client"
	"github.com/doughub/engine/internal/provider"
	"github.com/doughub/engine/internal/task"
	"github.com/doughub/engine/internal/tokenizer"
)

// ErrBackendUnavailable is returned when the provider cannot be reached
// and the task declares no fallback.
var ErrBackendUnavailable = errors.New("backend unavailable")

// Source records where an outcome's value came from.
type Source string

const (
	// SourceModel marks a fresh completion from the provider.
	SourceModel Source = "model"
	// SourceCache marks a value served from the response cache.
	SourceCache Source = "cache"
	// SourceFallback marks a task's declared fallback value, used when
	// every invocation attempt failed.
	SourceFallback Source = "fallback"
)

// Outcome is the result of one task run. Value is always the normalized
// shape the task's Normalize produced, regardless of Source.
type Outcome struct {
	TaskID   string        `json:"task_id"`
	Value    any           `json:"value"`
	Source   Source        `json:"source"`
	Model    string        `json:"model,omitempty"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
}

// AcquireFunc yields the invoker to use for one run, together with the
// provider configuration it is bound to. The daemon wires this to the
// client manager; tests substitute mocks.
type AcquireFunc func() (client.Invoker, *provider.Config, error)

// StatusFunc reports the active provider's reachability.
type StatusFunc func(ctx context.Context) provider.Status

// ReadyChecker reports whether the local backend can serve requests,
// starting it if allowed. Remote providers never consult it.
type ReadyChecker interface {
	EnsureReady(ctx context.Context) bool
}

// Options configures an Engine.
type Options struct {
	Registry   *task.Registry
	Cache      *cache.Cache // nil disables caching entirely
	Acquire    AcquireFunc
	Supervisor ReadyChecker // nil skips the readiness gate
	Status     StatusFunc   // nil makes Status report an empty snapshot
	Retry      RetryPolicy

	// MaxPromptTokens truncates prompts that exceed the budget. Zero
	// disables truncation.
	MaxPromptTokens int
}

// Engine executes tasks from its registry.
type Engine struct {
	registry   *task.Registry
	cache      *cache.Cache
	acquire    AcquireFunc
	supervisor ReadyChecker
	status     StatusFunc

	// retry is behind a pointer so the daemon can swap the policy on
	// config hot-reload without racing in-flight runs.
	retry atomic.Pointer[RetryPolicy]

	tok             *tokenizer.Tokenizer
	maxPromptTokens int

	log   zerolog.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an Engine.
func New(opts Options, logger zerolog.Logger) *Engine {
	e := &Engine{
		registry:        opts.Registry,
		cache:           opts.Cache,
		acquire:         opts.Acquire,
		supervisor:      opts.Supervisor,
		status:          opts.Status,
		tok:             tokenizer.New(),
		maxPromptTokens: opts.MaxPromptTokens,
		log:             logger.With().Str("component", "engine").Logger(),
		sleep:           sleepWithContext,
	}
	e.retry.Store(&opts.Retry)
	return e
}

// SetRetryPolicy replaces the retry policy. In-flight runs keep the
// policy they started with.
func (e *Engine) SetRetryPolicy(p RetryPolicy) {
	e.retry.Store(&p)
}

// RunTask executes the task identified by id with the given input.
//
// The run proceeds through fixed stages: cache lookup, backend readiness
// for local providers, invocation with bounded retry, JSON extraction,
// normalization, and cache write. When every attempt fails, the task's
// fallback is returned if it declares one; otherwise the last error
// propagates. Context cancellation always propagates and never degrades
// to a fallback.
func (e *Engine) RunTask(ctx context.Context, id string, input task.Input) (*Outcome, error) {
	started := time.Now()
	runID := uuid.NewString()
	log := e.log.With().Str("run_id", runID).Str("task", id).Logger()

	spec, err := e.registry.Get(id)
	if err != nil {
		return nil, err
	}
	params := spec.Params()

	// Cache lookup. Tasks with ttl=0 never touch the cache.
	var key string
	if e.cache != nil && params.CacheTTL > 0 {
		key = cache.Key(id, input)
		if raw, ok := e.cache.Get(key); ok {
			var value any
			if err := json.Unmarshal(raw, &value); err == nil {
				log.Debug().Msg("cache hit")
				return &Outcome{
					TaskID:   id,
					Value:    value,
					Source:   SourceCache,
					Duration: time.Since(started),
				}, nil
			}
			// An undecodable entry is treated as a miss and rewritten
			// below.
		}
	}

	value, model, attempts, runErr := e.invoke(ctx, log, spec, input)
	if runErr != nil {
		if ctx.Err() != nil {
			return nil, runErr
		}
		fb, ok := spec.Fallback()
		if !ok {
			return nil, runErr
		}
		log.Warn().Err(runErr).Int("attempts", attempts).Msg("falling back")
		return &Outcome{
			TaskID:   id,
			Value:    spec.Normalize(fb),
			Source:   SourceFallback,
			Attempts: attempts,
			Duration: time.Since(started),
		}, nil
	}

	if key != "" {
		if raw, err := json.Marshal(value); err == nil {
			e.cache.Set(key, id, raw, params.CacheTTL)
		}
	}

	log.Debug().Int("attempts", attempts).Str("model", model).
		Dur("duration", time.Since(started)).Msg("task completed")

	return &Outcome{
		TaskID:   id,
		Value:    value,
		Source:   SourceModel,
		Model:    model,
		Attempts: attempts,
		Duration: time.Since(started),
	}, nil
}

// invoke performs the provider round trips for one run. It returns the
// normalized value, the serving model, and the number of attempts made.
func (e *Engine) invoke(ctx context.Context, log zerolog.Logger, spec task.Spec, input task.Input) (any, string, int, error) {
	inv, cfg, err := e.acquire()
	if err != nil {
		return nil, "", 0, fmt.Errorf("acquiring client: %w", err)
	}

	// Local backends are supervised; treat an unready backend like any
	// other transient failure so the fallback path applies uniformly.
	if cfg.Local && e.supervisor != nil {
		if !e.supervisor.EnsureReady(ctx) {
			return nil, "", 0, fmt.Errorf("%w: local backend not ready", ErrBackendUnavailable)
		}
	}

	params := spec.Params()
	prompt := spec.BuildPrompt(input)
	if e.maxPromptTokens > 0 {
		prompt = e.tok.Truncate(cfg.Model, prompt, e.maxPromptTokens)
	}

	req := client.Request{
		Prompt:      prompt,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		Timeout:     params.Timeout,
	}

	policy := *e.retry.Load()

	var lastErr error
	attempts := 0
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt-1, policy.BaseDelay, policy.MaxDelay)
			if err := e.sleep(ctx, delay); err != nil {
				return nil, "", attempts, err
			}
		}
		attempts++

		resp, err := inv.Complete(ctx, req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, "", attempts, ctx.Err()
			}
			log.Debug().Err(err).Int("attempt", attempts).Msg("invocation failed")
			continue
		}

		parsed, err := parseModelJSON(resp.Content)
		if err != nil {
			// Malformed output is retried like a transport failure; a
			// second completion usually honours the format.
			lastErr = err
			log.Debug().Err(err).Int("attempt", attempts).Msg("unparsable completion")
			continue
		}

		return spec.Normalize(parsed), resp.Model, attempts, nil
	}

	return nil, "", attempts, fmt.Errorf("task %s failed after %d attempts: %w", spec.ID(), attempts, lastErr)
}

// BatchResult pairs a task run request with its outcome.
type BatchResult struct {
	Index   int
	Outcome *Outcome
	Err     error
}

// BatchRequest names one task run inside a batch.
type BatchRequest struct {
	TaskID string
	Input  task.Input
}

// RunTasks executes a batch of task runs with bounded concurrency and
// returns per-run results in request order. Individual failures are
// recorded in their result; the batch itself only fails on context
// cancellation.
func (e *Engine) RunTasks(ctx context.Context, reqs []BatchRequest, concurrency int) ([]BatchResult, error) {
	if concurrency <= 0 {
		concurrency = 4
	}

	results := make([]BatchResult, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, r := range reqs {
		g.Go(func() error {
			out, err := e.RunTask(ctx, r.TaskID, r.Input)
			results[i] = BatchResult{Index: i, Outcome: out, Err: err}
			if err != nil && ctx.Err() != nil {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Tasks returns metadata for every registered task.
func (e *Engine) Tasks() []task.Info {
	return e.registry.List()
}

// Status reports the active provider's reachability snapshot.
func (e *Engine) Status(ctx context.Context) provider.Status {
	if e.status == nil {
		return provider.Status{CheckedAt: time.Now()}
	}
	return e.status(ctx)
}

// ClearCache drops every cached response.
func (e *Engine) ClearCache() {
	if e.cache != nil {
		e.cache.Clear()
	}
}
