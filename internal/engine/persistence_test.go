package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/doughub/engine/internal/cache"
	"github.com/doughub/engine/internal/client"
	"github.com/doughub/engine/internal/provider"
	"github.com/doughub/engine/internal/task"
	"github.com/doughub/engine/internal/testutil"
)

// Cached outcomes written through a store-backed cache must survive an
// engine restart: a second engine over the same store serves the entry
// without invoking the provider.
func TestRunTaskCacheSurvivesRestart(t *testing.T) {
	st := testutil.NewTestStore(t)
	spec := testTask(time.Hour, true)

	buildEngine := func(inv client.Invoker) *Engine {
		reg := task.NewRegistry()
		reg.MustRegister(spec)
		c, err := cache.New(10, st)
		if err != nil {
			t.Fatal(err)
		}
		e := New(Options{
			Registry: reg,
			Cache:    c,
			Acquire: func() (client.Invoker, *provider.Config, error) {
				return inv, remoteCfg, nil
			},
			Retry: RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		}, zerolog.Nop())
		e.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
		return e
	}

	inv1 := &fakeInvoker{content: `{"result":"persisted"}`}
	first := buildEngine(inv1)
	out, err := first.RunTask(context.Background(), "echo", task.Input{"text": "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Source != SourceModel {
		t.Fatalf("first run Source = %q", out.Source)
	}

	inv2 := &fakeInvoker{content: `{"result":"fresh"}`}
	second := buildEngine(inv2)
	out, err = second.RunTask(context.Background(), "echo", task.Input{"text": "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if out.Source != SourceCache {
		t.Errorf("second run Source = %q, want cache", out.Source)
	}
	if v := out.Value.(map[string]any)["result"]; v != "persisted" {
		t.Errorf("result = %v, want value from the first run", v)
	}
	if inv2.calls.Load() != 0 {
		t.Errorf("second invoker called %d times, want 0", inv2.calls.Load())
	}
}
