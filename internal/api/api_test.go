package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/doughub/engine/internal/cache"
	"github.com/doughub/engine/internal/client"
	"github.com/doughub/engine/internal/config"
	"github.com/doughub/engine/internal/engine"
	"github.com/doughub/engine/internal/provider"
	"github.com/doughub/engine/internal/supervisor"
	"github.com/doughub/engine/internal/task"
)

type stubInvoker struct {
	content string
	err     error
	calls   atomic.Int32
}

func (s *stubInvoker) Complete(ctx context.Context, req client.Request) (*client.Response, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &client.Response{Content: s.content, Model: "test-model"}, nil
}

func newTestServer(t *testing.T, inv client.Invoker) *Server {
	t.Helper()

	reg := task.NewRegistry()
	reg.MustRegister(&task.Def{
		TaskID:   "echo",
		TaskName: "Echo",
		TaskDesc: "test task",
		ModelParams: task.Params{
			Timeout:  time.Second,
			CacheTTL: time.Hour,
		},
		Prompt: func(in task.Input) string { return "echo" },
		Norm: func(parsed any) any {
			m := task.Obj(parsed)
			return map[string]any{"result": task.Str(m, "result", "")}
		},
		FallbackValue: map[string]any{"result": "fallback"},
		HasFallback:   true,
	})

	c, err := cache.New(10, nil)
	if err != nil {
		t.Fatal(err)
	}

	eng := engine.New(engine.Options{
		Registry: reg,
		Cache:    c,
		Acquire: func() (client.Invoker, *provider.Config, error) {
			return inv, &provider.Config{Kind: provider.KindOpenAI, Model: "m"}, nil
		},
		Retry: engine.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}, zerolog.Nop())

	status := func(ctx context.Context) provider.Status {
		return provider.Status{Kind: provider.KindOpenAI, Model: "m", Reachable: true}
	}
	state := func() supervisor.State { return supervisor.StateRunning }

	return NewServer(eng, config.APIConfig{Port: 0}, status, state, zerolog.Nop())
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &stubInvoker{content: `{"result":"ok"}`})

	rec := doRequest(t, s, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestListTasks(t *testing.T) {
	s := newTestServer(t, &stubInvoker{content: `{"result":"ok"}`})

	rec := doRequest(t, s, http.MethodGet, "/api/tasks", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Tasks []task.Info `json:"tasks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Tasks) != 1 || resp.Tasks[0].ID != "echo" {
		t.Errorf("tasks = %+v", resp.Tasks)
	}
}

func TestRunTask(t *testing.T) {
	s := newTestServer(t, &stubInvoker{content: `{"result":"hello"}`})

	rec := doRequest(t, s, http.MethodPost, "/api/tasks/echo", `{"input":{"text":"hi"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var out engine.Outcome
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Source != engine.SourceModel {
		t.Errorf("source = %q", out.Source)
	}
	if out.Value.(map[string]any)["result"] != "hello" {
		t.Errorf("value = %v", out.Value)
	}
}

func TestRunTaskUnknownID(t *testing.T) {
	s := newTestServer(t, &stubInvoker{content: `{}`})

	rec := doRequest(t, s, http.MethodPost, "/api/tasks/nope", `{"input":{}}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRunTaskInvalidBody(t *testing.T) {
	s := newTestServer(t, &stubInvoker{content: `{}`})

	rec := doRequest(t, s, http.MethodPost, "/api/tasks/echo", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRunTaskEmptyBodyAllowed(t *testing.T) {
	s := newTestServer(t, &stubInvoker{content: `{"result":"x"}`})

	rec := doRequest(t, s, http.MethodPost, "/api/tasks/echo", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestRunBatch(t *testing.T) {
	s := newTestServer(t, &stubInvoker{content: `{"result":"ok"}`})

	body := `{"runs":[{"task_id":"echo","input":{"text":"a"}},{"task_id":"nope"}]}`
	rec := doRequest(t, s, http.MethodPost, "/api/tasks", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Results []struct {
			Outcome *engine.Outcome `json:"outcome"`
			Error   string          `json:"error"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results", len(resp.Results))
	}
	if resp.Results[0].Outcome == nil || resp.Results[0].Error != "" {
		t.Errorf("results[0] = %+v", resp.Results[0])
	}
	if resp.Results[1].Error == "" {
		t.Error("results[1]: want error for unknown task")
	}
}

func TestRunBatchEmpty(t *testing.T) {
	s := newTestServer(t, &stubInvoker{})

	rec := doRequest(t, s, http.MethodPost, "/api/tasks", `{"runs":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	s := newTestServer(t, &stubInvoker{})

	rec := doRequest(t, s, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["backend"] != "running" {
		t.Errorf("backend = %v", resp["backend"])
	}
	prov, ok := resp["provider"].(map[string]any)
	if !ok || prov["kind"] != "openai" {
		t.Errorf("provider = %v", resp["provider"])
	}
}

func TestClearCache(t *testing.T) {
	inv := &stubInvoker{content: `{"result":"ok"}`}
	s := newTestServer(t, inv)

	// Warm the cache, clear it, run again: two invocations.
	doRequest(t, s, http.MethodPost, "/api/tasks/echo", `{"input":{"text":"a"}}`)
	rec := doRequest(t, s, http.MethodPost, "/api/cache/clear", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rec.Code)
	}
	doRequest(t, s, http.MethodPost, "/api/tasks/echo", `{"input":{"text":"a"}}`)

	if got := inv.calls.Load(); got != 2 {
		t.Errorf("invoker called %d times, want 2", got)
	}
}
