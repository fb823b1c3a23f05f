package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestResolve_ExplicitKindMergesOverrides(t *testing.T) {
	r := NewResolver()

	cfg, err := r.Resolve(context.Background(), ResolveOptions{
		Kind: KindOpenAI,
		Overrides: Overrides{
			Endpoint: "https://proxy.example.com",
			APIKey:   "sk-abc",
		},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if cfg.Kind != KindOpenAI {
		t.Errorf("Kind: got %q", cfg.Kind)
	}
	if cfg.Endpoint != "https://proxy.example.com" {
		t.Errorf("Endpoint override lost: got %q", cfg.Endpoint)
	}
	if cfg.APIKey != "sk-abc" {
		t.Errorf("APIKey override lost")
	}
	// Absent overrides keep the preset defaults.
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("Model: got %q, want preset default", cfg.Model)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout: got %v, want preset default", cfg.Timeout)
	}
	if cfg.Local {
		t.Error("openai kind must not be marked local")
	}
}

func TestResolve_PresetDefaultsUntouched(t *testing.T) {
	r := NewResolver()

	cfg, err := r.Resolve(context.Background(), ResolveOptions{Kind: KindOllama})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Endpoint != "http://127.0.0.1:11434" {
		t.Errorf("Endpoint: got %q", cfg.Endpoint)
	}
	if cfg.Model != "llama3.1" {
		t.Errorf("Model: got %q", cfg.Model)
	}
	if !cfg.Local {
		t.Error("ollama kind must be marked local")
	}
	if cfg.APIKey != "" {
		t.Errorf("local preset should carry no credential, got %q", cfg.APIKey)
	}
}

func TestResolve_AutoDetectPrefersLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	r := NewResolver()
	r.SetLocalEndpoint(srv.URL)

	// A configured remote default must not beat a healthy local backend.
	cfg, err := r.Resolve(context.Background(), ResolveOptions{
		DefaultRemote: KindOpenAI,
		ProbeTimeout:  500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Kind != KindOllama {
		t.Errorf("auto-detect should prefer local, got %q", cfg.Kind)
	}
}

func TestResolve_AutoDetectFallsBackToRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewResolver()
	r.SetLocalEndpoint(srv.URL)

	cfg, err := r.Resolve(context.Background(), ResolveOptions{
		DefaultRemote: KindOpenAI,
		ProbeTimeout:  200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Kind != KindOpenAI {
		t.Errorf("expected configured remote fallback, got %q", cfg.Kind)
	}
}

func TestResolve_AutoDetectDefaultsWithoutRemoteKind(t *testing.T) {
	r := NewResolver()
	r.SetLocalEndpoint("http://127.0.0.1:1") // nothing listening

	cfg, err := r.Resolve(context.Background(), ResolveOptions{
		ProbeTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Kind != KindOpenAI {
		t.Errorf("expected final openai default, got %q", cfg.Kind)
	}
}

func TestResolve_UnknownKind(t *testing.T) {
	r := NewResolver()
	if _, err := r.Resolve(context.Background(), ResolveOptions{Kind: Kind("claude")}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestStatus_Reachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	r := NewResolver()
	cfg := &Config{Kind: KindOllama, Endpoint: srv.URL, Model: "llama3.1", Local: true}

	st := r.Status(context.Background(), cfg, 500*time.Millisecond)
	if !st.Reachable {
		t.Error("expected reachable status")
	}
	if st.Kind != KindOllama || !st.Local {
		t.Errorf("snapshot fields wrong: %+v", st)
	}
}
