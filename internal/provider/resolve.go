package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Overrides are the per-field configuration overrides merged over the
// selected kind's preset. Empty fields leave the preset value untouched.
type Overrides struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// ResolveOptions controls provider resolution.
type ResolveOptions struct {
	// Kind selects a backend explicitly. Empty means auto-detect:
	// probe the local backend first, then fall back to DefaultRemote.
	Kind Kind
	// DefaultRemote is the kind selected when auto-detection finds no
	// local backend. Kept configurable rather than hard-coded.
	DefaultRemote Kind
	// ProbeTimeout bounds the auto-detection health probe.
	ProbeTimeout time.Duration
	// Overrides merge over the selected preset.
	Overrides Overrides
}

// Resolver resolves the active provider configuration. The zero value is
// not usable; construct with NewResolver.
type Resolver struct {
	httpClient *http.Client
	// localEndpoint is the probe target; overridable for tests.
	localEndpoint string
}

// NewResolver creates a Resolver probing the catalog's local endpoint.
func NewResolver() *Resolver {
	return &Resolver{
		httpClient:    &http.Client{},
		localEndpoint: LocalEndpoint(),
	}
}

// SetLocalEndpoint redirects the auto-detection probe. Used by tests to
// point at an httptest server.
func (r *Resolver) SetLocalEndpoint(endpoint string) {
	r.localEndpoint = endpoint
}

// Resolve selects a provider kind and returns its merged Config.
//
// Selection order when no explicit kind is given: (a) probe the local
// backend with a short timeout and prefer it on success, since local
// serving costs nothing; (b) otherwise use opts.DefaultRemote; (c) if that is also
// empty, fall back to openai. Probe errors are swallowed and treated as
// "local not available".
func (r *Resolver) Resolve(ctx context.Context, opts ResolveOptions) (*Config, error) {
	kind := opts.Kind

	if kind == "" {
		probeTimeout := opts.ProbeTimeout
		if probeTimeout <= 0 {
			probeTimeout = 500 * time.Millisecond
		}
		if r.probeLocal(ctx, probeTimeout) {
			kind = KindOllama
		} else if opts.DefaultRemote != "" {
			kind = opts.DefaultRemote
		} else {
			kind = KindOpenAI
		}
	}

	p, ok := presets[kind]
	if !ok {
		return nil, fmt.Errorf("provider: unknown kind %q", kind)
	}

	cfg := &Config{
		Kind:     kind,
		Endpoint: p.endpoint,
		Model:    p.model,
		Timeout:  p.timeout,
		Local:    p.local,
	}

	// Merge overrides; present fields win, absent ones keep the preset.
	if opts.Overrides.Endpoint != "" {
		cfg.Endpoint = opts.Overrides.Endpoint
	}
	if opts.Overrides.APIKey != "" {
		cfg.APIKey = opts.Overrides.APIKey
	}
	if opts.Overrides.Model != "" {
		cfg.Model = opts.Overrides.Model
	}
	if opts.Overrides.Timeout > 0 {
		cfg.Timeout = opts.Overrides.Timeout
	}

	return cfg, nil
}

// Status probes the given config's endpoint and returns a snapshot.
func (r *Resolver) Status(ctx context.Context, cfg *Config, probeTimeout time.Duration) Status {
	if probeTimeout <= 0 {
		probeTimeout = 500 * time.Millisecond
	}
	return Status{
		Kind:      cfg.Kind,
		Model:     cfg.Model,
		Local:     cfg.Local,
		Reachable: r.probe(ctx, healthURL(cfg), probeTimeout),
		CheckedAt: time.Now().UTC(),
	}
}

// probeLocal checks the local backend's listing endpoint.
func (r *Resolver) probeLocal(ctx context.Context, timeout time.Duration) bool {
	return r.probe(ctx, r.localEndpoint+"/api/tags", timeout)
}

// probe performs a single GET against url, treating any non-2xx or network
// error as "not available". Only genuine timeouts are distinguished, and
// then only for logging.
func (r *Resolver) probe(ctx context.Context, url string, timeout time.Duration) bool {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Debug().Str("url", url).Msg("provider probe timed out")
		}
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// healthURL returns the liveness URL for a config. The local backend
// exposes /api/tags; remote dialects answer on their model listing.
func healthURL(cfg *Config) string {
	if cfg.Local {
		return cfg.Endpoint + "/api/tags"
	}
	return cfg.Endpoint + "/v1/models"
}
