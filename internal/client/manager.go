package client

import (
	"context"
	"sync"

	"github.com/doughub/engine/internal/provider"
)

// Invoker is the completion interface consumed by the task runner.
// *Client implements it; tests substitute mocks.
type Invoker interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Manager lazily constructs and caches the single outbound client bound
// to the active provider configuration.
type Manager struct {
	mu      sync.Mutex
	resolve func() (*provider.Config, error)
	client  *Client
}

// NewManager creates a Manager. resolve is called on first Get to produce
// the provider config the client binds to.
func NewManager(resolve func() (*provider.Config, error)) *Manager {
	return &Manager{resolve: resolve}
}

// Get returns the singleton client, constructing it on first call.
func (m *Manager) Get() (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		return m.client, nil
	}

	cfg, err := m.resolve()
	if err != nil {
		return nil, err
	}
	m.client = New(cfg)
	return m.client, nil
}

// Reinitialize discards the current client and binds a new one to cfg.
// Used when configuration changes at runtime.
func (m *Manager) Reinitialize(cfg *provider.Config) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.client = New(cfg)
	return m.client
}

// Current returns the live client without constructing one, or nil if no
// client has been built yet.
func (m *Manager) Current() *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}
