// Package supervisor keeps the locally hosted inference backend alive.
// It discovers the executable, health-checks the REST surface, spawns the
// process detached when absent, and polls for readiness within a bounded
// retry budget. All outcomes are reported as booleans; the supervisor
// never panics and never returns errors to the task path.
package supervisor

import (
	"context"
	"net/http"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State is the supervisor's view of the managed backend.
type State int

const (
	// StateUnknown means no probe has run since creation or Reset.
	StateUnknown State = iota
	// StateChecking means a health probe is in flight.
	StateChecking
	// StateStarting means the probe failed and a spawn was issued.
	StateStarting
	// StateRunning means the backend answered a health probe.
	StateRunning
	// StateFailed means the startup retry budget was exhausted.
	StateFailed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateChecking:
		return "checking"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// Options configures a Supervisor.
type Options struct {
	// Endpoint is the backend base URL; liveness is GET {Endpoint}/api/tags.
	Endpoint string
	// Executable overrides discovery when non-empty.
	Executable string
	// Autostart controls whether a failed probe triggers a spawn.
	Autostart bool
	// HealthTimeout bounds each individual health probe.
	HealthTimeout time.Duration
	// StartupRetries is the number of readiness polls after spawning.
	StartupRetries int
	// StartupInterval is the fixed delay between readiness polls.
	StartupInterval time.Duration
}

// Supervisor owns the managed backend process. The managed process
// reference is mutated only by the supervisor itself, never by task
// invocations.
type Supervisor struct {
	mu    sync.Mutex
	state State

	opts       Options
	httpClient *http.Client
	logger     zerolog.Logger

	// spawned guards the at-most-once-per-process-lifetime spawn.
	spawned bool
	cmd     *exec.Cmd

	// sleep is injectable so tests can simulate elapsed time.
	sleep func(ctx context.Context, d time.Duration) error
	// start is injectable so tests can fake the spawn.
	start func() error
}

// New creates a Supervisor. Zero-valued options fall back to conservative
// defaults.
func New(opts Options, logger zerolog.Logger) *Supervisor {
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = 1500 * time.Millisecond
	}
	if opts.StartupRetries <= 0 {
		opts.StartupRetries = 20
	}
	if opts.StartupInterval <= 0 {
		opts.StartupInterval = 500 * time.Millisecond
	}

	s := &Supervisor{
		state:      StateUnknown,
		opts:       opts,
		httpClient: &http.Client{},
		logger:     logger.With().Str("component", "supervisor").Logger(),
		sleep:      sleepWithContext,
	}
	s.start = s.spawn
	return s
}

// State returns the current supervisor state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reset returns the supervisor to StateUnknown. Used by diagnostics and
// tests; it does not touch the managed process.
func (s *Supervisor) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateUnknown
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// EnsureReady reports whether the backend is reachable, spawning it if
// necessary. It returns true without spawning when the first probe
// succeeds; true after spawning when a later probe succeeds within the
// retry budget; false once the budget is exhausted. It never returns an
// error: spawn failures are treated identically to probe failures.
func (s *Supervisor) EnsureReady(ctx context.Context) bool {
	s.setState(StateChecking)

	if s.healthy(ctx) {
		s.setState(StateRunning)
		return true
	}

	if !s.opts.Autostart {
		s.setState(StateFailed)
		return false
	}

	s.setState(StateStarting)

	s.mu.Lock()
	alreadySpawned := s.spawned
	s.spawned = true
	s.mu.Unlock()

	if !alreadySpawned {
		if err := s.start(); err != nil {
			// Executable missing or permission denied: keep polling anyway,
			// another agent may bring the backend up.
			s.logger.Warn().Err(err).Msg("backend spawn failed")
		} else {
			s.logger.Info().Str("endpoint", s.opts.Endpoint).Msg("backend spawned")
		}
	}

	for i := 0; i < s.opts.StartupRetries; i++ {
		if err := s.sleep(ctx, s.opts.StartupInterval); err != nil {
			s.setState(StateFailed)
			return false
		}
		if s.healthy(ctx) {
			s.setState(StateRunning)
			return true
		}
	}

	s.logger.Warn().
		Int("retries", s.opts.StartupRetries).
		Dur("interval", s.opts.StartupInterval).
		Msg("backend never became ready")
	s.setState(StateFailed)
	return false
}

// healthy performs a single liveness probe against the listing endpoint.
func (s *Supervisor) healthy(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, s.opts.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, s.opts.Endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// spawn launches the backend detached in its own process group so that
// Terminate can reap it together with any descendants.
func (s *Supervisor) spawn() error {
	path := FindExecutable(s.opts.Executable)

	cmd := exec.Command(path, "serve")
	configureDetached(cmd)

	if err := cmd.Start(); err != nil {
		return err
	}

	s.mu.Lock()
	s.cmd = cmd
	s.mu.Unlock()

	// Reap the child when it exits on its own so it never zombifies.
	go func() { _ = cmd.Wait() }()

	return nil
}

// Terminate kills the spawned backend and its descendants. It is a no-op
// when the supervisor never spawned anything.
func (s *Supervisor) Terminate() {
	s.mu.Lock()
	cmd := s.cmd
	s.cmd = nil
	s.state = StateUnknown
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}

	if err := killProcessTree(cmd.Process); err != nil {
		s.logger.Warn().Err(err).Int("pid", cmd.Process.Pid).Msg("failed to terminate backend process tree")
		return
	}
	s.logger.Info().Int("pid", cmd.Process.Pid).Msg("backend terminated")
}

// sleepWithContext sleeps for the given duration, returning early if the
// context is cancelled. Returns ctx.Err() if cancelled, nil otherwise.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
