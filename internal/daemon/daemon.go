// Package daemon orchestrates the long-running engine process: logging,
// PID file, storage, provider resolution, the backend supervisor, and
// the HTTP API, plus lifecycle commands for the CLI.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/doughub/engine/internal/api"
	"github.com/doughub/engine/internal/cache"
	"github.com/doughub/engine/internal/client"
	"github.com/doughub/engine/internal/config"
	"github.com/doughub/engine/internal/engine"
	"github.com/doughub/engine/internal/provider"
	"github.com/doughub/engine/internal/store"
	"github.com/doughub/engine/internal/supervisor"
	"github.com/doughub/engine/internal/task/catalog"
	"github.com/doughub/engine/internal/vault"
	"github.com/doughub/engine/internal/version"
)

// Run is the main daemon orchestrator. It initialises all subsystems,
// starts the API server, and blocks until a shutdown signal is received.
func Run(cfg *config.Config, foreground bool) error {
	dataDir := expandHome(cfg.Engine.DataDir)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory %s: %w", dataDir, err)
	}

	logLevel := parseLogLevel(cfg.Engine.LogLevel)
	zerolog.SetGlobalLevel(logLevel)

	writers := []io.Writer{}

	// Always log to file.
	logPath := filepath.Join(dataDir, "doughub-engine.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", logPath, err)
	}
	defer logFile.Close()
	writers = append(writers, logFile)

	// If foreground, also write to stdout with console formatting.
	if foreground {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}

	multi := zerolog.MultiLevelWriter(writers...)
	log.Logger = zerolog.New(multi).With().Timestamp().Str("service", "doughub-engine").Logger()

	log.Info().
		Str("version", version.Version).
		Str("data_dir", dataDir).
		Bool("foreground", foreground).
		Msg("doughub-engine starting")

	if IsRunning(dataDir) {
		return fmt.Errorf("doughub-engine is already running (PID file exists at %s)", pidPath(dataDir))
	}

	// Persistent cache tier, only when configured.
	var cacheStore cache.Store
	var st *store.Store
	if cfg.Cache.Persist {
		dbPath := filepath.Join(dataDir, "engine.db")
		st, err = store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer st.Close()
		cacheStore = st
		log.Info().Str("db_path", dbPath).Msg("store opened")
	}

	var respCache *cache.Cache
	if cfg.Cache.Enabled {
		respCache, err = cache.New(cfg.Cache.MaxEntries, cacheStore)
		if err != nil {
			return fmt.Errorf("creating cache: %w", err)
		}
	}

	if err := WritePID(dataDir); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer func() {
		if err := RemovePID(dataDir); err != nil {
			log.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	log.Info().Int("pid", os.Getpid()).Msg("PID file written")

	// Config watcher for hot-reload of the log level.
	configFile := config.ConfigFilePath()
	var watcher *config.Watcher
	if configFile != "" {
		if _, statErr := os.Stat(configFile); statErr == nil {
			w, watchErr := config.Watch(configFile)
			if watchErr != nil {
				log.Warn().Err(watchErr).Msg("failed to start config watcher; continuing without hot-reload")
			} else {
				watcher = w
				defer watcher.Close()
				watcher.OnChange(func(old, newCfg *config.Config) {
					log.Info().Msg("configuration reloaded")
					zerolog.SetGlobalLevel(parseLogLevel(newCfg.Engine.LogLevel))
				})
				log.Info().Str("file", configFile).Msg("config watcher started")
			}
		}
	}

	// Provider resolution is lazy: the first task run pays for the
	// auto-detection probe, not startup.
	resolver := provider.NewResolver()
	v := vault.New()

	resolve := func() (*provider.Config, error) {
		return resolveProvider(context.Background(), resolver, v, config.Get())
	}
	manager := client.NewManager(resolve)

	status := func(ctx context.Context) provider.Status {
		pcfg, err := resolve()
		if err != nil {
			return provider.Status{CheckedAt: time.Now()}
		}
		return resolver.Status(ctx, pcfg, config.Get().Provider.ProbeTimeout())
	}

	// Supervisor for the locally hosted backend.
	localEndpoint := provider.LocalEndpoint()
	if cfg.Provider.Kind == "ollama" && cfg.Provider.Endpoint != "" {
		localEndpoint = cfg.Provider.Endpoint
	}
	sup := supervisor.New(supervisor.Options{
		Endpoint:        localEndpoint,
		Executable:      supervisor.FindExecutable(cfg.Local.Executable),
		Autostart:       cfg.Local.Autostart,
		HealthTimeout:   cfg.Local.HealthTimeout(),
		StartupRetries:  cfg.Local.StartupRetries,
		StartupInterval: cfg.Local.StartupInterval(),
	}, log.Logger)

	eng := engine.New(engine.Options{
		Registry: catalog.New(),
		Cache:    respCache,
		Acquire: func() (client.Invoker, *provider.Config, error) {
			c, err := manager.Get()
			if err != nil {
				return nil, nil, err
			}
			return c, c.Config(), nil
		},
		Supervisor:      sup,
		Status:          status,
		Retry:           engine.PolicyFromConfig(cfg.Resilience),
		MaxPromptTokens: cfg.Engine.MaxPromptToken,
	}, log.Logger)

	watcherRebind(watcher, manager, eng, resolve, dataDir)

	apiServer := api.NewServer(eng, cfg.API, eng.Status, sup.State, log.Logger)

	errCh := make(chan error, 1)
	go func() {
		if err := apiServer.Start(); err != nil {
			errCh <- err
		}
	}()

	// Background maintenance: purge expired cache entries, mirror the
	// provider status to disk when diagnostics ask for it.
	maintCtx, maintCancel := context.WithCancel(context.Background())
	defer maintCancel()
	maintDone := make(chan struct{})
	go func() {
		defer close(maintDone)
		if cfg.Diagnostics.StatusFile {
			// One write at startup so the file exists before the first tick.
			writeStatusFile(maintCtx, status, dataDir)
		}
		runMaintenance(maintCtx, respCache, status, dataDir, cfg.Diagnostics.StatusFile)
	}()

	log.Info().Int("api_port", cfg.API.Port).Msg("doughub-engine is ready")
	if foreground {
		fmt.Printf("\n  doughub-engine is running!\n")
		fmt.Printf("  API: http://127.0.0.1:%d\n\n", cfg.API.Port)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("fatal server error")
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Info().Msg("shutting down")

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("api server shutdown error")
	}

	// A backend we spawned is ours to reap; one the user started is not
	// touched because the supervisor never owned its process handle.
	sup.Terminate()

	maintCancel()
	<-maintDone

	log.Info().Msg("doughub-engine stopped")
	return nil
}

// resolveProvider builds the resolve options from live configuration,
// fetching the API key from the vault when the config names a key_ref.
func resolveProvider(ctx context.Context, r *provider.Resolver, v *vault.Vault, cfg *config.Config) (*provider.Config, error) {
	kind := provider.Kind(cfg.Provider.Kind)
	if kind == "auto" {
		kind = ""
	}

	apiKey := cfg.Provider.APIKey
	if apiKey == "" && cfg.Provider.KeyRef != "" {
		key, err := v.ResolveKeyRef(cfg.Provider.KeyRef)
		if err != nil {
			log.Warn().Err(err).Msg("failed to resolve key_ref; continuing without API key")
		} else {
			apiKey = key
		}
	}

	pcfg, err := r.Resolve(ctx, provider.ResolveOptions{
		Kind:          kind,
		DefaultRemote: provider.Kind(cfg.Provider.DefaultRemoteKind),
		ProbeTimeout:  cfg.Provider.ProbeTimeout(),
		Overrides: provider.Overrides{
			Endpoint: cfg.Provider.Endpoint,
			APIKey:   apiKey,
			Model:    cfg.Provider.Model,
			Timeout:  cfg.Provider.TimeoutDuration(),
		},
	})
	if err != nil {
		return nil, err
	}

	// Remote providers without a key still get a keychain lookup so a
	// stored credential works with zero config.
	if !pcfg.Local && pcfg.APIKey == "" {
		if key, err := v.Get(string(pcfg.Kind)); err == nil {
			pcfg.APIKey = key
		}
	}

	return pcfg, nil
}

// watcherRebind re-resolves the provider, rebinds the client, and picks
// up the new retry policy when the configuration file changes.
func watcherRebind(w *config.Watcher, m *client.Manager, eng *engine.Engine, resolve func() (*provider.Config, error), dataDir string) {
	if w == nil {
		return
	}
	w.OnChange(func(old, newCfg *config.Config) {
		eng.SetRetryPolicy(engine.PolicyFromConfig(newCfg.Resilience))

		pcfg, err := resolve()
		if err != nil {
			log.Warn().Err(err).Msg("provider re-resolution failed after config reload")
			return
		}
		m.Reinitialize(pcfg)
		log.Info().Str("kind", string(pcfg.Kind)).Str("model", pcfg.Model).Msg("client rebound after config reload")

		if newCfg.Diagnostics.StatusFile {
			writeStatusFile(context.Background(), eng.Status, dataDir)
		}
	})
}

// runMaintenance drives the periodic cache purge and the diagnostics
// status file.
func runMaintenance(ctx context.Context, c *cache.Cache, status api.StatusFunc, dataDir string, statusFile bool) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c != nil {
				c.Purge()
			}
			if statusFile {
				writeStatusFile(ctx, status, dataDir)
			}
		}
	}
}

// Stop reads the PID file and sends SIGTERM to the running daemon.
func Stop() error {
	dataDir := expandHome(config.Get().Engine.DataDir)

	pid, err := ReadPID(dataDir)
	if err != nil {
		return fmt.Errorf("doughub-engine does not appear to be running: %w", err)
	}

	if !isProcessAlive(pid) {
		if rmErr := RemovePID(dataDir); rmErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to remove stale PID file: %v\n", rmErr)
		}
		return fmt.Errorf("doughub-engine is not running (stale PID file removed)")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("sending SIGTERM to process %d: %w", pid, err)
	}

	fmt.Printf("Sent SIGTERM to doughub-engine (PID %d)\n", pid)

	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if !isProcessAlive(pid) {
			return nil
		}
	}

	return nil
}

// Status checks if the daemon is running and prints a summary.
func Status() error {
	cfg := config.Get()
	dataDir := expandHome(cfg.Engine.DataDir)

	if !IsRunning(dataDir) {
		fmt.Println("doughub-engine is not running")
		return nil
	}

	pid, _ := ReadPID(dataDir)
	fmt.Printf("doughub-engine is running (PID %d)\n", pid)

	statusURL := fmt.Sprintf("http://127.0.0.1:%d/api/status", cfg.API.Port)
	httpClient := &http.Client{Timeout: 3 * time.Second}

	resp, err := httpClient.Get(statusURL)
	if err != nil {
		fmt.Println("  (api unreachable)")
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	var report struct {
		Provider provider.Status `json:"provider"`
		Backend  string          `json:"backend"`
	}
	if err := json.Unmarshal(body, &report); err != nil {
		return nil
	}

	fmt.Printf("\n  Provider:  %s (%s)\n", report.Provider.Kind, report.Provider.Model)
	fmt.Printf("  Reachable: %v\n", report.Provider.Reachable)
	fmt.Printf("  Local:     %v\n", report.Provider.Local)
	fmt.Printf("  Backend:   %s\n", report.Backend)

	return nil
}

// parseLogLevel converts a string log level to a zerolog.Level.
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
