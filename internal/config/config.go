package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// configPtr holds the current config for thread-safe access.
var configPtr atomic.Pointer[Config]

// loadedConfigFile stores the path of the config file used by the last successful Load.
var loadedConfigFile atomic.Value

// Get returns the current Config. It is safe for concurrent use.
// If no config has been loaded yet, it returns the default config.
func Get() *Config {
	if c := configPtr.Load(); c != nil {
		return c
	}
	d := DefaultConfig()
	configPtr.Store(d)
	return d
}

// set stores a new Config atomically.
func set(cfg *Config) {
	configPtr.Store(cfg)
}

// Config is the top-level configuration for the doughub AI engine.
type Config struct {
	Engine      EngineConfig      `mapstructure:"engine"      toml:"engine"`
	Provider    ProviderConfig    `mapstructure:"provider"    toml:"provider"`
	Local       LocalConfig       `mapstructure:"local"       toml:"local"`
	Resilience  ResilienceConfig  `mapstructure:"resilience"  toml:"resilience"`
	Cache       CacheConfig       `mapstructure:"cache"       toml:"cache"`
	API         APIConfig         `mapstructure:"api"         toml:"api"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics" toml:"diagnostics"`
}

// EngineConfig holds the core engine settings.
type EngineConfig struct {
	LogLevel       string `mapstructure:"log_level"        toml:"log_level"`
	DataDir        string `mapstructure:"data_dir"         toml:"data_dir"`
	MaxPromptToken int    `mapstructure:"max_prompt_tokens" toml:"max_prompt_tokens"`
}

// ProviderConfig selects and overrides the inference backend.
// Kind "auto" means probe the local backend first and fall back to the
// configured default remote kind. The endpoint, api_key, and model fields
// override the selected kind's preset only when non-empty.
type ProviderConfig struct {
	Kind              string `mapstructure:"kind"                toml:"kind"`
	Endpoint          string `mapstructure:"endpoint"            toml:"endpoint"`
	APIKey            string `mapstructure:"api_key"             toml:"api_key"`
	KeyRef            string `mapstructure:"key_ref"             toml:"key_ref"`
	Model             string `mapstructure:"model"               toml:"model"`
	Timeout           int    `mapstructure:"timeout"             toml:"timeout"` // seconds
	DefaultRemoteKind string `mapstructure:"default_remote_kind" toml:"default_remote_kind"`
	ProbeTimeoutMs    int    `mapstructure:"probe_timeout_ms"    toml:"probe_timeout_ms"`
}

// TimeoutDuration returns the provider request timeout as a time.Duration.
func (p ProviderConfig) TimeoutDuration() time.Duration {
	if p.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.Timeout) * time.Second
}

// ProbeTimeout returns the auto-detection probe timeout as a time.Duration.
func (p ProviderConfig) ProbeTimeout() time.Duration {
	if p.ProbeTimeoutMs <= 0 {
		return time.Duration(DefaultProbeTimeoutMs) * time.Millisecond
	}
	return time.Duration(p.ProbeTimeoutMs) * time.Millisecond
}

// LocalConfig controls supervision of the locally hosted backend.
type LocalConfig struct {
	Autostart         bool   `mapstructure:"autostart"            toml:"autostart"`
	Executable        string `mapstructure:"executable"           toml:"executable"`
	HealthTimeoutMs   int    `mapstructure:"health_timeout_ms"    toml:"health_timeout_ms"`
	StartupRetries    int    `mapstructure:"startup_retries"      toml:"startup_retries"`
	StartupIntervalMs int    `mapstructure:"startup_interval_ms"  toml:"startup_interval_ms"`
}

// HealthTimeout returns the health probe timeout as a time.Duration.
func (l LocalConfig) HealthTimeout() time.Duration {
	if l.HealthTimeoutMs <= 0 {
		return time.Duration(DefaultHealthTimeoutMs) * time.Millisecond
	}
	return time.Duration(l.HealthTimeoutMs) * time.Millisecond
}

// StartupInterval returns the readiness poll interval as a time.Duration.
func (l LocalConfig) StartupInterval() time.Duration {
	if l.StartupIntervalMs <= 0 {
		return time.Duration(DefaultStartupIntervalMs) * time.Millisecond
	}
	return time.Duration(l.StartupIntervalMs) * time.Millisecond
}

// ResilienceConfig controls the task runner's retry policy.
type ResilienceConfig struct {
	RetryMaxAttempts int `mapstructure:"retry_max_attempts"  toml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" toml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms"  toml:"retry_max_delay_ms"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Enabled    bool `mapstructure:"enabled"     toml:"enabled"`
	MaxEntries int  `mapstructure:"max_entries" toml:"max_entries"`
	Persist    bool `mapstructure:"persist"     toml:"persist"`
}

// APIConfig controls the local HTTP surface consumed by the desktop shell.
type APIConfig struct {
	Port         int `mapstructure:"port"          toml:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"  toml:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout" toml:"write_timeout"`
	IdleTimeout  int `mapstructure:"idle_timeout"  toml:"idle_timeout"`
}

// DiagnosticsConfig controls the dev-mode provider status mirror file.
type DiagnosticsConfig struct {
	StatusFile bool `mapstructure:"status_file" toml:"status_file"`
}

// Load reads configuration from disk with the following precedence:
//  1. Environment variables (DOUGHUB_ prefix, _ as separator)
//  2. The file at explicitPath if non-empty
//  3. ~/.doughub-engine/engine.toml
//  4. ./engine.toml
//  5. Built-in defaults
//
// The loaded config is validated and stored in the global atomic pointer.
func Load(explicitPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	// Register all defaults so viper knows every key for env binding.
	setViperDefaults(v)

	// Environment variable overlay: DOUGHUB_PROVIDER_KIND etc.
	v.SetEnvPrefix("DOUGHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".doughub-engine"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("engine")
	}

	if err := v.ReadInConfig(); err != nil {
		// If no config file exists we still proceed with defaults + env.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if cf := v.ConfigFileUsed(); cf != "" {
		loadedConfigFile.Store(cf)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.Engine.DataDir = expandHome(cfg.Engine.DataDir)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	set(cfg)
	return cfg, nil
}

// InitConfig writes the default configuration file to
// ~/.doughub-engine/engine.toml. If the file already exists it is not
// overwritten.
func InitConfig() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("determining home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".doughub-engine")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(dir, DefaultConfigFilename)
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Config already exists: %s\n", path)
		return nil
	}

	cfg := DefaultConfig()
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Config written to %s\n", path)
	return nil
}

// ExportConfig writes the current config to the given path in TOML format.
func ExportConfig(path string) error {
	cfg := Get()
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ConfigFilePath returns the path of the config file that was loaded, or
// empty if no file was found.
func ConfigFilePath() string {
	if v, ok := loadedConfigFile.Load().(string); ok {
		return v
	}
	return ""
}

// setViperDefaults registers every known key with viper so that env var
// binding works for all fields even when no config file is present.
func setViperDefaults(v *viper.Viper) {
	d := DefaultConfig()

	// Engine
	v.SetDefault("engine.log_level", d.Engine.LogLevel)
	v.SetDefault("engine.data_dir", d.Engine.DataDir)
	v.SetDefault("engine.max_prompt_tokens", d.Engine.MaxPromptToken)

	// Provider
	v.SetDefault("provider.kind", d.Provider.Kind)
	v.SetDefault("provider.endpoint", d.Provider.Endpoint)
	v.SetDefault("provider.api_key", d.Provider.APIKey)
	v.SetDefault("provider.key_ref", d.Provider.KeyRef)
	v.SetDefault("provider.model", d.Provider.Model)
	v.SetDefault("provider.timeout", d.Provider.Timeout)
	v.SetDefault("provider.default_remote_kind", d.Provider.DefaultRemoteKind)
	v.SetDefault("provider.probe_timeout_ms", d.Provider.ProbeTimeoutMs)

	// Local
	v.SetDefault("local.autostart", d.Local.Autostart)
	v.SetDefault("local.executable", d.Local.Executable)
	v.SetDefault("local.health_timeout_ms", d.Local.HealthTimeoutMs)
	v.SetDefault("local.startup_retries", d.Local.StartupRetries)
	v.SetDefault("local.startup_interval_ms", d.Local.StartupIntervalMs)

	// Resilience
	v.SetDefault("resilience.retry_max_attempts", d.Resilience.RetryMaxAttempts)
	v.SetDefault("resilience.retry_base_delay_ms", d.Resilience.RetryBaseDelayMs)
	v.SetDefault("resilience.retry_max_delay_ms", d.Resilience.RetryMaxDelayMs)

	// Cache
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)
	v.SetDefault("cache.persist", d.Cache.Persist)

	// API
	v.SetDefault("api.port", d.API.Port)
	v.SetDefault("api.read_timeout", d.API.ReadTimeout)
	v.SetDefault("api.write_timeout", d.API.WriteTimeout)
	v.SetDefault("api.idle_timeout", d.API.IdleTimeout)

	// Diagnostics
	v.SetDefault("diagnostics.status_file", d.Diagnostics.StatusFile)
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
