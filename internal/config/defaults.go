package config

// DefaultLogLevel is the default log level.
const DefaultLogLevel = "info"

// DefaultDataDir is the default data directory (before tilde expansion).
const DefaultDataDir = "~/.doughub-engine"

// DefaultConfigFilename is the name of the config file.
const DefaultConfigFilename = "engine.toml"

// DefaultMaxPromptTokens is the default ceiling on prompt size. Inputs that
// exceed it are truncated before prompt construction.
const DefaultMaxPromptTokens = 6000

// DefaultProviderKind is the default provider selection mode.
const DefaultProviderKind = "auto"

// DefaultRemoteKind is the provider kind used when auto-detection finds no
// local backend and no explicit kind is configured.
const DefaultRemoteKind = "openai"

// DefaultProbeTimeoutMs is the auto-detection probe timeout in milliseconds.
const DefaultProbeTimeoutMs = 500

// DefaultHealthTimeoutMs is the supervisor health probe timeout in milliseconds.
const DefaultHealthTimeoutMs = 1500

// DefaultStartupRetries is the number of readiness polls after spawning the
// local backend before the supervisor reports failure.
const DefaultStartupRetries = 20

// DefaultStartupIntervalMs is the fixed interval between readiness polls in
// milliseconds.
const DefaultStartupIntervalMs = 500

// DefaultRetryMaxAttempts is the maximum number of invocation attempts per task run.
const DefaultRetryMaxAttempts = 3

// DefaultRetryBaseDelayMs is the base delay for exponential backoff in milliseconds.
const DefaultRetryBaseDelayMs = 500

// DefaultRetryMaxDelayMs is the maximum delay for exponential backoff in milliseconds.
const DefaultRetryMaxDelayMs = 8000

// DefaultCacheMaxEntries is the defensive bound on the in-memory response cache.
const DefaultCacheMaxEntries = 1000

// DefaultAPIPort is the default port for the local engine API.
const DefaultAPIPort = 7821

// DefaultReadTimeout is the default HTTP server read timeout in seconds.
const DefaultReadTimeout = 10

// DefaultWriteTimeout is the default HTTP server write timeout in seconds.
// Set high to accommodate slow local model invocations.
const DefaultWriteTimeout = 300

// DefaultIdleTimeout is the default HTTP server idle timeout in seconds.
const DefaultIdleTimeout = 120

// ValidLogLevels lists the allowed log level values.
var ValidLogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal"}

// ValidProviderKinds lists the allowed provider.kind values.
var ValidProviderKinds = []string{"auto", "ollama", "openai"}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			LogLevel:       DefaultLogLevel,
			DataDir:        DefaultDataDir,
			MaxPromptToken: DefaultMaxPromptTokens,
		},
		Provider: ProviderConfig{
			Kind:              DefaultProviderKind,
			Endpoint:          "",
			APIKey:            "",
			KeyRef:            "",
			Model:             "",
			Timeout:           0, // 0 means "use the kind's preset timeout"
			DefaultRemoteKind: DefaultRemoteKind,
			ProbeTimeoutMs:    DefaultProbeTimeoutMs,
		},
		Local: LocalConfig{
			Autostart:         true,
			Executable:        "",
			HealthTimeoutMs:   DefaultHealthTimeoutMs,
			StartupRetries:    DefaultStartupRetries,
			StartupIntervalMs: DefaultStartupIntervalMs,
		},
		Resilience: ResilienceConfig{
			RetryMaxAttempts: DefaultRetryMaxAttempts,
			RetryBaseDelayMs: DefaultRetryBaseDelayMs,
			RetryMaxDelayMs:  DefaultRetryMaxDelayMs,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: DefaultCacheMaxEntries,
			Persist:    false,
		},
		API: APIConfig{
			Port:         DefaultAPIPort,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
			IdleTimeout:  DefaultIdleTimeout,
		},
		Diagnostics: DiagnosticsConfig{
			StatusFile: false,
		},
	}
}
