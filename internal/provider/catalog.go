package provider

import "time"

// Kind identifies a backend dialect.
type Kind string

const (
	// KindOllama is the locally hosted backend. It serves an
	// OpenAI-compatible completion surface under /v1 and a lightweight
	// model listing at /api/tags used for liveness.
	KindOllama Kind = "ollama"
	// KindOpenAI is the hosted OpenAI API.
	KindOpenAI Kind = "openai"
)

// Config identifies one resolved backend. Immutable once constructed;
// multiple configs may exist but only one is active per process.
type Config struct {
	Kind     Kind          `json:"kind"`
	Endpoint string        `json:"endpoint"`
	APIKey   string        `json:"-"`
	Model    string        `json:"model"`
	Timeout  time.Duration `json:"timeout"`
	Local    bool          `json:"local"`
}

// Status is an on-demand snapshot of the active provider. Never persisted
// by the engine itself; the daemon may mirror it to a diagnostic file.
type Status struct {
	Kind      Kind      `json:"kind"`
	Model     string    `json:"model"`
	Local     bool      `json:"local"`
	Reachable bool      `json:"reachable"`
	CheckedAt time.Time `json:"checked_at"`
}

// preset is the static catalog entry for one provider kind.
type preset struct {
	endpoint string
	model    string
	timeout  time.Duration
	local    bool
}

// presets is the static provider catalog. Environment and config overrides
// merge over these values, overrides winning.
var presets = map[Kind]preset{
	KindOllama: {
		endpoint: "http://127.0.0.1:11434",
		model:    "llama3.1",
		timeout:  60 * time.Second,
		local:    true,
	},
	KindOpenAI: {
		endpoint: "https://api.openai.com",
		model:    "gpt-4o-mini",
		timeout:  30 * time.Second,
		local:    false,
	},
}

// KnownKind reports whether k names a catalog entry.
func KnownKind(k Kind) bool {
	_, ok := presets[k]
	return ok
}

// LocalEndpoint returns the preset endpoint of the local backend. The
// auto-detection probe and the supervisor both target it.
func LocalEndpoint() string {
	return presets[KindOllama].endpoint
}
