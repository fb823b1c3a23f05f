package supervisor

import (
	"os"
	"path/filepath"
	"runtime"
)

// backendCommand is the bare command name used when no well-known install
// path exists; resolution is then left to exec.Command's PATH lookup.
const backendCommand = "ollama"

// wellKnownPaths returns the platform's conventional install locations,
// most specific first.
func wellKnownPaths() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/Applications/Ollama.app/Contents/Resources/ollama",
			"/opt/homebrew/bin/ollama",
			"/usr/local/bin/ollama",
		}
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			return nil
		}
		return []string{
			filepath.Join(localAppData, "Programs", "Ollama", "ollama.exe"),
		}
	default: // linux and friends
		return []string{
			"/usr/local/bin/ollama",
			"/usr/bin/ollama",
		}
	}
}

// FindExecutable locates the backend binary. An explicit override wins;
// otherwise the first existing well-known path is used, falling back to
// the bare command name.
func FindExecutable(override string) string {
	if override != "" {
		return override
	}
	return findIn(wellKnownPaths())
}

// findIn returns the first path that exists as a regular file, or the
// bare command name when none do.
func findIn(paths []string) string {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() {
			return p
		}
	}
	return backendCommand
}
