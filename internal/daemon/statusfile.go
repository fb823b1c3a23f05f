package daemon

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/doughub/engine/internal/api"
)

const statusFilename = "status.json"

// writeStatusFile mirrors the provider status to dataDir/status.json so
// developers can watch backend selection without attaching to the API.
// The write is atomic: rename over the old file.
func writeStatusFile(ctx context.Context, status api.StatusFunc, dataDir string) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := json.MarshalIndent(status(probeCtx), "", "  ")
	if err != nil {
		return
	}

	path := filepath.Join(dataDir, statusFilename)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Debug().Err(err).Msg("status file write failed")
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		log.Debug().Err(err).Msg("status file rename failed")
	}
}
