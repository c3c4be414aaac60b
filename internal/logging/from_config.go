package logging

import (
	"log/slog"
	"path/filepath"

	"reelsmith/internal/config"
)

// NewFromConfig builds the daemon logger from configuration, writing to
// stdout and the log file under the configured log directory.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	paths := []string{"stdout"}
	if cfg.LogDir != "" {
		paths = append(paths, filepath.Join(cfg.LogDir, "reelsmith.log"))
	}
	return New(Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: paths,
	})
}
