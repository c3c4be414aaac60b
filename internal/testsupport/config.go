// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"reelsmith/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per
// test. The API binds to an ephemeral port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(base, "data")
	cfg.LogDir = filepath.Join(base, "logs")
	cfg.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithVisualBudget overrides the visual budget on the test config.
func WithVisualBudget(budget int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.VisualBudget = budget
	}
}

// WithTimeoutMinutes overrides the per-phase timeout on the test config.
func WithTimeoutMinutes(minutes int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.TimeoutMinutes = minutes
	}
}
