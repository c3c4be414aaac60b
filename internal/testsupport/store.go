package testsupport

import (
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/history"
)

// MustOpenHistory opens a history store over the test config and closes
// it when the test ends.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("open history store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close history store: %v", err)
		}
	})
	return store
}
