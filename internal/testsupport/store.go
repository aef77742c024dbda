package testsupport

import (
	"testing"

	"picture/internal/config"
	"picture/internal/manifest"
)

// MustOpenManifest opens the manifest for cfg and registers cleanup.
func MustOpenManifest(t testing.TB, cfg *config.Config) *manifest.Store {
	t.Helper()

	store, err := manifest.Open(cfg.ManifestPath())
	if err != nil {
		t.Fatalf("manifest.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
