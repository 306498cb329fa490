package testsupport

import (
	"testing"

	"panscan/internal/catalog"
	"panscan/internal/config"
)

// MustOpenCatalog opens the run catalog for cfg and closes it at test end.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()
	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
