package sqlite

import (
	"path/filepath"
	"testing"

	"segstore/internal/metadata"
	"segstore/internal/metadata/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	storetest.TestStore(t, func(t *testing.T) metadata.Store {
		return newTestStore(t)
	})
}
