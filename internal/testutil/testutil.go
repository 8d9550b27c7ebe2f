// Package testutil provides shared test helpers for document stores and
// catalogs.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/doclib/internal/index"
	"github.com/starford/doclib/internal/storage"
)

// TestDB creates a temporary SQLite catalog that is closed on cleanup.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "doclib-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary store directory with a storage.FS serving
// the default extensions.
func TestStore(t *testing.T) (string, *storage.FS) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root, storage.DefaultExtensions)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// WriteFiles writes name → content pairs under root, creating parents.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}
