package index

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/doclib/internal/apperr"
	"github.com/starford/doclib/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	id, err := db.UpsertDocument(DocumentRow{Path: "hello.md", Title: "hello.md", Checksum: "abc123", Size: 5})
	if err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	if id <= 0 {
		t.Errorf("id = %d, want positive", id)
	}
	cs, err := db.GetChecksum("hello.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestUpsertKeepsID(t *testing.T) {
	db := testDB(t)
	id1, _ := db.UpsertDocument(DocumentRow{Path: "up.md", Title: "up.md", Description: "old", Checksum: "1"})
	_, _ = db.UpsertDocument(DocumentRow{Path: "other.md", Checksum: "x"})
	id2, err := db.UpsertDocument(DocumentRow{Path: "up.md", Title: "up.md", Description: "new", Checksum: "2"})
	if err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	if id1 != id2 {
		t.Errorf("id changed on update: %d -> %d", id1, id2)
	}
	row, err := db.GetDocumentByID(id1)
	if err != nil {
		t.Fatalf("GetDocumentByID: %v", err)
	}
	if row.Description != "new" || row.Checksum != "2" {
		t.Errorf("row = %+v", row)
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	_, _ = db.UpsertDocument(DocumentRow{Path: "del.md", Checksum: "x"})
	if err := db.DeleteDocument("del.md"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if cs, _ := db.GetChecksum("del.md"); cs != "" {
		t.Errorf("deleted document still has checksum %q", cs)
	}
	if _, err := db.GetDocument("del.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetDocument err = %v, want ErrNotFound", err)
	}
	if err := db.DeleteDocument("del.md"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestIDsNotReused(t *testing.T) {
	db := testDB(t)
	id1, _ := db.UpsertDocument(DocumentRow{Path: "a.md"})
	_ = db.DeleteDocument("a.md")
	id2, _ := db.UpsertDocument(DocumentRow{Path: "a.md"})
	if id2 <= id1 {
		t.Errorf("id reused: %d then %d", id1, id2)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestListDocuments_OrderAndQuery(t *testing.T) {
	db := testDB(t)
	_, _ = db.UpsertDocument(DocumentRow{Path: "b.pdf", Title: "b.pdf", Description: "A document of type PDF"})
	_, _ = db.UpsertDocument(DocumentRow{Path: "a.md", Title: "a.md", Description: "Quarterly Budget"})
	_, _ = db.UpsertDocument(DocumentRow{Path: "c_d.txt", Title: "c_d.txt", Description: "100% plain"})

	all, err := db.ListDocuments("")
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(all) != 3 || all[0].Path != "b.pdf" || all[2].Path != "c_d.txt" {
		t.Fatalf("all = %+v", all)
	}

	hits, _ := db.ListDocuments("budget")
	if len(hits) != 1 || hits[0].Path != "a.md" {
		t.Errorf("budget hits = %+v", hits)
	}
	hits, _ = db.ListDocuments("PDF")
	if len(hits) != 1 || hits[0].Path != "b.pdf" {
		t.Errorf("pdf hits = %+v", hits)
	}
	hits, _ = db.ListDocuments("%")
	if len(hits) != 1 || hits[0].Path != "c_d.txt" {
		t.Errorf("literal %% hits = %+v", hits)
	}
	hits, _ = db.ListDocuments("_")
	if len(hits) != 1 {
		t.Errorf("literal _ hits = %+v", hits)
	}
}

func TestCount(t *testing.T) {
	db := testDB(t)
	_, _ = db.UpsertDocument(DocumentRow{Path: "a.md"})
	_, _ = db.UpsertDocument(DocumentRow{Path: "b.md"})
	n, err := db.Count()
	if err != nil || n != 2 {
		t.Errorf("Count = %d, %v", n, err)
	}
}

func TestSync(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFS(dir, storage.DefaultExtensions)
	if err != nil {
		t.Fatal(err)
	}
	db := testDB(t)
	ctx := context.Background()

	_ = os.WriteFile(filepath.Join(dir, "a.md"), []byte("---\ndescription: Alpha notes\n---\nbody"), 0o644)
	_ = os.MkdirAll(filepath.Join(dir, "docs"), 0o755)
	_ = os.WriteFile(filepath.Join(dir, "docs", "b.pdf"), []byte("%PDF"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "skip.png"), []byte("png"), 0o644)

	changes, err := Sync(ctx, db, store, quietLogger())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("changes = %+v, want 2 created", changes)
	}
	for _, c := range changes {
		if c.Kind != "created" || c.ID == 0 {
			t.Errorf("change = %+v", c)
		}
	}

	row, err := db.GetDocument("docs/b.pdf")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if row.Title != "b.pdf" || row.Description != "A document of type PDF" || row.Size != 4 {
		t.Errorf("row = %+v", row)
	}
	a, _ := db.GetDocument("a.md")
	if a.Description != "Alpha notes" {
		t.Errorf("a description = %q", a.Description)
	}

	// No-op rescan.
	changes, _ = Sync(ctx, db, store, quietLogger())
	if len(changes) != 0 {
		t.Errorf("rescan changes = %+v, want none", changes)
	}

	_ = os.WriteFile(filepath.Join(dir, "a.md"), []byte("changed"), 0o644)
	_ = os.Remove(filepath.Join(dir, "docs", "b.pdf"))
	changes, _ = Sync(ctx, db, store, quietLogger())
	kinds := map[string]string{}
	for _, c := range changes {
		kinds[c.Path] = c.Kind
	}
	if kinds["a.md"] != "updated" || kinds["docs/b.pdf"] != "deleted" {
		t.Errorf("changes = %+v", changes)
	}
	a2, _ := db.GetDocument("a.md")
	if a2.ID != a.ID {
		t.Errorf("id changed on rescan: %d -> %d", a.ID, a2.ID)
	}
}
