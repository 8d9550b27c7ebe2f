package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

var ctx = context.Background()

func tempRoot(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir(), DefaultExtensions)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("plain text\n")
	if err := s.Write(ctx, "notes.txt", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read(ctx, "notes.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write(ctx, "a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read(ctx, "a/b/c.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write(ctx, "del.pdf", []byte("bye"))
	if err := s.Delete(ctx, "del.pdf"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read(ctx, "del.pdf"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write(ctx, "old.docx", []byte("data"))
	if err := s.Move(ctx, "old.docx", "sub/new.docx"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read(ctx, "sub/new.docx")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read(ctx, "old.docx"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestList_FiltersExtensions(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write(ctx, "a.md", []byte("a"))
	_ = s.Write(ctx, "sub/b.PDF", []byte("bb"))
	_ = s.Write(ctx, "sub/deeper/c.docx", []byte("c"))
	_ = s.Write(ctx, "image.png", []byte("not served"))
	_ = s.Write(ctx, ".hidden/d.md", []byte("hidden"))

	items, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var paths []string
	for _, it := range items {
		paths = append(paths, it.Path)
		if it.Checksum == "" {
			t.Errorf("%s: empty checksum", it.Path)
		}
	}
	sort.Strings(paths)
	want := []string{"a.md", "sub/b.PDF", "sub/deeper/c.docx"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
	for _, it := range items {
		if it.Path == "sub/b.PDF" && it.Size != 2 {
			t.Errorf("size = %d, want 2", it.Size)
		}
	}
}

func TestList_NoFilterServesEverything(t *testing.T) {
	s, err := NewFS(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Write(ctx, "a.bin", []byte("x"))
	_ = s.Write(ctx, "noext", []byte("y"))
	items, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(ctx, p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(ctx, p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write(ctx, "atomic.txt", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write(ctx, "atomic.txt", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read(ctx, "atomic.txt")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.Root(), tmpPrefix+"*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestAllowed(t *testing.T) {
	s := tempRoot(t)
	cases := map[string]bool{
		"a.pdf":            true,
		"dir/b.DOCX":       true,
		"c.png":            false,
		".d.md":            false,
		tmpPrefix + "1234": false,
	}
	for p, want := range cases {
		if got := s.Allowed(p); got != want {
			t.Errorf("Allowed(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"), nil)
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "doclib-test-*")
	_ = f.Close()
	_, err := NewFS(f.Name(), nil)
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
