// Package storage defines the document store's file abstraction and its
// local and S3 backends.
package storage

import (
	"context"
	"path"
	"strings"

	"github.com/starford/doclib/internal/checksum"
	"github.com/starford/doclib/internal/models"
)

// Provider is the interface for document file operations. Paths are
// slash-separated and relative to the storage root.
type Provider interface {
	// List returns metadata for every allowed file under dir.
	List(ctx context.Context, dir string) ([]models.ObjectInfo, error)
	// Read returns the raw bytes of the file at p.
	Read(ctx context.Context, p string) ([]byte, error)
	// Write atomically writes content to p.
	Write(ctx context.Context, p string, content []byte) error
	// Delete removes the file at p.
	Delete(ctx context.Context, p string) error
	// Move renames oldPath to newPath.
	Move(ctx context.Context, oldPath, newPath string) error
	// Allowed reports whether p has an extension the provider serves.
	Allowed(p string) bool
	// Digest is the checksum flavor List reports.
	Digest() checksum.Algo
}

// DefaultExtensions are the file types served when none are configured.
var DefaultExtensions = []string{".pdf", ".docx", ".md", ".txt"}

// extFilter matches lowercase extensions. An empty filter allows everything.
type extFilter map[string]struct{}

func newExtFilter(exts []string) extFilter {
	f := make(extFilter, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		f[e] = struct{}{}
	}
	return f
}

func (f extFilter) allowed(p string) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[strings.ToLower(path.Ext(p))]
	return ok
}

var (
	_ Provider = (*FS)(nil)
	_ Provider = (*S3)(nil)
)
