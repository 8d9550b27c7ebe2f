// Package catalog is the reference remote document store: it serves the
// document catalog, the file bytes and uploads over HTTP.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"strings"

	"github.com/starford/doclib/internal/apperr"
	"github.com/starford/doclib/internal/index"
	"github.com/starford/doclib/internal/metrics"
	"github.com/starford/doclib/internal/models"
	"github.com/starford/doclib/internal/parser"
	"github.com/starford/doclib/internal/storage"
)

// FilesPrefix is the URL prefix under which stored files are served.
const FilesPrefix = "/files/"

// Publisher receives catalog change notifications.
type Publisher interface {
	PublishDocumentEvent(kind string, data any)
}

// Service coordinates storage and catalog operations.
type Service struct {
	store  storage.Provider
	db     index.DocumentIndex
	events Publisher
}

// NewService creates a catalog service. events may be nil.
func NewService(store storage.Provider, db index.DocumentIndex, events Publisher) *Service {
	return &Service{store: store, db: db, events: events}
}

// FilePath returns the served path for a storage key, escaping each segment.
func FilePath(key string) string {
	segs := strings.Split(strings.Trim(key, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return FilesPrefix + strings.Join(segs, "/")
}

func toDocument(r index.DocumentRow) models.Document {
	return models.Document{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Path:        FilePath(r.Path),
		Size:        r.Size,
		UpdatedAt:   r.UpdatedAt,
	}
}

// List returns the catalog in id order, optionally filtered by a metadata
// substring.
func (s *Service) List(_ context.Context, query string) ([]models.Document, error) {
	rows, err := s.db.ListDocuments(query)
	if err != nil {
		return nil, err
	}
	out := make([]models.Document, len(rows))
	for i, r := range rows {
		out[i] = toDocument(r)
	}
	return out, nil
}

// Get returns one catalog entry by id.
func (s *Service) Get(_ context.Context, id int64) (*models.Document, error) {
	row, err := s.db.GetDocumentByID(id)
	if err != nil {
		return nil, err
	}
	d := toDocument(*row)
	return &d, nil
}

// Read returns the bytes stored at key. Keys the store does not serve are
// reported as not found.
func (s *Service) Read(ctx context.Context, key string) ([]byte, error) {
	if key == "" || !s.store.Allowed(key) {
		return nil, apperr.ErrNotFound
	}
	data, err := s.store.Read(ctx, key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Upload errors.
var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrInvalidName     = errors.New("invalid filename")
)

// Upload stores content as dir/filename and indexes it. An existing file at
// the same key is replaced and keeps its catalog id.
func (s *Service) Upload(ctx context.Context, dir, filename string, content []byte) (*models.Document, bool, error) {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return nil, false, fmt.Errorf("catalog: %w %q", ErrInvalidName, filename)
	}
	key := name
	if d := strings.Trim(path.Clean("/"+strings.ReplaceAll(dir, `\`, "/")), "/"); d != "" {
		key = d + "/" + name
	}
	if !s.store.Allowed(key) {
		return nil, false, ErrUnsupportedType
	}

	prev, err := s.db.GetChecksum(key)
	if err != nil {
		return nil, false, err
	}
	if err := s.store.Write(ctx, key, content); err != nil {
		return nil, false, err
	}
	meta := parser.Describe(key, content)
	id, err := s.db.UpsertDocument(index.DocumentRow{
		Path:        key,
		Title:       meta.Title,
		Description: meta.Description,
		Checksum:    s.store.Digest().Sum(content),
		Size:        int64(len(content)),
	})
	if err != nil {
		return nil, false, err
	}
	if n, err := s.db.Count(); err == nil {
		metrics.SetCatalogDocuments(n)
	}

	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	created := prev == ""
	kind := "updated"
	if created {
		kind = "created"
	}
	s.Notify(index.Change{Kind: kind, Path: key, ID: id})
	return doc, created, nil
}

// Notify forwards a catalog change to the event publisher.
func (s *Service) Notify(c index.Change) {
	if s.events == nil {
		return
	}
	s.events.PublishDocumentEvent(c.Kind, map[string]any{
		"id":   c.ID,
		"path": FilePath(c.Path),
	})
}
