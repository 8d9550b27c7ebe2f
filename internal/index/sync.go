package index

import (
	"context"
	"log/slog"

	"github.com/starford/doclib/internal/checksum"
	"github.com/starford/doclib/internal/metrics"
	"github.com/starford/doclib/internal/models"
	"github.com/starford/doclib/internal/parser"
	"github.com/starford/doclib/internal/storage"
)

// Change describes one catalog mutation made by Sync or Watch.
type Change struct {
	Kind string // "created", "updated" or "deleted"
	Path string
	ID   int64
}

// Sync lists the store and brings the catalog up to date. Changed files are
// described and upserted, and rows whose file is gone are deleted. The
// returned changes are in the order they were applied.
func Sync(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger) ([]Change, error) {
	objs, err := store.List(ctx, "")
	if err != nil {
		return nil, err
	}
	checksums, err := db.AllChecksums()
	if err != nil {
		return nil, err
	}

	var changes []Change
	present := make(map[string]struct{}, len(objs))
	for _, o := range objs {
		present[o.Path] = struct{}{}
		old, known := checksums[o.Path]
		if known && old == o.Checksum {
			continue
		}
		id, err := indexObject(ctx, db, store, o)
		if err != nil {
			logger.Warn("sync: index failed", slog.String("path", o.Path), slog.String("error", err.Error()))
			continue
		}
		kind := "created"
		if known {
			kind = "updated"
		}
		logger.Debug("sync: indexed", slog.String("path", o.Path), slog.String("op", kind))
		changes = append(changes, Change{Kind: kind, Path: o.Path, ID: id})
	}

	for p := range checksums {
		if _, ok := present[p]; ok {
			continue
		}
		if err := db.DeleteDocument(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale", slog.String("path", p))
		changes = append(changes, Change{Kind: "deleted", Path: p})
	}

	if n, err := db.Count(); err == nil {
		metrics.SetCatalogDocuments(n)
	}
	return changes, nil
}

// indexObject reads o, derives its metadata and upserts it. The provider's
// checksum is stored when it has one so that rescans compare like with like.
func indexObject(ctx context.Context, db *DB, store storage.Provider, o models.ObjectInfo) (int64, error) {
	data, err := store.Read(ctx, o.Path)
	if err != nil {
		return 0, err
	}
	return indexFile(db, o, data)
}

func indexFile(db *DB, o models.ObjectInfo, data []byte) (int64, error) {
	meta := parser.Describe(o.Path, data)
	cs := o.Checksum
	if cs == "" {
		cs = checksum.Sum(data)
	}
	size := o.Size
	if size == 0 {
		size = int64(len(data))
	}
	return db.UpsertDocument(DocumentRow{
		Path:        o.Path,
		Title:       meta.Title,
		Description: meta.Description,
		Checksum:    cs,
		Size:        size,
		UpdatedAt:   o.UpdatedAt,
	})
}
