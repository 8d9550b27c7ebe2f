package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/doclib/internal/metrics"
	"github.com/starford/doclib/internal/models"
	"github.com/starford/doclib/internal/storage"
)

const reconcileDelay = 200 * time.Millisecond

// EventCallback is called after each catalog change made by a watcher or a
// periodic resync.
type EventCallback func(Change)

// Watch starts an fsnotify watcher on the store root and keeps the catalog
// current until ctx is cancelled.
//
// Directories created at runtime are added to the watch list and their
// files indexed. Renames remove the old row at once and schedule a short
// debounced reconcile that picks up the new path.
func Watch(ctx context.Context, db *DB, store *storage.FS, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))

	emit := func(c Change) {
		if n, err := db.Count(); err == nil {
			metrics.SetCatalogDocuments(n)
		}
		if cb != nil {
			cb(c)
		}
	}

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			changes, err := Sync(ctx, db, store, logger)
			if err != nil {
				logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
				continue
			}
			for _, c := range changes {
				emit(c)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
					if strings.HasPrefix(info.Name(), ".") {
						continue
					}
					if err := addDirsRecursive(w, abs); err != nil {
						logger.Warn("watcher: add new dir failed", slog.String("path", abs), slog.String("error", err.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", abs))
					}
					indexNewDir(db, store, abs, logger, emit)
					continue
				}
			}

			if !store.Allowed(abs) {
				continue
			}
			rel, relErr := store.Rel(abs)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				c, changed, err := indexPath(db, abs, rel)
				if err != nil {
					logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
					continue
				}
				if !changed {
					continue
				}
				logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", c.Kind))
				emit(c)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				row, err := db.GetDocument(rel)
				if err != nil {
					if ev.Op&fsnotify.Rename != 0 {
						scheduleReconcile()
					}
					continue
				}
				if err := db.DeleteDocument(rel); err != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel))
				emit(Change{Kind: "deleted", Path: rel, ID: row.ID})
				if ev.Op&fsnotify.Rename != 0 {
					scheduleReconcile()
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// indexPath indexes the file at abs. changed is false when the stored
// checksum already matches the file.
func indexPath(db *DB, abs, rel string) (Change, bool, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return Change{}, false, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return Change{}, false, err
	}
	obj := models.ObjectInfo{Path: rel, Size: info.Size(), UpdatedAt: info.ModTime()}
	prev, err := db.GetChecksum(rel)
	if err != nil {
		return Change{}, false, err
	}
	id, err := indexFile(db, obj, data)
	if err != nil {
		return Change{}, false, err
	}
	cur, _ := db.GetChecksum(rel)
	switch {
	case prev == "":
		return Change{Kind: "created", Path: rel, ID: id}, true, nil
	case prev != cur:
		return Change{Kind: "updated", Path: rel, ID: id}, true, nil
	}
	return Change{}, false, nil
}

// indexNewDir indexes allowed files found in a newly created directory.
func indexNewDir(db *DB, store *storage.FS, dir string, logger *slog.Logger, emit func(Change)) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !store.Allowed(p) {
			return nil
		}
		rel, relErr := store.Rel(p)
		if relErr != nil {
			return nil
		}
		if c, changed, idxErr := indexPath(db, p, rel); idxErr == nil && changed {
			logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
			emit(c)
		}
		return nil
	})
}

// addDirsRecursive adds root and its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

// Resync runs Sync every interval until ctx is cancelled. It keeps
// backends without change notifications, such as S3, current.
func Resync(ctx context.Context, db *DB, store storage.Provider, interval time.Duration, logger *slog.Logger, cb EventCallback) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			changes, err := Sync(ctx, db, store, logger)
			if err != nil {
				logger.Warn("resync: failed", slog.String("error", err.Error()))
				continue
			}
			if cb == nil {
				continue
			}
			for _, c := range changes {
				cb(c)
			}
		}
	}
}
