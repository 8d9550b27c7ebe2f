package library

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/doclib/internal/apperr"
	"github.com/starford/doclib/internal/document"
	"github.com/starford/doclib/internal/metrics"
	"github.com/starford/doclib/internal/preview"
	"github.com/starford/doclib/internal/render"
	"github.com/starford/doclib/internal/sse"
	"github.com/starford/doclib/internal/tree"
	"github.com/starford/doclib/internal/view"
)

// Remote is the document store as seen by the service.
type Remote interface {
	List(ctx context.Context) ([]document.Record, error)
	Fetch(ctx context.Context, path string) ([]byte, error)
	Upload(ctx context.Context, filename, dir string, r io.Reader) error
	BaseURL() string
}

// Publisher broadcasts change events.
type Publisher interface {
	Publish(e sse.Event)
	PublishDocumentEvent(kind string, data any)
}

// Config holds service settings.
type Config struct {
	StripPrefix     string
	PageSize        int
	RefreshInterval time.Duration
	PreviewTimeout  time.Duration
}

// RefreshResult summarizes one refresh.
type RefreshResult struct {
	Documents   int    `json:"documents"`
	Directories int    `json:"directories"`
	Duplicates  int    `json:"duplicates"`
	Generation  uint64 `json:"generation"`
	Notice      string `json:"notice,omitempty"`
}

// KindSupport describes how a kind is previewed.
type KindSupport struct {
	Kind    document.Kind `json:"kind"`
	Preview string        `json:"preview"` // "rendered" or "placeholder"
}

// Service coordinates the remote store, canonical store and preview loader.
type Service struct {
	store    *Store
	remote   Remote
	loader   *preview.Loader
	renderer *render.Registry
	events   Publisher
	cfg      Config

	mu          sync.Mutex
	lastErr     string
	lastRefresh time.Time
	expanded    map[string]bool

	refreshMu sync.Mutex
	unsub     func()
}

// NewService wires a service. events may be nil.
func NewService(remote Remote, store *Store, reg *render.Registry, events Publisher, cfg Config) *Service {
	if reg == nil {
		reg = render.Default()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = view.DefaultPageSize
	}
	var opts []preview.Option
	if cfg.PreviewTimeout > 0 {
		opts = append(opts, preview.WithTimeout(cfg.PreviewTimeout))
	}
	s := &Service{
		store:    store,
		remote:   remote,
		loader:   preview.NewLoader(remote, reg, store, opts...),
		renderer: reg,
		events:   events,
		cfg:      cfg,
		expanded: map[string]bool{tree.RootPath: true},
	}
	s.unsub = store.Subscribe(s.onChange)
	return s
}

// Close detaches the service from its store.
func (s *Service) Close() {
	if s.unsub != nil {
		s.unsub()
	}
}

// Store returns the canonical store.
func (s *Service) Store() *Store { return s.store }

// PageSize returns the configured default page size.
func (s *Service) PageSize() int { return s.cfg.PageSize }

func (s *Service) onChange(c Change) {
	if s.events == nil {
		return
	}
	switch c.Kind {
	case ChangeUpdated:
		s.events.PublishDocumentEvent("updated", map[string]any{
			"id":            c.Doc.ID,
			"preview_state": c.Doc.PreviewState,
		})
	case ChangeReplaced:
		s.events.Publish(sse.Event{Type: sse.LibraryRefreshed, Data: map[string]any{
			"documents":  c.Count,
			"generation": c.Generation,
		}})
	}
}

// Refresh reloads the full document set. A transport failure is not fatal:
// the set becomes empty and the failure is kept as a user-visible notice.
func (s *Service) Refresh(ctx context.Context) RefreshResult {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	var res RefreshResult
	recs, err := s.remote.List(ctx)
	if err != nil {
		notice := "Could not load documents from the store."
		if apperr.IsTransport(err) {
			notice = fmt.Sprintf("Could not load documents from the store: %v", err)
		}
		slog.Error("library: refresh failed", slog.String("error", err.Error()))
		recs = nil
		res.Notice = notice
		if s.events != nil {
			s.events.Publish(sse.Event{Type: sse.LibraryError, Data: map[string]string{"error": notice}})
		}
	}

	norm := document.Normalize(recs, document.Options{
		StripPrefix: s.cfg.StripPrefix,
		BaseURL:     s.remote.BaseURL(),
		Generation:  s.store.Generation() + 1,
	})
	if norm.Duplicates > 0 {
		slog.Warn("library: duplicate document ids dropped", slog.Int("count", norm.Duplicates))
	}

	res.Generation = s.store.ReplaceAll(norm.Documents)
	res.Documents = len(norm.Documents)
	res.Duplicates = norm.Duplicates
	res.Directories = tree.Build(norm.Documents).Len()
	metrics.SetLibrarySize(res.Documents, res.Directories)

	s.mu.Lock()
	s.lastErr = res.Notice
	s.lastRefresh = time.Now()
	s.mu.Unlock()

	slog.Info("library: refreshed",
		slog.Int("documents", res.Documents),
		slog.Int("directories", res.Directories),
		slog.Uint64("generation", res.Generation))
	return res
}

// LastError returns the notice from the most recent refresh, "" if it
// succeeded.
func (s *Service) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// LastRefresh returns when the last refresh completed.
func (s *Service) LastRefresh() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRefresh
}

// Documents renders one page of the listing.
func (s *Service) Documents(q view.Query) view.Result {
	if q.PageSize <= 0 {
		q.PageSize = s.cfg.PageSize
	}
	return view.Apply(s.store.Snapshot(), q)
}

// Tree builds the directory tree over the current snapshot, carrying the
// expanded flags across rebuilds.
func (s *Service) Tree() *tree.Tree {
	t := tree.Build(s.store.Snapshot())
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Collapse(tree.RootPath)
	for p, on := range s.expanded {
		if on {
			t.Expand(p)
		}
	}
	return t
}

// NestedTree returns the JSON-ready tree rooted at path ("" for the root).
func (s *Service) NestedTree(path string) (tree.NestedNode, error) {
	n, ok := s.Tree().NestedAt(path, s.store.Get)
	if !ok {
		return tree.NestedNode{}, fmt.Errorf("directory %q: %w", path, apperr.ErrNotFound)
	}
	return n, nil
}

// SetExpanded records the expanded flag for a directory.
func (s *Service) SetExpanded(path string, expanded bool) error {
	if _, ok := s.Tree().Lookup(path); !ok {
		return fmt.Errorf("directory %q: %w", path, apperr.ErrNotFound)
	}
	s.mu.Lock()
	s.expanded[path] = expanded
	s.mu.Unlock()
	return nil
}

// Document returns the current value of a document.
func (s *Service) Document(id document.ID) (document.Document, error) {
	d, ok := s.store.Get(id)
	if !ok {
		return document.Document{}, fmt.Errorf("document %d: %w", id, apperr.ErrNotFound)
	}
	return d, nil
}

// Select loads the preview of a document. A failed load is reported in the
// returned document's state, not as an error.
func (s *Service) Select(ctx context.Context, id document.ID) (document.Document, error) {
	d, err := s.Document(id)
	if err != nil {
		return d, err
	}
	out := s.loader.Load(ctx, d)
	if cur, ok := s.store.Get(id); ok && cur.Generation == out.Generation {
		return cur, nil
	}
	return out, nil
}

// UploadComplete refreshes the library and, when a document titled filename
// exists afterwards, selects it.
func (s *Service) UploadComplete(ctx context.Context, filename string) (document.Document, bool) {
	s.Refresh(ctx)
	d, ok := s.store.FindByTitle(filename)
	if !ok {
		return document.Document{}, false
	}
	sel, err := s.Select(ctx, d.ID)
	if err != nil {
		return d, true
	}
	return sel, true
}

// DefaultMaxUploadBytes applies when the remote reports no body limit.
const DefaultMaxUploadBytes = 32 << 20

// MaxUploadBytes is the largest file Upload forwards. It follows the remote
// client's body limit so every entry point rejects the same sizes.
func (s *Service) MaxUploadBytes() int64 {
	if l, ok := s.remote.(interface{ MaxBodyBytes() int64 }); ok && l.MaxBodyBytes() > 0 {
		return l.MaxBodyBytes()
	}
	return DefaultMaxUploadBytes
}

// Upload forwards a file to the store and completes the upload.
func (s *Service) Upload(ctx context.Context, filename, dir string, r io.Reader) (document.Document, bool, error) {
	if err := s.remote.Upload(ctx, filename, dir, r); err != nil {
		return document.Document{}, false, err
	}
	d, ok := s.UploadComplete(ctx, filename)
	return d, ok, nil
}

// Kinds reports how each document kind is previewed.
func (s *Service) Kinds() []KindSupport {
	out := make([]KindSupport, 0, len(document.Kinds()))
	for _, k := range document.Kinds() {
		mode := "placeholder"
		if _, ok := s.renderer.Lookup(k); ok {
			mode = "rendered"
		}
		out = append(out, KindSupport{Kind: k, Preview: mode})
	}
	return out
}

// Run refreshes once, then on every RefreshInterval tick until ctx is done.
// A zero interval refreshes only once.
func (s *Service) Run(ctx context.Context) error {
	s.Refresh(ctx)
	if s.cfg.RefreshInterval <= 0 {
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(s.cfg.RefreshInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Refresh(ctx)
		}
	}
}
