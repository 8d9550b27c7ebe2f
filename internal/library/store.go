// Package library holds the canonical document collection and the service
// that keeps it in step with the remote store.
package library

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/doclib/internal/document"
)

// ChangeKind classifies a store change.
type ChangeKind string

const (
	ChangeReplaced ChangeKind = "replaced"
	ChangeUpdated  ChangeKind = "updated"
)

// Change describes one store mutation. Doc is set for ChangeUpdated.
type Change struct {
	Kind       ChangeKind
	Generation uint64
	Count      int
	Doc        document.Document
}

// Store is the single authoritative document collection. Every list, tree
// and detail view is a projection of Snapshot. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	order []document.ID
	byID  map[document.ID]document.Document
	gen   uint64

	subMu sync.Mutex
	subs  map[uuid.UUID]func(Change)
}

// NewStore returns an empty store at generation 0.
func NewStore() *Store {
	return &Store{
		byID: make(map[document.ID]document.Document),
		subs: make(map[uuid.UUID]func(Change)),
	}
}

// ReplaceAll swaps in a new document set under a new generation, which is
// stamped on every document and returned. Order is preserved; a repeated id
// keeps its first occurrence.
func (s *Store) ReplaceAll(docs []document.Document) uint64 {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.order = make([]document.ID, 0, len(docs))
	s.byID = make(map[document.ID]document.Document, len(docs))
	for _, d := range docs {
		if _, dup := s.byID[d.ID]; dup {
			continue
		}
		d.Generation = gen
		s.order = append(s.order, d.ID)
		s.byID[d.ID] = d
	}
	n := len(s.order)
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeReplaced, Generation: gen, Count: n})
	return gen
}

// Generation returns the current refresh generation.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Get returns the document with id.
func (s *Store) Get(id document.ID) (document.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byID[id]
	return d, ok
}

// Len returns the number of documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Snapshot returns a copy of all documents in remote order.
func (s *Store) Snapshot() []document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]document.Document, len(s.order))
	for i, id := range s.order {
		out[i] = s.byID[id]
	}
	return out
}

// Apply replaces the document with doc's id, but only while a document with
// that id and generation is still present. A Loaded preview is terminal for
// its generation and is never replaced by another state. It reports whether
// doc was stored.
func (s *Store) Apply(doc document.Document) bool {
	s.mu.Lock()
	cur, ok := s.byID[doc.ID]
	if !ok || cur.Generation != doc.Generation ||
		(cur.PreviewState == document.Loaded && doc.PreviewState != document.Loaded) {
		s.mu.Unlock()
		return false
	}
	s.byID[doc.ID] = doc
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeUpdated, Generation: doc.Generation, Doc: doc})
	return true
}

// FindByTitle returns the first document, in remote order, titled title.
func (s *Store) FindByTitle(title string) (document.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.order, func(id document.ID) bool { return s.byID[id].Title == title })
	if i < 0 {
		return document.Document{}, false
	}
	return s.byID[s.order[i]], true
}

// Subscribe registers fn for every change and returns its cancel func. fn
// runs synchronously on the mutating goroutine, outside the store lock.
func (s *Store) Subscribe(fn func(Change)) func() {
	token := uuid.New()
	s.subMu.Lock()
	s.subs[token] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, token)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(c Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}
