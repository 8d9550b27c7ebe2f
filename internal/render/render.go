// Package render turns fetched document bytes into preview content.
package render

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/starford/doclib/internal/apperr"
	"github.com/starford/doclib/internal/document"
)

// Renderer writes a preview of data to w.
type Renderer interface {
	Render(ctx context.Context, w io.Writer, data []byte) error
}

// Func adapts a function to Renderer.
type Func func(ctx context.Context, w io.Writer, data []byte) error

func (f Func) Render(ctx context.Context, w io.Writer, data []byte) error { return f(ctx, w, data) }

// Registry maps kinds to renderers.
type Registry struct {
	mu sync.RWMutex
	m  map[document.Kind]Renderer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[document.Kind]Renderer)}
}

// Default returns a registry with the DOCX, Markdown and plain-text renderers.
func Default() *Registry {
	r := NewRegistry()
	r.Register(document.KindDOCX, DOCX{})
	r.Register(document.KindMD, NewMarkdown())
	r.Register(document.KindTXT, Text{})
	return r
}

// Register binds kind to r, replacing any previous binding.
func (r *Registry) Register(kind document.Kind, rd Renderer) {
	r.mu.Lock()
	r.m[kind] = rd
	r.mu.Unlock()
}

// Lookup returns the renderer for kind.
func (r *Registry) Lookup(kind document.Kind) (Renderer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rd, ok := r.m[kind]
	return rd, ok
}

// Kinds lists the kinds with a renderer, sorted.
func (r *Registry) Kinds() []document.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]document.Kind, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Render renders data with the renderer bound to kind. A missing renderer is
// an UnsupportedTypeError; any renderer failure is returned as a RenderError.
func (r *Registry) Render(ctx context.Context, kind document.Kind, w io.Writer, data []byte) error {
	rd, ok := r.Lookup(kind)
	if !ok {
		return &apperr.UnsupportedTypeError{Kind: string(kind)}
	}
	if err := ctx.Err(); err != nil {
		return &apperr.RenderError{Kind: string(kind), Err: err}
	}
	err := rd.Render(ctx, w, data)
	if err == nil {
		return nil
	}
	var re *apperr.RenderError
	if errors.As(err, &re) {
		return err
	}
	return &apperr.RenderError{Kind: string(kind), Err: err}
}
