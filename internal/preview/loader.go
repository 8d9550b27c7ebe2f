// Package preview loads and memoizes per-document previews.
package preview

import (
	"bytes"
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/doclib/internal/apperr"
	"github.com/starford/doclib/internal/document"
	"github.com/starford/doclib/internal/metrics"
	"github.com/starford/doclib/internal/render"
)

// Fetcher retrieves the raw bytes of a store path.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// Sink receives state changes. Apply must reject a document whose id and
// generation no longer exist, and must not replace a Loaded document of the
// same generation with any other state. It reports whether doc was accepted.
type Sink interface {
	Apply(doc document.Document) bool
	Get(id document.ID) (document.Document, bool)
}

// Loader turns NotLoaded or Error documents into Loaded or Error ones.
type Loader struct {
	fetch   Fetcher
	render  *render.Registry
	sink    Sink
	timeout time.Duration
	group   singleflight.Group
}

// Option configures a Loader.
type Option func(*Loader)

// WithTimeout bounds a single load, fetch and render included.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) { l.timeout = d }
}

// NewLoader creates a loader. A nil registry uses render.Default().
func NewLoader(f Fetcher, reg *render.Registry, sink Sink, opts ...Option) *Loader {
	if reg == nil {
		reg = render.Default()
	}
	l := &Loader{fetch: f, render: reg, sink: sink, timeout: time.Minute}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load returns doc with its preview computed. A Loaded document is returned
// unchanged. Fetch and render failures yield a document in the Error state;
// they are never returned as errors. Concurrent loads of the same document
// instance share one fetch.
func (l *Loader) Load(ctx context.Context, doc document.Document) document.Document {
	if doc.PreviewState == document.Loaded {
		return doc
	}
	if cur, ok := l.loaded(doc); ok {
		return cur
	}
	next, err := document.Transition(doc.PreviewState, document.EventLoad)
	if err != nil {
		return doc
	}
	doc.PreviewState = next
	if !l.sink.Apply(doc) {
		// Another load may have finished since doc was read.
		if cur, ok := l.loaded(doc); ok {
			return cur
		}
	}

	key := strconv.FormatInt(int64(doc.ID), 10) + "@" + strconv.FormatUint(doc.Generation, 10)
	// The load outlives the requester so a deselected document still
	// receives its result.
	loadCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(loadCtx, l.timeout)
		defer cancel()
		out := l.compute(lctx, doc)
		if !l.sink.Apply(out) {
			if cur, ok := l.loaded(out); ok {
				return cur, nil
			}
			slog.Debug("preview: dropped stale result",
				slog.Int64("id", int64(out.ID)), slog.Uint64("generation", out.Generation))
		}
		return out, nil
	})

	select {
	case res := <-ch:
		return res.Val.(document.Document)
	case <-ctx.Done():
		return doc
	}
}

// loaded returns the canonical copy of doc when it is already Loaded in the
// same generation.
func (l *Loader) loaded(doc document.Document) (document.Document, bool) {
	cur, ok := l.sink.Get(doc.ID)
	if !ok || cur.Generation != doc.Generation || cur.PreviewState != document.Loaded {
		return document.Document{}, false
	}
	return cur, true
}

func (l *Loader) compute(ctx context.Context, doc document.Document) document.Document {
	kind := string(doc.Type)

	if _, ok := l.render.Lookup(doc.Type); !ok {
		if doc.Type == document.KindPDF {
			doc.Content = document.PDFPlaceholder
		} else {
			doc.Content = document.UnsupportedPlaceholder(doc.Extension)
		}
		doc.Size = document.UnknownSize
		metrics.RecordPreviewLoad(kind, "placeholder")
		return succeed(doc)
	}

	data, err := l.fetch.Fetch(ctx, doc.Path)
	if err != nil {
		if !apperr.IsTransport(err) {
			err = &apperr.TransportError{Op: "fetch", Target: doc.Path, Err: err}
		}
		return l.fail(doc, err)
	}
	doc = doc.WithSize(int64(len(data)))

	var buf bytes.Buffer
	if err := l.render.Render(ctx, doc.Type, &buf, data); err != nil {
		return l.fail(doc, err)
	}
	doc.Content = buf.String()
	doc.ErrorMessage = ""
	metrics.RecordPreviewLoad(kind, "loaded")
	return succeed(doc)
}

func succeed(doc document.Document) document.Document {
	doc.PreviewState, _ = document.Transition(doc.PreviewState, document.EventSucceed)
	return doc
}

func (l *Loader) fail(doc document.Document, err error) document.Document {
	slog.Warn("preview: load failed",
		slog.Int64("id", int64(doc.ID)),
		slog.String("type", string(doc.Type)),
		slog.String("error", err.Error()))
	metrics.RecordPreviewLoad(string(doc.Type), "error")

	doc.PreviewState, _ = document.Transition(doc.PreviewState, document.EventFail)
	doc.Content = document.ErrorContent
	doc.ErrorMessage = err.Error()
	return doc
}
