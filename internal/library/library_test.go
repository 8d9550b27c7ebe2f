package library

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/doclib/internal/apperr"
	"github.com/starford/doclib/internal/document"
	"github.com/starford/doclib/internal/sse"
	"github.com/starford/doclib/internal/view"
)

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)

type fakeRemote struct {
	mu      sync.Mutex
	recs    []document.Record
	files   map[string][]byte
	listErr error
	fetches int
	gates   map[string]chan struct{}
}

func (f *fakeRemote) List(context.Context) ([]document.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]document.Record(nil), f.recs...), nil
}

func (f *fakeRemote) Fetch(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	f.fetches++
	gate := f.gates[path]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.files[path]
	if !ok {
		return nil, &apperr.TransportError{Op: "fetch", Target: path, Status: 404}
	}
	return b, nil
}

func (f *fakeRemote) Upload(_ context.Context, name, dir string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	path := "/files/" + name
	if dir != "" {
		path = "/files/" + dir + "/" + name
	}
	f.files[path] = b
	f.recs = append(f.recs, document.Record{ID: int64(len(f.recs) + 100), Title: name, Path: path})
	return nil
}

func (f *fakeRemote) BaseURL() string { return "http://store" }

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Publish(e sse.Event) {
	r.mu.Lock()
	r.events = append(r.events, e.Type)
	r.mu.Unlock()
}

func (r *recorder) PublishDocumentEvent(kind string, _ any) {
	r.mu.Lock()
	r.events = append(r.events, "document."+kind)
	r.mu.Unlock()
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func newRemote() *fakeRemote {
	return &fakeRemote{
		recs: []document.Record{
			{ID: 1, Title: "b.txt", Description: "second", Path: "/files/docs/b.txt"},
			{ID: 2, Title: "a.pdf", Description: "first", Path: "/files/a.pdf"},
			{ID: 3, Title: "c.md", Description: "notes", Path: "/files/docs/deep/c.md"},
		},
		files: map[string][]byte{
			"/files/docs/b.txt":      []byte("bee"),
			"/files/docs/deep/c.md": []byte("# C"),
		},
	}
}

func newService(t *testing.T, r *fakeRemote) (*Service, *recorder) {
	t.Helper()
	rec := &recorder{}
	svc := NewService(r, NewStore(), nil, rec, Config{StripPrefix: "files"})
	t.Cleanup(svc.Close)
	return svc, rec
}

func TestStore_ReplaceAllAndApply(t *testing.T) {
	s := NewStore()
	var changes []Change
	cancel := s.Subscribe(func(c Change) { changes = append(changes, c) })

	gen := s.ReplaceAll([]document.Document{{ID: 1, Title: "x"}, {ID: 2, Title: "y"}, {ID: 1, Title: "dup"}})
	assert.Equal(t, uint64(1), gen)
	assert.Equal(t, 2, s.Len())

	d, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, "x", d.Title)
	assert.Equal(t, gen, d.Generation)

	d.Content = "loaded"
	assert.True(t, s.Apply(d))
	got, _ := s.Get(1)
	assert.Equal(t, "loaded", got.Content)

	stale := d
	stale.Generation = 0
	assert.False(t, s.Apply(stale))
	assert.False(t, s.Apply(document.Document{ID: 99, Generation: gen}))

	found, ok := s.FindByTitle("y")
	require.True(t, ok)
	assert.Equal(t, document.ID(2), found.ID)
	_, ok = s.FindByTitle("zzz")
	assert.False(t, ok)

	require.Len(t, changes, 2)
	assert.Equal(t, ChangeReplaced, changes[0].Kind)
	assert.Equal(t, ChangeUpdated, changes[1].Kind)

	cancel()
	s.ReplaceAll(nil)
	assert.Len(t, changes, 2)
	assert.Empty(t, s.Snapshot())
}

func TestRefresh_LoadsAndPublishes(t *testing.T) {
	svc, rec := newService(t, newRemote())
	res := svc.Refresh(context.Background())

	assert.Equal(t, 3, res.Documents)
	assert.Equal(t, 3, res.Directories)
	assert.Empty(t, res.Notice)
	assert.Empty(t, svc.LastError())
	assert.Contains(t, rec.types(), sse.LibraryRefreshed)

	d, err := svc.Document(3)
	require.NoError(t, err)
	assert.Equal(t, "/docs/deep", d.Directory)
	assert.Equal(t, "http://store/files/docs/deep/c.md", d.URL)
}

func TestRefresh_TransportErrorDegradesToEmpty(t *testing.T) {
	r := newRemote()
	svc, rec := newService(t, r)
	svc.Refresh(context.Background())
	require.Equal(t, 3, svc.Store().Len())

	r.listErr = &apperr.TransportError{Op: "list", Target: "http://store/api/documents", Err: errors.New("refused")}
	res := svc.Refresh(context.Background())

	assert.Zero(t, res.Documents)
	assert.NotEmpty(t, res.Notice)
	assert.Equal(t, res.Notice, svc.LastError())
	assert.Zero(t, svc.Store().Len())
	assert.Contains(t, rec.types(), sse.LibraryError)

	r.listErr = nil
	svc.Refresh(context.Background())
	assert.Empty(t, svc.LastError())
}

func TestDocuments_UsesViewModel(t *testing.T) {
	svc, _ := newService(t, newRemote())
	svc.Refresh(context.Background())

	res := svc.Documents(view.Query{Order: view.Asc})
	require.Len(t, res.Items, 3)
	assert.Equal(t, "a.pdf", res.Items[0].Title)
	assert.Equal(t, view.DefaultPageSize, res.PageSize)

	res = svc.Documents(view.Query{Text: "NOTES"})
	require.Len(t, res.Items, 1)
	assert.Equal(t, "c.md", res.Items[0].Title)
}

func TestSelect_MemoizesOnStore(t *testing.T) {
	r := newRemote()
	svc, rec := newService(t, r)
	svc.Refresh(context.Background())

	d, err := svc.Select(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, document.Loaded, d.PreviewState)
	assert.Equal(t, "bee", d.Content)

	again, err := svc.Select(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, d, again)
	assert.Equal(t, 1, r.fetches)

	cur, _ := svc.Document(1)
	assert.Equal(t, document.Loaded, cur.PreviewState)
	assert.Contains(t, rec.types(), sse.DocumentUpdated)

	_, err = svc.Select(context.Background(), 42)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func (f *fakeRemote) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func TestStore_ApplyKeepsLoadedTerminal(t *testing.T) {
	s := NewStore()
	gen := s.ReplaceAll([]document.Document{{ID: 1, Title: "x"}})
	d, _ := s.Get(1)

	loaded := d
	loaded.PreviewState = document.Loaded
	loaded.Content = "done"
	require.True(t, s.Apply(loaded))

	for _, st := range []document.PreviewState{document.NotLoaded, document.Loading, document.Failed} {
		back := d
		back.PreviewState = st
		assert.False(t, s.Apply(back), "Loaded replaced by %s", st)
	}
	cur, _ := s.Get(1)
	assert.Equal(t, document.Loaded, cur.PreviewState)
	assert.Equal(t, "done", cur.Content)

	s.ReplaceAll([]document.Document{{ID: 1, Title: "x"}})
	fresh, _ := s.Get(1)
	assert.NotEqual(t, gen, fresh.Generation)
	assert.Equal(t, document.NotLoaded, fresh.PreviewState)
}

func TestSelect_OutdatedCopyDoesNotRefetch(t *testing.T) {
	r := newRemote()
	svc, _ := newService(t, r)
	svc.Refresh(context.Background())

	before, ok := svc.store.Get(1)
	require.True(t, ok)
	require.Equal(t, document.NotLoaded, before.PreviewState)

	d, err := svc.Select(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, document.Loaded, d.PreviewState)
	require.Equal(t, 1, r.fetchCount())

	got := svc.loader.Load(context.Background(), before)
	assert.Equal(t, document.Loaded, got.PreviewState)
	assert.Equal(t, "bee", got.Content)
	assert.Equal(t, 1, r.fetchCount())

	cur, _ := svc.Document(1)
	assert.Equal(t, document.Loaded, cur.PreviewState)
}

func TestSelect_SwitchWhileLoading(t *testing.T) {
	r := newRemote()
	gate := make(chan struct{})
	r.gates = map[string]chan struct{}{"/files/docs/b.txt": gate}
	svc, _ := newService(t, r)
	svc.Refresh(context.Background())

	first := make(chan document.Document, 1)
	go func() {
		d, _ := svc.Select(context.Background(), 1)
		first <- d
	}()
	require.Eventually(t, func() bool {
		d, _ := svc.Document(1)
		return d.PreviewState == document.Loading && r.fetchCount() == 1
	}, timeout, tick)

	second, err := svc.Select(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, document.Loaded, second.PreviewState)
	assert.Contains(t, second.Content, "<h1")

	close(gate)
	a := <-first
	assert.Equal(t, document.Loaded, a.PreviewState)
	assert.Equal(t, "bee", a.Content)

	curA, _ := svc.Document(1)
	assert.Equal(t, document.Loaded, curA.PreviewState)
	assert.Equal(t, "bee", curA.Content)
	curB, _ := svc.Document(3)
	assert.Equal(t, second, curB)
	assert.Equal(t, 2, r.fetchCount())
}

func TestMaxUploadBytes_DefaultWithoutRemoteLimit(t *testing.T) {
	svc, _ := newService(t, newRemote())
	assert.Equal(t, int64(DefaultMaxUploadBytes), svc.MaxUploadBytes())
}

func TestSelect_PDFPlaceholder(t *testing.T) {
	r := newRemote()
	svc, _ := newService(t, r)
	svc.Refresh(context.Background())

	d, err := svc.Select(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, document.PDFPlaceholder, d.Content)
	assert.Zero(t, r.fetches)
}

func TestRefresh_DiscardsLoadedPreviews(t *testing.T) {
	svc, _ := newService(t, newRemote())
	svc.Refresh(context.Background())
	_, err := svc.Select(context.Background(), 1)
	require.NoError(t, err)

	svc.Refresh(context.Background())
	d, _ := svc.Document(1)
	assert.Equal(t, document.NotLoaded, d.PreviewState)
	assert.Equal(t, document.InitialContent, d.Content)
}

func TestUpload_SelectsNewDocument(t *testing.T) {
	r := newRemote()
	svc, _ := newService(t, r)
	svc.Refresh(context.Background())

	d, ok, err := svc.Upload(context.Background(), "new.txt", "inbox", bytes.NewBufferString("fresh"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new.txt", d.Title)
	assert.Equal(t, "/inbox", d.Directory)
	assert.Equal(t, document.Loaded, d.PreviewState)
	assert.Equal(t, "fresh", d.Content)
	assert.Equal(t, 4, svc.Store().Len())
}

func TestUploadComplete_MissingTitle(t *testing.T) {
	svc, _ := newService(t, newRemote())
	_, ok := svc.UploadComplete(context.Background(), "ghost.txt")
	assert.False(t, ok)
	assert.Equal(t, 3, svc.Store().Len())
}

func TestTree_ExpandedCarriesAcrossRebuilds(t *testing.T) {
	svc, _ := newService(t, newRemote())
	svc.Refresh(context.Background())

	require.NoError(t, svc.SetExpanded("/docs", true))
	assert.ErrorIs(t, svc.SetExpanded("/nope", true), apperr.ErrNotFound)

	svc.Refresh(context.Background())
	n, ok := svc.Tree().Lookup("/docs")
	require.True(t, ok)
	assert.True(t, n.Expanded)

	nested, err := svc.NestedTree("/docs")
	require.NoError(t, err)
	require.Len(t, nested.Documents, 1)
	assert.Equal(t, "b.txt", nested.Documents[0].Title)
	require.Len(t, nested.Children, 1)
	assert.Equal(t, "/docs/deep", nested.Children[0].Path)

	_, err = svc.NestedTree("/missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestKinds(t *testing.T) {
	svc, _ := newService(t, newRemote())
	kinds := map[document.Kind]string{}
	for _, k := range svc.Kinds() {
		kinds[k.Kind] = k.Preview
	}
	assert.Equal(t, "rendered", kinds[document.KindDOCX])
	assert.Equal(t, "placeholder", kinds[document.KindPDF])
	assert.Equal(t, "placeholder", kinds[document.KindUnknown])
}

func TestRun_StopsOnCancel(t *testing.T) {
	svc, _ := newService(t, newRemote())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- svc.Run(ctx) }()
	require.Eventually(t, func() bool { return svc.Store().Len() == 3 }, timeout, tick)
	cancel()
	assert.NoError(t, <-done)
}
