package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_DerivesFields(t *testing.T) {
	recs := []Record{
		{ID: 1, Title: "report.docx", Description: "q3", Path: "/files/reports/2024/report.docx"},
		{ID: 2, Title: "a.pdf", Description: "", Path: "/files/a.pdf"},
		{ID: 3, Title: "notes", Description: "", Path: "notes"},
	}
	res := Normalize(recs, Options{StripPrefix: DefaultStripPrefix, BaseURL: "http://store:5000/", Generation: 7})
	require.Len(t, res.Documents, 3)
	assert.Zero(t, res.Duplicates)

	d := res.Documents[0]
	assert.Equal(t, ID(1), d.ID)
	assert.Equal(t, KindDOCX, d.Type)
	assert.Equal(t, "DOCX", d.Extension)
	assert.Equal(t, "/reports/2024", d.Directory)
	assert.Equal(t, "http://store:5000/files/reports/2024/report.docx", d.URL)
	assert.Equal(t, NotLoaded, d.PreviewState)
	assert.Equal(t, InitialContent, d.Content)
	assert.Equal(t, "Unknown", d.Size.String())
	assert.Equal(t, uint64(7), d.Generation)

	assert.Equal(t, "/", res.Documents[1].Directory)
	assert.Equal(t, KindPDF, res.Documents[1].Type)

	assert.Equal(t, KindUnknown, res.Documents[2].Type)
	assert.Empty(t, res.Documents[2].Extension)
	assert.Equal(t, "/", res.Documents[2].Directory)
}

func TestNormalize_FirstDuplicateWins(t *testing.T) {
	recs := []Record{
		{ID: 5, Title: "first.txt", Path: "/files/first.txt"},
		{ID: 6, Title: "other.md", Path: "/files/other.md"},
		{ID: 5, Title: "second.txt", Path: "/files/second.txt"},
	}
	res := Normalize(recs, Options{StripPrefix: DefaultStripPrefix})
	require.Len(t, res.Documents, 2)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, "first.txt", res.Documents[0].Title)
	assert.Equal(t, "other.md", res.Documents[1].Title)
}

func TestNormalize_IsDeterministic(t *testing.T) {
	recs := []Record{{ID: 1, Title: "x y.md", Path: "/files/dir/x y.md"}}
	opts := Options{StripPrefix: DefaultStripPrefix, BaseURL: "http://h"}
	assert.Equal(t, Normalize(recs, opts), Normalize(recs, opts))
	assert.Equal(t, "http://h/files/dir/x%20y.md", Normalize(recs, opts).Documents[0].URL)
}

func TestExtensionAndKind(t *testing.T) {
	cases := []struct {
		title string
		ext   string
		kind  Kind
	}{
		{"a.PDF", "PDF", KindPDF},
		{"a.pdf", "PDF", KindPDF},
		{"archive.tar.gz", "GZ", KindUnknown},
		{"README.md", "MD", KindMD},
		{"plain.txt", "TXT", KindTXT},
		{"trailing.", "", KindUnknown},
		{"noext", "", KindUnknown},
		{"", "", KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.title, func(t *testing.T) {
			assert.Equal(t, tc.ext, Extension(tc.title))
			assert.Equal(t, tc.kind, KindOf(Extension(tc.title)))
		})
	}
}

func TestDirectory(t *testing.T) {
	cases := []struct {
		path, prefix, want string
	}{
		{"/files/a/b/c.pdf", "files", "/a/b"},
		{"files/a/c.pdf", "files", "/a"},
		{"/files/c.pdf", "files", "/"},
		{"//files//a///c.pdf", "files", "/a"},
		{"/a/files/c.pdf", "files", "/a/files"},
		{"/files/a/c.pdf", "", "/files/a"},
		{"c.pdf", "files", "/"},
		{"", "files", "/"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.want, Directory(tc.path, tc.prefix))
		})
	}
}

func TestTransition(t *testing.T) {
	cases := []struct {
		from PreviewState
		ev   Event
		to   PreviewState
		ok   bool
	}{
		{NotLoaded, EventLoad, Loading, true},
		{Failed, EventLoad, Loading, true},
		{Loading, EventLoad, Loading, true},
		{Loading, EventSucceed, Loaded, true},
		{Loading, EventFail, Failed, true},
		{Loaded, EventLoad, Loaded, false},
		{Loaded, EventFail, Loaded, false},
		{NotLoaded, EventSucceed, NotLoaded, false},
		{Failed, EventSucceed, Failed, false},
	}
	for _, tc := range cases {
		t.Run(tc.from.String()+"_"+tc.ev.String(), func(t *testing.T) {
			got, err := Transition(tc.from, tc.ev)
			assert.Equal(t, tc.to, got)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				var inv *ErrInvalidTransition
				assert.ErrorAs(t, err, &inv)
			}
		})
	}
}

func TestSize(t *testing.T) {
	assert.Equal(t, "Unknown", UnknownSize.String())
	n, known := UnknownSize.Bytes()
	assert.False(t, known)
	assert.Zero(t, n)

	s := SizeOf(2048)
	assert.Equal(t, "2.0 kB", s.String())

	b, err := json.Marshal(Document{}.WithSize(1))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"size":"1 B"`)
	assert.Contains(t, string(b), `"preview_state":"not_loaded"`)
}

func TestUnsupportedPlaceholder(t *testing.T) {
	assert.Contains(t, UnsupportedPlaceholder("XLSX"), "This file type (XLSX) is not supported")
}

func TestDocumentJSONDecode(t *testing.T) {
	var d Document
	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"preview_state":"error","size":"Unknown"}`), &d))
	assert.Equal(t, Failed, d.PreviewState)
	_, known := d.Size.Bytes()
	assert.False(t, known)

	require.NoError(t, json.Unmarshal([]byte(`{"size":"2.0 kB","size_bytes":2048}`), &d))
	n, known := d.Size.Bytes()
	assert.True(t, known)
	assert.EqualValues(t, 2000, n)

	assert.Error(t, json.Unmarshal([]byte(`{"preview_state":"bogus"}`), &d))
}
