package document

import (
	"net/url"
	"strings"
)

// Display strings shown before and after a preview load.
const (
	InitialContent = "Select to view content"
	PDFPlaceholder = "This is a PDF file. PDF preview is not available directly in this view. " +
		"Please use the Open button to view the PDF in a new tab."
	ErrorContent = "Error loading document preview. Please try again or use the Open button " +
		"to view the file in a new tab."
)

// UnsupportedPlaceholder is the preview content for a kind with no renderer.
// ext is the raw uppercased extension, which may be empty.
func UnsupportedPlaceholder(ext string) string {
	return "This file type (" + ext + ") is not supported for preview. " +
		"Please use the Open button to view the file in a new tab."
}

// DefaultStripPrefix is the API path segment the store prepends to every path.
const DefaultStripPrefix = "files"

// Options control how records become documents.
type Options struct {
	// StripPrefix is dropped when it is the first path segment. Empty disables.
	StripPrefix string
	// BaseURL is prepended to the escaped path to form the download URL.
	BaseURL string
	// Generation is stamped on every produced document.
	Generation uint64
}

// Result is the normalizer's output.
type Result struct {
	Documents  []Document
	Duplicates int // records dropped because their id was already seen
}

// Normalize derives documents from raw records. It is pure: the same input
// and options always yield the same output. Record order is preserved and the
// first record for a given id wins.
func Normalize(records []Record, opts Options) Result {
	out := Result{Documents: make([]Document, 0, len(records))}
	seen := make(map[int64]struct{}, len(records))

	for _, r := range records {
		if _, dup := seen[r.ID]; dup {
			out.Duplicates++
			continue
		}
		seen[r.ID] = struct{}{}

		ext := Extension(r.Title)
		out.Documents = append(out.Documents, Document{
			ID:           ID(r.ID),
			Title:        r.Title,
			Description:  r.Description,
			Path:         r.Path,
			URL:          FileURL(opts.BaseURL, r.Path),
			Type:         KindOf(ext),
			Extension:    ext,
			Directory:    Directory(r.Path, opts.StripPrefix),
			PreviewState: NotLoaded,
			Content:      InitialContent,
			Size:         UnknownSize,
			Generation:   opts.Generation,
		})
	}
	return out
}

// Extension returns the uppercased substring after the last "." in title, or
// "" when there is none.
func Extension(title string) string {
	i := strings.LastIndexByte(title, '.')
	if i < 0 || i == len(title)-1 {
		return ""
	}
	return strings.ToUpper(title[i+1:])
}

// KindOf maps an uppercased extension to its Kind.
func KindOf(ext string) Kind {
	if k, ok := knownKinds[strings.ToUpper(ext)]; ok {
		return k
	}
	return KindUnknown
}

// Directory derives the display directory from a storage path: the filename
// and an optional leading prefix segment are dropped and what remains is
// joined as "/a/b". No intermediate segments yields "/".
func Directory(path, stripPrefix string) string {
	segs := Segments(path)
	if len(segs) > 0 {
		segs = segs[:len(segs)-1]
	}
	if stripPrefix != "" && len(segs) > 0 && segs[0] == stripPrefix {
		segs = segs[1:]
	}
	if len(segs) == 0 {
		return "/"
	}
	return "/" + strings.Join(segs, "/")
}

// Segments splits p on "/" and drops empty segments.
func Segments(p string) []string {
	parts := strings.Split(p, "/")
	segs := parts[:0]
	for _, s := range parts {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// FileURL builds the download URL for a storage path. Each segment is
// escaped so the result is stable for any title.
func FileURL(base, path string) string {
	segs := Segments(path)
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	escaped := "/" + strings.Join(segs, "/")
	return strings.TrimRight(base, "/") + escaped
}
