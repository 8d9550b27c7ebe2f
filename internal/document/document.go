// Package document defines the library's Document type, its preview state
// machine, and the normalizer that derives documents from raw store records.
package document

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
)

// ID identifies a document for the lifetime of a session.
type ID int64

// Kind is the closed set of document types the library knows about.
type Kind string

const (
	KindPDF     Kind = "PDF"
	KindDOCX    Kind = "DOCX"
	KindMD      Kind = "MD"
	KindTXT     Kind = "TXT"
	KindUnknown Kind = "UNKNOWN"
)

var knownKinds = map[string]Kind{
	"PDF":  KindPDF,
	"DOCX": KindDOCX,
	"MD":   KindMD,
	"TXT":  KindTXT,
}

// Kinds returns every known kind, UNKNOWN last.
func Kinds() []Kind {
	return []Kind{KindPDF, KindDOCX, KindMD, KindTXT, KindUnknown}
}

// Record is the raw shape returned by the remote store's list endpoint.
type Record struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Path        string `json:"path"`
}

// Size is a byte count that is unknown until the document has been fetched.
type Size struct {
	bytes int64
	known bool
}

// UnknownSize is the size of a document that has never been fetched.
var UnknownSize = Size{}

// SizeOf returns a known size of n bytes.
func SizeOf(n int64) Size { return Size{bytes: n, known: true} }

// Bytes returns the byte count and whether it is known.
func (s Size) Bytes() (int64, bool) { return s.bytes, s.known }

// String renders the size for display, "Unknown" until known.
func (s Size) String() string {
	if !s.known {
		return "Unknown"
	}
	return humanize.Bytes(uint64(s.bytes))
}

// MarshalJSON encodes the display form.
func (s Size) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes the display form. Sizes are rounded by humanize, so
// the byte count is approximate; SizeBytes carries the exact value.
func (s *Size) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	if str == "" || str == "Unknown" {
		*s = UnknownSize
		return nil
	}
	n, err := humanize.ParseBytes(str)
	if err != nil {
		return fmt.Errorf("document: parse size %q: %w", str, err)
	}
	*s = SizeOf(int64(n))
	return nil
}

// Document is a single file's metadata plus its derived display and preview state.
type Document struct {
	ID           ID           `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Path         string       `json:"path"`
	URL          string       `json:"url,omitempty"`
	Type         Kind         `json:"type"`
	Extension    string       `json:"extension"`
	Directory    string       `json:"directory"`
	PreviewState PreviewState `json:"preview_state"`
	Content      string       `json:"content"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Size         Size         `json:"size"`
	SizeBytes    int64        `json:"size_bytes,omitempty"`
	// Generation is the refresh cycle this instance was created in. A
	// refresh produces new instances; results for an older generation are
	// never applied to a newer one.
	Generation uint64 `json:"-"`
}

// Loaded reports whether the preview has been computed.
func (d Document) Loaded() bool { return d.PreviewState == Loaded }

// WithSize returns d with a known byte size.
func (d Document) WithSize(n int64) Document {
	d.Size = SizeOf(n)
	d.SizeBytes = n
	return d
}
