package render

import (
	"bytes"
	"context"
	"errors"
	"io"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Text passes UTF-8 text through unchanged, minus a leading byte-order mark.
type Text struct{}

func (Text) Render(_ context.Context, w io.Writer, data []byte) error {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return errors.New("text: content is not valid UTF-8")
	}
	_, err := w.Write(data)
	return err
}

// Markdown renders Markdown to HTML.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown returns a GFM-enabled Markdown renderer. Raw HTML in the
// source is not passed through.
func NewMarkdown() Markdown {
	return Markdown{md: goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)}
}

func (m Markdown) Render(_ context.Context, w io.Writer, data []byte) error {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return errors.New("markdown: content is not valid UTF-8")
	}
	return m.md.Convert(data, w)
}
