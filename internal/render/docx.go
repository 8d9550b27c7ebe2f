package render

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	wordML       = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	mainPart     = "word/document.xml"
	maxPartBytes = 64 << 20
)

var typography = strings.NewReplacer(
	"►", "->",
	"•", "*",
	"–", "-",
	"—", "--",
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
)

// DOCX extracts the paragraph text of a Word document, one paragraph per
// line. Empty paragraphs are dropped.
type DOCX struct{}

func (DOCX) Render(ctx context.Context, w io.Writer, data []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("docx: open archive: %w", err)
	}
	var part *zip.File
	for _, f := range zr.File {
		if f.Name == mainPart {
			part = f
			break
		}
	}
	if part == nil {
		return fmt.Errorf("docx: %s not found", mainPart)
	}
	rc, err := part.Open()
	if err != nil {
		return fmt.Errorf("docx: open %s: %w", mainPart, err)
	}
	defer rc.Close()

	paras, err := paragraphs(ctx, io.LimitReader(rc, maxPartBytes))
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, strings.Join(paras, "\n"))
	return err
}

func paragraphs(ctx context.Context, r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		out    []string
		cur    strings.Builder
		inText bool
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("docx: parse %s: %w", mainPart, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordML {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br", "cr":
				cur.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Space != wordML {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(typography.Replace(cur.String())); s != "" {
					out = append(out, s)
				}
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	return out, nil
}
