// Package parser derives catalog metadata (title and description) from a
// stored document's name and content.
package parser

import (
	"bytes"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxDescription = 280

// Meta is the catalog metadata of one document.
type Meta struct {
	Title       string
	Description string
}

// Describe returns the metadata for the file at name. The title is always
// the base filename. Markdown files may set a description in their YAML
// frontmatter; anything else is described by its type.
func Describe(name string, data []byte) Meta {
	title := path.Base(name)
	ext := strings.ToUpper(strings.TrimPrefix(path.Ext(title), "."))

	desc := ""
	if ext == "MD" {
		if fm, _ := splitFrontmatter(data); fm != nil {
			desc = stringField(fm, "description")
			if desc == "" {
				desc = stringField(fm, "summary")
			}
		}
	}
	if desc == "" {
		desc = TypeDescription(ext)
	}
	return Meta{Title: title, Description: truncate(desc, maxDescription)}
}

// TypeDescription is the fallback description for a file extension.
func TypeDescription(ext string) string {
	if ext == "" {
		ext = "UNKNOWN"
	}
	return "A document of type " + ext
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the body. Missing or invalid frontmatter yields a nil map and the
// whole input as body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	trimmed = bytes.TrimPrefix(trimmed, []byte("\xEF\xBB\xBF"))

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

func stringField(fm map[string]any, key string) string {
	if s, ok := fm[key].(string); ok {
		return strings.Join(strings.Fields(s), " ")
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
