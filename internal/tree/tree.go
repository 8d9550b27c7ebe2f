// Package tree reconstructs a directory hierarchy from the flat document
// list. Nodes live in an arena keyed by path; documents are referenced by id
// and resolved through the canonical store, never copied.
package tree

import (
	"sort"
	"strings"

	"github.com/starford/doclib/internal/document"
)

// RootPath is the path of the always-present root node.
const RootPath = "/"

// Node is one directory.
type Node struct {
	Path     string
	Name     string
	Parent   string // empty for the root
	Children []string
	Docs     []document.ID
	Expanded bool
}

// Tree is a built directory hierarchy. It is not safe for concurrent
// mutation; Expand and Collapse are the only mutators.
type Tree struct {
	nodes map[string]*Node
}

// Build materializes every directory referenced by docs, including all
// ancestors, and assigns each document to its directory.
func Build(docs []document.Document) *Tree {
	t := &Tree{nodes: map[string]*Node{
		RootPath: {Path: RootPath, Name: RootPath, Expanded: true},
	}}

	paths := make(map[string]struct{})
	for _, d := range docs {
		for _, p := range ancestors(d.Directory) {
			paths[p] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	for _, p := range sorted {
		parent := parentOf(p)
		if _, ok := t.nodes[parent]; !ok {
			parent = RootPath
		}
		t.nodes[p] = &Node{Path: p, Name: p[strings.LastIndexByte(p, '/')+1:], Parent: parent}
		t.nodes[parent].Children = append(t.nodes[parent].Children, p)
	}

	for _, d := range docs {
		n, ok := t.nodes[d.Directory]
		if !ok {
			n = t.nodes[RootPath]
		}
		n.Docs = append(n.Docs, d.ID)
	}

	for _, n := range t.nodes {
		sort.Strings(n.Children)
	}
	return t
}

// ancestors returns every non-root prefix of dir, shortest first.
// "/a/b/c" yields "/a", "/a/b", "/a/b/c".
func ancestors(dir string) []string {
	segs := document.Segments(dir)
	out := make([]string, 0, len(segs))
	var b strings.Builder
	for _, s := range segs {
		b.WriteByte('/')
		b.WriteString(s)
		out = append(out, b.String())
	}
	return out
}

// parentOf returns the longest proper prefix of p ending at its last "/".
func parentOf(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i <= 0 {
		return RootPath
	}
	return p[:i]
}

// Lookup returns the node at path.
func (t *Tree) Lookup(path string) (*Node, bool) {
	if path == "" {
		path = RootPath
	}
	n, ok := t.nodes[path]
	return n, ok
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.nodes[RootPath] }

// Len returns the number of directories, root included.
func (t *Tree) Len() int { return len(t.nodes) }

// Walk visits every node in pre-order, children in path order. Returning
// false from fn skips that node's subtree.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	t.walk(t.nodes[RootPath], 0, fn)
}

func (t *Tree) walk(n *Node, depth int, fn func(*Node, int) bool) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		t.walk(t.nodes[c], depth+1, fn)
	}
}

// Expand marks path as expanded. It reports whether the node exists.
func (t *Tree) Expand(path string) bool { return t.setExpanded(path, true) }

// Collapse marks path as collapsed. It reports whether the node exists.
func (t *Tree) Collapse(path string) bool { return t.setExpanded(path, false) }

func (t *Tree) setExpanded(path string, v bool) bool {
	n, ok := t.Lookup(path)
	if ok {
		n.Expanded = v
	}
	return ok
}

// Expanded returns the paths of all expanded nodes.
func (t *Tree) Expanded() []string {
	var out []string
	t.Walk(func(n *Node, _ int) bool {
		if n.Expanded {
			out = append(out, n.Path)
		}
		return true
	})
	return out
}
