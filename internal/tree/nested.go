package tree

import "github.com/starford/doclib/internal/document"

// Lookup resolves a document id to its current canonical value.
type Lookup func(id document.ID) (document.Document, bool)

// NestedNode is the JSON-ready projection of a directory.
type NestedNode struct {
	Path      string              `json:"path"`
	Name      string              `json:"name"`
	Expanded  bool                `json:"expanded"`
	Documents []document.Document `json:"documents"`
	Children  []NestedNode        `json:"children"`
}

// Nested projects the tree rooted at "/" into nested values, resolving
// document ids through lookup. Ids lookup cannot resolve are skipped.
func (t *Tree) Nested(lookup Lookup) NestedNode {
	return t.nested(t.nodes[RootPath], lookup)
}

// NestedAt is Nested rooted at path.
func (t *Tree) NestedAt(path string, lookup Lookup) (NestedNode, bool) {
	n, ok := t.Lookup(path)
	if !ok {
		return NestedNode{}, false
	}
	return t.nested(n, lookup), true
}

func (t *Tree) nested(n *Node, lookup Lookup) NestedNode {
	out := NestedNode{
		Path:      n.Path,
		Name:      n.Name,
		Expanded:  n.Expanded,
		Documents: make([]document.Document, 0, len(n.Docs)),
		Children:  make([]NestedNode, 0, len(n.Children)),
	}
	for _, id := range n.Docs {
		if d, ok := lookup(id); ok {
			out.Documents = append(out.Documents, d)
		}
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, t.nested(t.nodes[c], lookup))
	}
	return out
}
