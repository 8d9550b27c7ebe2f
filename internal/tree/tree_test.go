package tree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/doclib/internal/document"
)

func docs(dirs ...string) []document.Document {
	out := make([]document.Document, len(dirs))
	for i, d := range dirs {
		out[i] = document.Document{ID: document.ID(i + 1), Title: "doc", Directory: d}
	}
	return out
}

func TestBuild_EmptyHasRoot(t *testing.T) {
	tr := Build(nil)
	assert.Equal(t, 1, tr.Len())
	root := tr.Root()
	require.NotNil(t, root)
	assert.Equal(t, RootPath, root.Path)
	assert.True(t, root.Expanded)
	assert.Empty(t, root.Children)
	assert.Empty(t, root.Docs)
}

func TestBuild_MaterializesAncestors(t *testing.T) {
	tr := Build(docs("/a/b/c", "/", "/x"))

	for _, p := range []string{"/", "/a", "/a/b", "/a/b/c", "/x"} {
		_, ok := tr.Lookup(p)
		assert.True(t, ok, "missing %s", p)
	}
	assert.Equal(t, 5, tr.Len())

	root := tr.Root()
	assert.Equal(t, []string{"/a", "/x"}, root.Children)
	assert.Equal(t, []document.ID{2}, root.Docs)

	c, _ := tr.Lookup("/a/b/c")
	assert.Equal(t, "c", c.Name)
	assert.Equal(t, "/a/b", c.Parent)
	assert.Equal(t, []document.ID{1}, c.Docs)

	b, _ := tr.Lookup("/a/b")
	assert.Empty(t, b.Docs)
	assert.False(t, b.Expanded)
}

func TestBuild_DocumentOrderAndCoverage(t *testing.T) {
	in := docs("/z", "/a", "/z", "/a/q", "/z")
	tr := Build(in)

	z, _ := tr.Lookup("/z")
	assert.Equal(t, []document.ID{1, 3, 5}, z.Docs)

	seen := map[document.ID]int{}
	tr.Walk(func(n *Node, _ int) bool {
		for _, id := range n.Docs {
			seen[id]++
		}
		return true
	})
	require.Len(t, seen, len(in))
	for id, n := range seen {
		assert.Equal(t, 1, n, "doc %d placed %d times", id, n)
	}
}

func TestBuild_StructuralInvariants(t *testing.T) {
	tr := Build(docs("/a/b", "/a b", "/a/b/c/d", "/b", "/a/bb"))

	visited := map[string]bool{}
	tr.Walk(func(n *Node, _ int) bool {
		assert.False(t, visited[n.Path], "cycle or duplicate at %s", n.Path)
		visited[n.Path] = true
		for _, c := range n.Children {
			if n.Path == RootPath {
				assert.True(t, strings.HasPrefix(c, "/"))
			} else {
				assert.True(t, strings.HasPrefix(c, n.Path+"/"), "%s under %s", c, n.Path)
			}
		}
		return true
	})
	assert.Equal(t, tr.Len(), len(visited))

	a, _ := tr.Lookup("/a")
	assert.Equal(t, []string{"/a/b", "/a/bb"}, a.Children)
}

func TestWalk_PreOrderWithDepth(t *testing.T) {
	tr := Build(docs("/a/b", "/c"))
	var got []string
	tr.Walk(func(n *Node, depth int) bool {
		got = append(got, strings.Repeat(".", depth)+n.Path)
		return true
	})
	assert.Equal(t, []string{"/", "./a", "../a/b", "./c"}, got)
}

func TestWalk_SkipSubtree(t *testing.T) {
	tr := Build(docs("/a/b", "/c"))
	var got []string
	tr.Walk(func(n *Node, _ int) bool {
		got = append(got, n.Path)
		return n.Path != "/a"
	})
	assert.Equal(t, []string{"/", "/a", "/c"}, got)
}

func TestExpandCollapse(t *testing.T) {
	tr := Build(docs("/a/b"))
	assert.True(t, tr.Expand("/a"))
	assert.False(t, tr.Expand("/missing"))
	assert.Equal(t, []string{"/", "/a"}, tr.Expanded())

	assert.True(t, tr.Collapse("/"))
	assert.Equal(t, []string{"/a"}, tr.Expanded())
}

func TestNested_ResolvesThroughLookup(t *testing.T) {
	in := docs("/a", "/")
	byID := map[document.ID]document.Document{}
	for _, d := range in {
		d.Title = "resolved"
		byID[d.ID] = d
	}
	delete(byID, 2)

	tr := Build(in)
	n := tr.Nested(func(id document.ID) (document.Document, bool) {
		d, ok := byID[id]
		return d, ok
	})
	assert.Empty(t, n.Documents)
	require.Len(t, n.Children, 1)
	require.Len(t, n.Children[0].Documents, 1)
	assert.Equal(t, "resolved", n.Children[0].Documents[0].Title)

	_, ok := tr.NestedAt("/nope", nil)
	assert.False(t, ok)
}
