package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample builds:
//
//	module
//	  def foo
//	    arg b
//	    use b
//	  use foo
func sample(t *testing.T) *Tree {
	t.Helper()
	b := NewBuilder()
	root := b.Add(nil, KindOther, "module", "", nil)
	def := b.Add(root, KindFunctionDef, "function_definition", "foo", nil)
	b.Add(def, KindArgument, "identifier", "b", nil)
	b.Add(def, KindVariableUse, "identifier", "b", nil)
	b.Add(root, KindVariableUse, "identifier", "foo", nil)
	tr, err := New(root)
	require.NoError(t, err)
	return tr
}

func TestPreorder(t *testing.T) {
	tr := sample(t)
	assert.Equal(t, []string{"", "foo", "b", "b", "foo"}, tr.Labels())
	assert.Equal(t, 5, tr.Len())

	var ids []NodeID
	for _, n := range tr.Preorder() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []NodeID{1, 2, 3, 4, 5}, ids)
}

func TestWalkStops(t *testing.T) {
	tr := sample(t)
	visited := 0
	tr.Walk(func(n *Node) bool {
		visited++
		return n.Kind != KindFunctionDef
	})
	assert.Equal(t, 2, visited)
}

func TestSuccessors(t *testing.T) {
	tr := sample(t)
	next := tr.Successors()

	assert.Equal(t, NodeID(5), next[2], "first node after the definition body")
	assert.Equal(t, NodeID(4), next[3])
	_, ok := next[5]
	assert.False(t, ok, "last node has no successor")
	_, ok = next[1]
	assert.False(t, ok, "root subtree spans the whole walk")
}

func TestEnclosingDefinitions(t *testing.T) {
	tr := sample(t)
	enclosing := tr.EnclosingDefinitions()

	assert.Equal(t, tr.Node(2), enclosing[3])
	assert.Equal(t, tr.Node(2), enclosing[4])
	assert.NotContains(t, enclosing, NodeID(5))
	assert.NotContains(t, enclosing, NodeID(2), "a definition is not enclosed by itself")
	assert.Len(t, enclosing, 2)
}

func TestEnclosingDefinitionsNested(t *testing.T) {
	b := NewBuilder()
	root := b.Add(nil, KindOther, "module", "", nil)
	outer := b.Add(root, KindClassDef, "class_definition", "Outer", nil)
	inner := b.Add(outer, KindFunctionDef, "function_definition", "method", nil)
	block := b.Add(inner, KindOther, "block", "", nil)
	leaf := b.Add(block, KindVariableDef, "identifier", "x", nil)
	tr, err := New(root)
	require.NoError(t, err)

	enclosing := tr.EnclosingDefinitions()
	assert.Equal(t, outer, enclosing[inner.ID])
	assert.Equal(t, inner, enclosing[block.ID])
	assert.Equal(t, inner, enclosing[leaf.ID])
	assert.NotContains(t, enclosing, outer.ID)
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	root := &Node{ID: 1}
	root.Children = []*Node{{ID: 1, Parent: root}}
	_, err := New(root)
	assert.Error(t, err)

	_, err = New(nil)
	assert.Error(t, err)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "ClassDef", KindClassDef.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
	assert.False(t, Kind(42).Known())
	assert.True(t, KindOther.Known())
}

func TestRender(t *testing.T) {
	source := []byte("x = 1\ny = x + 2\n")
	b := NewBuilder()
	root := b.Add(nil, KindOther, "module", "", nil)
	x := b.Add(root, KindVariableDef, "identifier", "x", &Span{Start: 0, End: 1})
	b.Add(root, KindVariableDef, "identifier", "y", &Span{Start: 6, End: 7})
	use := b.Add(root, KindVariableUse, "identifier", "x", &Span{Start: 10, End: 11})
	tr, err := New(root)
	require.NoError(t, err)

	out, err := Render(source, tr)
	require.NoError(t, err)
	assert.Equal(t, string(source), string(out))

	x.Label = "v1"
	use.Label = "v1"
	out, err = Render(source, tr)
	require.NoError(t, err)
	assert.Equal(t, "v1 = 1\ny = v1 + 2\n", string(out))
}

func TestRenderRejectsBadSpan(t *testing.T) {
	b := NewBuilder()
	root := b.Add(nil, KindOther, "module", "", nil)
	b.Add(root, KindVariableUse, "identifier", "x", &Span{Start: 3, End: 9})
	tr, err := New(root)
	require.NoError(t, err)

	_, err = Render([]byte("abc"), tr)
	assert.Error(t, err)
}
