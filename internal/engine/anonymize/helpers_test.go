package anonymize

import (
	"testing"

	"astanon/internal/engine/tree"

	"github.com/stretchr/testify/require"
)

// shape describes a node for test trees; ids follow pre-order.
type shape struct {
	kind     tree.Kind
	label    string
	children []shape
}

func other(children ...shape) shape { return shape{kind: tree.KindOther, children: children} }
func vdef(label string) shape       { return shape{kind: tree.KindVariableDef, label: label} }
func use(label string) shape        { return shape{kind: tree.KindVariableUse, label: label} }
func arg(label string) shape        { return shape{kind: tree.KindArgument, label: label} }

func fn(label string, children ...shape) shape {
	return shape{kind: tree.KindFunctionDef, label: label, children: children}
}

func class(label string, children ...shape) shape {
	return shape{kind: tree.KindClassDef, label: label, children: children}
}

func buildTree(t *testing.T, top ...shape) *tree.Tree {
	t.Helper()
	b := tree.NewBuilder()
	root := b.Add(nil, tree.KindOther, "module", "", nil)
	var add func(parent *tree.Node, s shape)
	add = func(parent *tree.Node, s shape) {
		n := b.Add(parent, s.kind, "", s.label, nil)
		for _, c := range s.children {
			add(n, c)
		}
	}
	for _, s := range top {
		add(root, s)
	}
	tr, err := tree.New(root)
	require.NoError(t, err)
	return tr
}

// labeled returns the non-empty labels in walk order.
func labeled(tr *tree.Tree) []string {
	var out []string
	for _, l := range tr.Labels() {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
