package parser

import (
	"astanon/internal/engine/tree"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// NodeHandler converts a syntax node into tree nodes under parent.
type NodeHandler func(ctx *BuildContext, parent *tree.Node, node *sitter.Node)

// BuildContext carries the source and the id-assigning builder through one
// conversion.
type BuildContext struct {
	Source  []byte
	Builder *tree.Builder
	engine  *BuilderEngine
	// one set per open function or class body: names whose assignments
	// rebind an outer scope instead of creating a local
	declared []map[string]bool
}

// BuilderEngine walks a syntax tree and dispatches handlers by node kind.
// Identifiers and kinds without a handler are handled by the engine itself.
type BuilderEngine struct {
	handlers map[string]NodeHandler
	skipped  map[string]bool
}

func NewBuilderEngine(handlers map[string]NodeHandler, skipped ...string) *BuilderEngine {
	skip := make(map[string]bool, len(skipped))
	for _, kind := range skipped {
		skip[kind] = true
	}
	return &BuilderEngine{handlers: handlers, skipped: skip}
}

// Build converts node and its named descendants into children of parent.
// A bare identifier reached here is a use.
func (c *BuildContext) Build(parent *tree.Node, node *sitter.Node) {
	if node == nil || !node.IsNamed() {
		return
	}
	kind := node.Kind()
	if c.engine.skipped[kind] {
		return
	}
	if handler, ok := c.engine.handlers[kind]; ok {
		handler(c, parent, node)
		return
	}
	if kind == "identifier" {
		c.Leaf(parent, tree.KindVariableUse, node)
		return
	}
	c.BuildChildren(c.Structural(parent, node), node)
}

// BuildChildren builds every named child of node except the ones listed.
func (c *BuildContext) BuildChildren(parent *tree.Node, node *sitter.Node, except ...*sitter.Node) {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if containsNode(except, child) {
			continue
		}
		c.Build(parent, child)
	}
}

// Structural adds a label-less node that only carries shape.
func (c *BuildContext) Structural(parent *tree.Node, node *sitter.Node) *tree.Node {
	return c.Builder.Add(parent, tree.KindOther, node.Kind(), "", nil)
}

// Leaf adds a renamable node whose label is the source text of node.
func (c *BuildContext) Leaf(parent *tree.Node, kind tree.Kind, node *sitter.Node) *tree.Node {
	return c.Builder.Add(parent, kind, node.Kind(), c.Text(node), c.Span(node))
}

// Named adds a renamable node of kind for the syntax node owner, labelled and
// spanned by its name child.
func (c *BuildContext) Named(parent *tree.Node, kind tree.Kind, owner, name *sitter.Node) *tree.Node {
	return c.Builder.Add(parent, kind, owner.Kind(), c.Text(name), c.Span(name))
}

func (c *BuildContext) pushDeclared(names map[string]bool) {
	c.declared = append(c.declared, names)
}

func (c *BuildContext) popDeclared() {
	c.declared = c.declared[:len(c.declared)-1]
}

// rebinds reports whether the innermost body declared name global or
// nonlocal.
func (c *BuildContext) rebinds(name string) bool {
	if len(c.declared) == 0 {
		return false
	}
	return c.declared[len(c.declared)-1][name]
}

func (c *BuildContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(c.Source[node.StartByte():node.EndByte()])
}

func (c *BuildContext) Span(node *sitter.Node) *tree.Span {
	return &tree.Span{Start: node.StartByte(), End: node.EndByte()}
}

// sameNode compares syntax nodes by position; wrappers returned by separate
// accessor calls are distinct values.
func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Kind() == b.Kind()
}

func containsNode(nodes []*sitter.Node, node *sitter.Node) bool {
	for _, n := range nodes {
		if sameNode(n, node) {
			return true
		}
	}
	return false
}

func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, node.NamedChildCount())
	for i := uint(0); i < node.NamedChildCount(); i++ {
		out = append(out, node.NamedChild(i))
	}
	return out
}
