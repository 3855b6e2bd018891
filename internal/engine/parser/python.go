package parser

import (
	"astanon/internal/engine/tree"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// PythonBuilder maps a tree-sitter Python syntax tree onto tree nodes.
// Expressions evaluated when a def or class statement runs (decorators,
// defaults, annotations, base classes) are placed before the definition in
// the enclosing scope.
type PythonBuilder struct {
	engine *BuilderEngine
}

func NewPythonBuilder() *PythonBuilder {
	b := &PythonBuilder{}
	b.engine = NewBuilderEngine(map[string]NodeHandler{
		"function_definition":      b.buildFunction,
		"class_definition":         b.buildClass,
		"decorated_definition":     b.buildDecorated,
		"lambda":                   b.buildLambda,
		"assignment":               b.buildAssignment,
		"augmented_assignment":     b.buildAssignment,
		"for_statement":            b.buildFor,
		"for_in_clause":            b.buildFor,
		"named_expression":         b.buildNamedExpression,
		"as_pattern":               b.buildAsPattern,
		"keyword_argument":         b.buildKeywordArgument,
		"attribute":                b.buildAttribute,
		"list_comprehension":       b.buildComprehension,
		"set_comprehension":        b.buildComprehension,
		"dictionary_comprehension": b.buildComprehension,
		"generator_expression":     b.buildComprehension,
	},
		"import_statement",
		"import_from_statement",
		"future_import_statement",
		"comment",
	)
	return b
}

// Build converts root, normally a "module" node, into a tree.
func (b *PythonBuilder) Build(root *sitter.Node, source []byte) (*tree.Tree, error) {
	ctx := &BuildContext{Source: source, Builder: tree.NewBuilder(), engine: b.engine}
	module := ctx.Structural(nil, root)
	ctx.BuildChildren(module, root)
	return tree.New(module)
}

func (b *PythonBuilder) buildFunction(ctx *BuildContext, parent *tree.Node, node *sitter.Node) {
	name := node.ChildByFieldName("name")
	params := parameterList(node.ChildByFieldName("parameters"))
	returns := node.ChildByFieldName("return_type")

	for _, p := range params {
		for _, expr := range p.evaluated {
			ctx.Build(parent, expr)
		}
	}
	ctx.Build(parent, returns)

	def := ctx.Named(parent, tree.KindFunctionDef, node, name)
	for _, p := range params {
		ctx.Leaf(def, tree.KindArgument, p.name)
	}
	ctx.pushDeclared(declaredNames(ctx, node.ChildByFieldName("body")))
	defer ctx.popDeclared()
	ctx.BuildChildren(def, node, name, node.ChildByFieldName("parameters"), returns)
}

func (b *PythonBuilder) buildClass(ctx *BuildContext, parent *tree.Node, node *sitter.Node) {
	name := node.ChildByFieldName("name")
	bases := node.ChildByFieldName("superclasses")
	typeParams := node.ChildByFieldName("type_parameters")

	ctx.Build(parent, bases)
	def := ctx.Named(parent, tree.KindClassDef, node, name)
	ctx.pushDeclared(nil)
	defer ctx.popDeclared()
	ctx.Build(def, typeParams)
	ctx.BuildChildren(def, node, name, bases, typeParams)
}

// buildDecorated flattens the wrapper so the definition stays a direct child
// of its scope.
func (b *PythonBuilder) buildDecorated(ctx *BuildContext, parent *tree.Node, node *sitter.Node) {
	ctx.BuildChildren(parent, node)
}

func (b *PythonBuilder) buildLambda(ctx *BuildContext, parent *tree.Node, node *sitter.Node) {
	lambda := ctx.Structural(parent, node)
	for _, p := range parameterList(node.ChildByFieldName("parameters")) {
		ctx.Leaf(lambda, tree.KindArgument, p.name)
		for _, expr := range p.evaluated {
			ctx.Build(lambda, expr)
		}
	}
	ctx.Build(lambda, node.ChildByFieldName("body"))
}

func (b *PythonBuilder) buildAssignment(ctx *BuildContext, parent *tree.Node, node *sitter.Node) {
	stmt := ctx.Structural(parent, node)
	left := node.ChildByFieldName("left")
	b.buildTarget(ctx, stmt, left)
	ctx.BuildChildren(stmt, node, left)
}

// buildFor handles loops and comprehension clauses, which bind their left
// side.
func (b *PythonBuilder) buildFor(ctx *BuildContext, parent *tree.Node, node *sitter.Node) {
	loop := ctx.Structural(parent, node)
	left := node.ChildByFieldName("left")
	b.buildTarget(ctx, loop, left)
	ctx.BuildChildren(loop, node, left)
}

func (b *PythonBuilder) buildNamedExpression(ctx *BuildContext, parent *tree.Node, node *sitter.Node) {
	expr := ctx.Structural(parent, node)
	name := node.ChildByFieldName("name")
	b.buildTarget(ctx, expr, name)
	ctx.BuildChildren(expr, node, name)
}

// buildAsPattern covers "with x as y" and "except E as e".
func (b *PythonBuilder) buildAsPattern(ctx *BuildContext, parent *tree.Node, node *sitter.Node) {
	pattern := ctx.Structural(parent, node)
	alias := node.ChildByFieldName("alias")
	ctx.BuildChildren(pattern, node, alias)
	b.buildTarget(ctx, pattern, alias)
}

// buildKeywordArgument keeps the keyword itself: it names a parameter of
// the callee, not a binding here.
func (b *PythonBuilder) buildKeywordArgument(ctx *BuildContext, parent *tree.Node, node *sitter.Node) {
	arg := ctx.Structural(parent, node)
	ctx.Build(arg, node.ChildByFieldName("value"))
}

// buildAttribute renames the object but never the member name.
func (b *PythonBuilder) buildAttribute(ctx *BuildContext, parent *tree.Node, node *sitter.Node) {
	attr := ctx.Structural(parent, node)
	ctx.Build(attr, node.ChildByFieldName("object"))
}

// buildComprehension visits the clauses before the element expression so
// loop variables are bound before they are used.
func (b *PythonBuilder) buildComprehension(ctx *BuildContext, parent *tree.Node, node *sitter.Node) {
	comp := ctx.Structural(parent, node)
	body := node.ChildByFieldName("body")
	ctx.BuildChildren(comp, node, body)
	ctx.Build(comp, body)
}

// buildTarget marks the names bound by an assignment-like target.
func (b *PythonBuilder) buildTarget(ctx *BuildContext, parent *tree.Node, node *sitter.Node) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "identifier":
		ctx.Leaf(parent, targetKind(ctx, node), node)
	case "as_pattern_target":
		if node.NamedChildCount() == 0 {
			ctx.Leaf(parent, targetKind(ctx, node), node)
			return
		}
		group := ctx.Structural(parent, node)
		for _, child := range namedChildren(node) {
			b.buildTarget(ctx, group, child)
		}
	case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list",
		"parenthesized_expression", "list_splat_pattern", "list_splat":
		group := ctx.Structural(parent, node)
		for _, child := range namedChildren(node) {
			b.buildTarget(ctx, group, child)
		}
	default:
		ctx.Build(parent, node)
	}
}

// targetKind makes a binding of a global or nonlocal name a use of the
// outer binding.
func targetKind(ctx *BuildContext, node *sitter.Node) tree.Kind {
	if ctx.rebinds(ctx.Text(node)) {
		return tree.KindVariableUse
	}
	return tree.KindVariableDef
}

// declaredNames collects the names listed by global and nonlocal statements
// in a function body, without entering nested scopes.
func declaredNames(ctx *BuildContext, body *sitter.Node) map[string]bool {
	names := make(map[string]bool)
	var scan func(n *sitter.Node)
	scan = func(n *sitter.Node) {
		for _, child := range namedChildren(n) {
			switch child.Kind() {
			case "global_statement", "nonlocal_statement":
				for _, id := range namedChildren(child) {
					if id.Kind() == "identifier" {
						names[ctx.Text(id)] = true
					}
				}
			case "function_definition", "class_definition", "lambda":
			default:
				scan(child)
			}
		}
	}
	scan(body)
	return names
}

// parameter is one formal parameter: the bound name and the expressions
// evaluated at definition time (annotation, default).
type parameter struct {
	name      *sitter.Node
	evaluated []*sitter.Node
}

func parameterList(params *sitter.Node) []parameter {
	var out []parameter
	for _, child := range namedChildren(params) {
		if p, ok := parseParameter(child); ok {
			out = append(out, p)
		}
	}
	return out
}

func parseParameter(node *sitter.Node) (parameter, bool) {
	switch node.Kind() {
	case "identifier":
		return parameter{name: node}, true
	case "list_splat_pattern", "dictionary_splat_pattern":
		name := firstIdentifier(node)
		return parameter{name: name}, name != nil
	case "default_parameter":
		name := parameterName(node.ChildByFieldName("name"))
		return parameter{name: name, evaluated: nonNil(node.ChildByFieldName("value"))}, name != nil
	case "typed_default_parameter":
		name := parameterName(node.ChildByFieldName("name"))
		evaluated := nonNil(node.ChildByFieldName("type"), node.ChildByFieldName("value"))
		return parameter{name: name, evaluated: evaluated}, name != nil
	case "typed_parameter":
		typ := node.ChildByFieldName("type")
		for _, child := range namedChildren(node) {
			if sameNode(child, typ) {
				continue
			}
			if name := parameterName(child); name != nil {
				return parameter{name: name, evaluated: nonNil(typ)}, true
			}
		}
	}
	return parameter{}, false
}

func parameterName(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.Kind() == "identifier" {
		return node
	}
	return firstIdentifier(node)
}

func firstIdentifier(node *sitter.Node) *sitter.Node {
	for _, child := range namedChildren(node) {
		if child.Kind() == "identifier" {
			return child
		}
	}
	return nil
}

func nonNil(nodes ...*sitter.Node) []*sitter.Node {
	out := nodes[:0]
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}
