package tree

// NodeID identifies a node within one tree. Builders assign ids in pre-order.
type NodeID int

// Span is a half-open byte range in the source the tree was built from.
type Span struct {
	Start uint
	End   uint
}

// Node is one vertex of a syntax tree. Only Label is mutated by transformations.
type Node struct {
	ID       NodeID
	Kind     Kind
	Type     string // front-end node type, diagnostics only
	Label    string
	Span     *Span // nil when the node has no renderable text
	Parent   *Node
	Children []*Node
}

