package tree

// Builder hands out sequential ids. Callers must add nodes in pre-order for
// ids to follow the walk order.
type Builder struct {
	next NodeID
}

func NewBuilder() *Builder {
	return &Builder{next: 1}
}

// Add creates a node and appends it to parent when parent is non-nil.
func (b *Builder) Add(parent *Node, kind Kind, typ, label string, span *Span) *Node {
	n := &Node{ID: b.next, Kind: kind, Type: typ, Label: label, Span: span, Parent: parent}
	b.next++
	if parent != nil {
		parent.Children = append(parent.Children, n)
	}
	return n
}
