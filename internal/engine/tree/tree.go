package tree

import "fmt"

// Tree owns a rooted node hierarchy and an id index over it.
type Tree struct {
	Root  *Node
	index map[NodeID]*Node
}

// New indexes root and every descendant. Duplicate ids are rejected.
func New(root *Node) (*Tree, error) {
	if root == nil {
		return nil, fmt.Errorf("tree root must not be nil")
	}
	t := &Tree{Root: root, index: make(map[NodeID]*Node)}
	var err error
	walk(root, func(n *Node) bool {
		if _, dup := t.index[n.ID]; dup {
			err = fmt.Errorf("duplicate node id %d", n.ID)
			return false
		}
		t.index[n.ID] = n
		return true
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Node returns the node with id, or nil.
func (t *Tree) Node(id NodeID) *Node {
	return t.index[id]
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return len(t.index)
}

// Walk visits nodes in pre-order: parent before children, children left to
// right. Returning false from fn stops the walk.
func (t *Tree) Walk(fn func(*Node) bool) {
	walk(t.Root, fn)
}

// Preorder returns every node in walk order.
func (t *Tree) Preorder() []*Node {
	out := make([]*Node, 0, len(t.index))
	t.Walk(func(n *Node) bool {
		out = append(out, n)
		return true
	})
	return out
}

// Labels returns node labels in walk order.
func (t *Tree) Labels() []string {
	nodes := t.Preorder()
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Label
	}
	return out
}

// Successors maps every node to the first node visited after its subtree.
// Nodes whose subtree ends the walk have no entry.
func (t *Tree) Successors() map[NodeID]NodeID {
	order := t.Preorder()
	pos := make(map[NodeID]int, len(order))
	for i, n := range order {
		pos[n.ID] = i
	}
	out := make(map[NodeID]NodeID, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		end := i
		if last := lastDescendant(n); last != n {
			end = pos[last.ID]
		}
		if end+1 < len(order) {
			out[n.ID] = order[end+1].ID
		}
	}
	return out
}

// EnclosingDefinitions maps every node to its nearest function or class
// definition ancestor. Module-level nodes have no entry.
func (t *Tree) EnclosingDefinitions() map[NodeID]*Node {
	out := make(map[NodeID]*Node, len(t.index))
	var visit func(n, def *Node)
	visit = func(n, def *Node) {
		if def != nil {
			out[n.ID] = def
		}
		if n.Kind.IsDefinition() {
			def = n
		}
		for _, child := range n.Children {
			visit(child, def)
		}
	}
	if t.Root != nil {
		visit(t.Root, nil)
	}
	return out
}

func lastDescendant(n *Node) *Node {
	for len(n.Children) > 0 {
		n = n.Children[len(n.Children)-1]
	}
	return n
}

func walk(n *Node, fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, child := range n.Children {
		if !walk(child, fn) {
			return false
		}
	}
	return true
}
