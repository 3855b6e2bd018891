package tree

import (
	"bytes"
	"fmt"
	"sort"
)

// Render writes source back out with every spanned node's text replaced by
// its current label. An untouched tree renders to the original bytes.
func Render(source []byte, t *Tree) ([]byte, error) {
	var spanned []*Node
	t.Walk(func(n *Node) bool {
		if n.Span != nil {
			spanned = append(spanned, n)
		}
		return true
	})
	sort.SliceStable(spanned, func(i, j int) bool {
		return spanned[i].Span.Start < spanned[j].Span.Start
	})

	var buf bytes.Buffer
	buf.Grow(len(source))
	var cursor uint
	for _, n := range spanned {
		s := n.Span
		if s.Start < cursor || s.End < s.Start || s.End > uint(len(source)) {
			return nil, fmt.Errorf("node %d has invalid span [%d,%d)", n.ID, s.Start, s.End)
		}
		buf.Write(source[cursor:s.Start])
		buf.WriteString(n.Label)
		cursor = s.End
	}
	buf.Write(source[cursor:])
	return buf.Bytes(), nil
}
