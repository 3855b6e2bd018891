package anonymize

import "astanon/internal/engine/tree"

// truncation closes a category's frames down to depth.
type truncation struct {
	category Category
	depth    int
}

// nestedFrames lists the registries that gain a frame for a definition of
// kind k nested inside enclosing.
func nestedFrames(k, enclosing tree.Kind) []Category {
	switch {
	case k == tree.KindClassDef:
		return []Category{Variable, Argument, Function, Class}
	case enclosing == tree.KindClassDef:
		return []Category{Variable, Argument, Function}
	default:
		return []Category{Variable, Argument}
	}
}

// openNestedScope pushes the frames for def's body and schedules their
// release on the first node after def's subtree. enclosing is nil for a
// definition under a module-level block such as an if statement.
func (c *anonymizationContext) openNestedScope(def, enclosing *tree.Node) {
	enclosingKind := tree.KindOther
	if enclosing != nil {
		enclosingKind = enclosing.Kind
	}
	frames := nestedFrames(def.Kind, enclosingKind)
	next, hasNext := c.successors[def.ID]
	for _, cat := range frames {
		reg := c.registries[cat]
		if hasNext {
			c.pending[next] = append(c.pending[next], truncation{category: cat, depth: reg.Depth()})
		}
		reg.Push()
	}
}

// runBoundaryActions applies pending truncations first, then top-level resets.
func (c *anonymizationContext) runBoundaryActions(n *tree.Node) {
	if actions, ok := c.pending[n.ID]; ok {
		for _, a := range actions {
			c.registries[a.category].TruncateTo(a.depth)
		}
		delete(c.pending, n.ID)
	}
	if c.plan.resetBefore[n.ID] {
		c.resetAll()
	}
	if kind, ok := c.plan.resetAndPushBefore[n.ID]; ok {
		c.resetAll()
		for _, cat := range topLevelFrames(kind) {
			c.registries[cat].Push()
		}
	}
}

func (c *anonymizationContext) resetAll() {
	for _, reg := range c.registries {
		reg.Reset()
	}
}
