package anonymize

import "astanon/internal/engine/tree"

// boundaryPlan marks top-level siblings where local counters restart.
//
//	[1] a = 5         global counters
//	[2] def foo() ... reset, then push a local frame
//	[3] b = 5         reset back to global
//	[4] class C ...   reset, then push (functions too)
//	[5] def bar() ... reset, then push
type boundaryPlan struct {
	resetBefore        map[tree.NodeID]bool
	resetAndPushBefore map[tree.NodeID]tree.Kind
}

// detectBoundaries scans the root's children in order.
func detectBoundaries(root *tree.Node) boundaryPlan {
	plan := boundaryPlan{
		resetBefore:        make(map[tree.NodeID]bool),
		resetAndPushBefore: make(map[tree.NodeID]tree.Kind),
	}
	if root == nil {
		return plan
	}
	for i, sibling := range root.Children {
		if !sibling.Kind.IsDefinition() {
			continue
		}
		plan.resetAndPushBefore[sibling.ID] = sibling.Kind
		if i+1 < len(root.Children) {
			plan.resetBefore[root.Children[i+1].ID] = true
		}
	}
	return plan
}

// topLevelFrames lists the registries that gain a frame when a top-level
// definition starts.
func topLevelFrames(k tree.Kind) []Category {
	if k == tree.KindClassDef {
		return []Category{Variable, Argument, Function}
	}
	return []Category{Variable, Argument}
}
