package anonymize

import (
	"sort"

	"astanon/internal/core/errors"
	"astanon/internal/engine/tree"
)

// Entry records one rename: the node now labelled New was labelled Old.
type Entry struct {
	NodeID tree.NodeID
	New    string
	Old    string
}

// Provenance is the per-tree side-table written by Apply and replayed by
// InverseApply. It holds at most one entry per node.
type Provenance struct {
	entries map[tree.NodeID]Entry
}

func NewProvenance() *Provenance {
	return &Provenance{entries: make(map[tree.NodeID]Entry)}
}

// ProvenanceFromEntries rebuilds a table, typically loaded from storage.
// Two entries for one node make the table malformed.
func ProvenanceFromEntries(entries []Entry) (*Provenance, error) {
	p := NewProvenance()
	for _, e := range entries {
		if _, dup := p.entries[e.NodeID]; dup {
			return nil, errors.Newf(errors.CodeMalformedProvenance, "duplicate entry for node %d", e.NodeID).
				WithContext(errors.CtxNode, int(e.NodeID))
		}
		p.entries[e.NodeID] = e
	}
	return p, nil
}

// Record stores (newLabel -> oldLabel) for id, replacing any earlier entry.
func (p *Provenance) Record(id tree.NodeID, newLabel, oldLabel string) {
	p.entries[id] = Entry{NodeID: id, New: newLabel, Old: oldLabel}
}

func (p *Provenance) Get(id tree.NodeID) (Entry, bool) {
	e, ok := p.entries[id]
	return e, ok
}

func (p *Provenance) Len() int {
	if p == nil {
		return 0
	}
	return len(p.entries)
}

// Entries returns the table ordered by node id.
func (p *Provenance) Entries() []Entry {
	out := make([]Entry, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

// validate checks every entry against t without touching it.
func (p *Provenance) validate(t *tree.Tree) error {
	for _, e := range p.Entries() {
		n := t.Node(e.NodeID)
		switch {
		case n == nil:
			return malformed(e, "entry refers to a node that is not in the tree")
		case e.New == "" || e.Old == "":
			return malformed(e, "entry must map one non-empty label to another")
		case n.Label != e.New:
			return malformed(e, "node label does not match the recorded anonymous label").
				WithContext(errors.CtxLabel, n.Label)
		}
	}
	return nil
}

func malformed(e Entry, msg string) *errors.DomainError {
	return errors.Newf(errors.CodeMalformedProvenance, "%s", msg).
		WithContext(errors.CtxNode, int(e.NodeID))
}
