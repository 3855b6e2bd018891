package anonymize

import (
	"log/slog"
	"sync"
	"time"

	"astanon/internal/core/errors"
	"astanon/internal/engine/tree"
	"astanon/internal/shared/observability"
)

// DefaultExemptNames are self-reference names that are never renamed.
var DefaultExemptNames = []string{"self", "cls"}

// Transformation is a reversible in-place rewrite of a tree.
type Transformation interface {
	Apply(t *tree.Tree, recordMetadata bool)
	InverseApply(t *tree.Tree) error
}

var _ Transformation = (*Anonymizer)(nil)

type Options struct {
	ExemptNames []string
	// ResolveEnclosingScopes lets variable and argument uses fall back to
	// outer scopes. Functions and classes always resolve outward.
	ResolveEnclosingScopes bool
}

type Option func(*Options)

func WithExemptNames(names ...string) Option {
	return func(o *Options) {
		o.ExemptNames = append([]string(nil), names...)
	}
}

func WithEnclosingScopeResolution(enabled bool) Option {
	return func(o *Options) {
		o.ResolveEnclosingScopes = enabled
	}
}

// Anonymizer owns the provenance side-tables of the trees it has rewritten.
// Every Apply call starts from empty registries.
type Anonymizer struct {
	opts   Options
	exempt map[string]bool

	mu     sync.Mutex
	tables map[*tree.Tree]*Provenance
}

func New(opts ...Option) *Anonymizer {
	o := Options{ExemptNames: DefaultExemptNames}
	for _, opt := range opts {
		opt(&o)
	}
	exempt := make(map[string]bool, len(o.ExemptNames))
	for _, name := range o.ExemptNames {
		exempt[name] = true
	}
	return &Anonymizer{
		opts:   o,
		exempt: exempt,
		tables: make(map[*tree.Tree]*Provenance),
	}
}

// Apply renames identifiers in t in place. With recordMetadata the renames
// are kept for InverseApply; otherwise any earlier table for t is dropped.
func (a *Anonymizer) Apply(t *tree.Tree, recordMetadata bool) {
	if t == nil || t.Root == nil {
		return
	}
	start := time.Now()

	c := newContext(t, a.exempt, a.opts.ResolveEnclosingScopes)
	if recordMetadata {
		c.record = NewProvenance()
	}
	t.Walk(func(n *tree.Node) bool {
		c.visit(n)
		return true
	})
	c.resolveForwardUses()

	a.mu.Lock()
	if recordMetadata {
		a.tables[t] = c.record
	} else {
		delete(a.tables, t)
	}
	a.mu.Unlock()

	total := 0
	for cat, count := range c.renamed {
		if count > 0 {
			observability.RenamedNodesTotal.WithLabelValues(Category(cat).String()).Add(float64(count))
		}
		total += count
	}
	observability.TransformDuration.WithLabelValues("apply").Observe(time.Since(start).Seconds())
	slog.Debug("anonymized tree", "nodes", t.Len(), "renamed", total, "unknown_kinds", c.unknown)
}

// InverseApply restores the labels recorded for t. Every entry is checked
// before any node changes, so a malformed table leaves t untouched. Trees
// without a table are left as they are.
func (a *Anonymizer) InverseApply(t *tree.Tree) error {
	if t == nil {
		return nil
	}
	table := a.Provenance(t)
	if table.Len() == 0 {
		return nil
	}
	start := time.Now()

	if err := table.validate(t); err != nil {
		return err
	}
	t.Walk(func(n *tree.Node) bool {
		if e, ok := table.Get(n.ID); ok {
			n.Label = e.Old
		}
		return true
	})
	a.Release(t)

	observability.TransformDuration.WithLabelValues("inverse").Observe(time.Since(start).Seconds())
	slog.Debug("restored tree", "nodes", t.Len(), "restored", table.Len())
	return nil
}

// Provenance returns the table recorded for t, or nil.
func (a *Anonymizer) Provenance(t *tree.Tree) *Provenance {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tables[t]
}

// Attach associates a stored table with t so InverseApply can replay it.
func (a *Anonymizer) Attach(t *tree.Tree, p *Provenance) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tables[t] = p
}

// Release forgets the table for t.
func (a *Anonymizer) Release(t *tree.Tree) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.tables, t)
}

// anonymizationContext is the state of one Apply call.
type anonymizationContext struct {
	registries      [categoryCount]*NameRegistry
	plan            boundaryPlan
	enclosing       map[tree.NodeID]*tree.Node
	successors      map[tree.NodeID]tree.NodeID
	pending         map[tree.NodeID][]truncation
	exempt          map[string]bool
	enclosingScopes bool
	record          *Provenance
	// uses that matched nothing when visited, retried once every
	// function and class is defined
	forward []forwardUse

	renamed [categoryCount]int
	unknown int
}

func newContext(t *tree.Tree, exempt map[string]bool, enclosingScopes bool) *anonymizationContext {
	c := &anonymizationContext{
		plan:            detectBoundaries(t.Root),
		enclosing:       t.EnclosingDefinitions(),
		successors:      t.Successors(),
		pending:         make(map[tree.NodeID][]truncation),
		exempt:          exempt,
		enclosingScopes: enclosingScopes,
	}
	for i := range c.registries {
		c.registries[i] = NewNameRegistry(Category(i))
	}
	return c
}

func (c *anonymizationContext) visit(n *tree.Node) {
	// Counter bookkeeping runs even for exempt nodes so frames never leak.
	c.runBoundaryActions(n)
	if !n.Kind.Known() {
		c.unknown++
		observability.UnknownNodeKindsTotal.Inc()
		slog.Debug("passing through node of unknown kind",
			"code", errors.CodeUnknownNodeKind, "node", n.ID, "kind", n.Kind.String(), "type", n.Type)
		return
	}
	if c.exempt[n.Label] {
		return
	}

	enclosing := c.enclosing[n.ID]
	prefix := scopePrefix(enclosing)

	switch n.Kind {
	case tree.KindVariableDef:
		c.defineVariable(n, prefix)
	case tree.KindArgument:
		c.findOrDefine(n, Argument, prefix)
	case tree.KindVariableUse:
		c.resolveUse(n, prefix, enclosing)
	case tree.KindFunctionDef, tree.KindClassDef:
		c.defineScope(n, enclosing, prefix)
	case tree.KindOther:
	}
}

func scopePrefix(def *tree.Node) string {
	if def == nil || def.Label == "" {
		return ""
	}
	return def.Label + "_"
}

// scopeChain lists prefixes from the innermost enclosing definition out to
// module level.
func (c *anonymizationContext) scopeChain(def *tree.Node) []string {
	var chain []string
	for d := def; d != nil; d = c.enclosing[d.ID] {
		if d.Label != "" {
			chain = append(chain, d.Label+"_")
		}
	}
	return append(chain, "")
}

// defineVariable reuses an argument's label when a parameter is reassigned
// inside its own function.
func (c *anonymizationContext) defineVariable(n *tree.Node, prefix string) {
	if label, ok := c.registries[Argument].Lookup(n.Label, prefix); ok {
		c.rename(n, label, Argument)
		return
	}
	c.findOrDefine(n, Variable, prefix)
}

func (c *anonymizationContext) findOrDefine(n *tree.Node, cat Category, prefix string) {
	reg := c.registries[cat]
	if label, ok := reg.Lookup(n.Label, prefix); ok {
		c.rename(n, label, cat)
		return
	}
	c.define(n, cat, prefix)
}

func (c *anonymizationContext) define(n *tree.Node, cat Category, prefix string) {
	reg := c.registries[cat]
	label := Synthesize(cat, prefix, reg.CurrentID(), n.Label)
	reg.Define(n.Label, label, prefix)
	c.rename(n, label, cat)
}

// defineScope labels a function or class in its enclosing scope, then opens
// counter frames for its body unless the boundary plan already did. A
// redefinition gets a fresh label so later uses resolve to the newest
// definition.
func (c *anonymizationContext) defineScope(n, enclosing *tree.Node, prefix string) {
	c.define(n, definitionCategory(n.Kind), prefix)
	if _, topLevel := c.plan.resetAndPushBefore[n.ID]; !topLevel {
		c.openNestedScope(n, enclosing)
	}
}

// resolveUse tries arguments, variables, functions, then classes. A miss is
// queued for resolveForwardUses; names that stay unmatched (builtins,
// imports) are left alone.
func (c *anonymizationContext) resolveUse(n *tree.Node, prefix string, enclosing *tree.Node) {
	chain := c.scopeChain(enclosing)
	local := []string{prefix}
	if c.enclosingScopes {
		local = chain
	}
	for _, cat := range [...]Category{Argument, Variable} {
		if c.resolveIn(n, c.registries[cat], local) {
			return
		}
	}
	for _, cat := range [...]Category{Function, Class} {
		if c.resolveIn(n, c.registries[cat], chain) {
			return
		}
	}
	c.forward = append(c.forward, forwardUse{node: n, chain: chain})
}

func (c *anonymizationContext) resolveIn(n *tree.Node, reg *NameRegistry, prefixes []string) bool {
	for _, p := range prefixes {
		if label, ok := reg.Lookup(n.Label, p); ok {
			c.rename(n, label, reg.Category())
			return true
		}
	}
	return false
}

// forwardUse is a use visited before the definition it refers to, such as a
// call to a helper defined further down the module.
type forwardUse struct {
	node  *tree.Node
	chain []string
}

// resolveForwardUses binds queued uses to functions and classes defined
// later in traversal order. The label must still belong to the use's name
// at that prefix, so a rebinding never captures an unrelated use.
func (c *anonymizationContext) resolveForwardUses() {
	for _, u := range c.forward {
		for _, cat := range [...]Category{Function, Class} {
			if c.resolveDefined(u.node, c.registries[cat], u.chain) {
				break
			}
		}
	}
	c.forward = nil
}

func (c *anonymizationContext) resolveDefined(n *tree.Node, reg *NameRegistry, prefixes []string) bool {
	for _, p := range prefixes {
		label, ok := reg.Lookup(n.Label, p)
		if !ok {
			continue
		}
		if _, owner, ok := reg.LookupByNewLabel(label, p); ok && owner == n.Label {
			c.rename(n, label, reg.Category())
			return true
		}
	}
	return false
}

func (c *anonymizationContext) rename(n *tree.Node, label string, cat Category) {
	if n.Label == label {
		return
	}
	if c.record != nil {
		c.record.Record(n.ID, label, n.Label)
	}
	n.Label = label
	c.renamed[cat]++
}
