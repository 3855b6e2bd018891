package anonymize

import (
	"astanon/internal/core/errors"
)

// NameRegistry maps original names to new labels per scope prefix for one
// category, and owns that category's counter stack.
type NameRegistry struct {
	category Category
	// original -> prefix -> new label
	names map[string]map[string]string
	// prefixes in first-definition order, per original
	order map[string][]string
	// prefix -> new label -> original
	owners   map[string]map[string]string
	counters counterStack
}

func NewNameRegistry(c Category) *NameRegistry {
	return &NameRegistry{
		category: c,
		names:    make(map[string]map[string]string),
		order:    make(map[string][]string),
		owners:   make(map[string]map[string]string),
		counters: newCounterStack(),
	}
}

func (r *NameRegistry) Category() Category {
	return r.category
}

// Prefixes lists every scope prefix under which name has a mapping.
func (r *NameRegistry) Prefixes(name string) []string {
	out := make([]string, len(r.order[name]))
	copy(out, r.order[name])
	return out
}

// Lookup returns the new label for name under prefix.
func (r *NameRegistry) Lookup(name, prefix string) (string, bool) {
	label, ok := r.names[name][prefix]
	return label, ok
}

// LookupByNewLabel reports whether candidate is a label already handed out
// under prefix, returning it together with the original it stands for.
func (r *NameRegistry) LookupByNewLabel(candidate, prefix string) (string, string, bool) {
	original, ok := r.owners[prefix][candidate]
	if !ok {
		return "", "", false
	}
	return candidate, original, true
}

// CurrentID is the next id at the innermost nesting level.
func (r *NameRegistry) CurrentID() int {
	return r.counters.current()
}

// Define binds oldName to newLabel under prefix and advances the innermost
// counter. Redefining an existing (oldName, prefix) pair replaces the binding;
// callers look up first to keep numbering dense. Handing one label to two
// different originals under the same prefix is an invariant violation and
// panics.
func (r *NameRegistry) Define(oldName, newLabel, prefix string) {
	if _, owner, ok := r.LookupByNewLabel(newLabel, prefix); ok && owner != oldName {
		panic(errors.Newf(errors.CodeInvariant, "%s label %q already assigned to %q", r.category, newLabel, owner).
			WithContext(errors.CtxLabel, oldName))
	}

	byPrefix, ok := r.names[oldName]
	if !ok {
		byPrefix = make(map[string]string)
		r.names[oldName] = byPrefix
	}
	if previous, exists := byPrefix[prefix]; exists {
		delete(r.owners[prefix], previous)
	} else {
		r.order[oldName] = append(r.order[oldName], prefix)
	}
	byPrefix[prefix] = newLabel

	owners, ok := r.owners[prefix]
	if !ok {
		owners = make(map[string]string)
		r.owners[prefix] = owners
	}
	owners[newLabel] = oldName

	r.counters.increment()
}

// Push opens a new counter frame.
func (r *NameRegistry) Push() {
	r.counters.push()
}

// Depth is the number of open counter frames, global included.
func (r *NameRegistry) Depth() int {
	return r.counters.depth()
}

// TruncateTo closes frames above depth.
func (r *NameRegistry) TruncateTo(depth int) {
	r.counters.truncate(depth)
}

// Reset closes every non-global frame.
func (r *NameRegistry) Reset() {
	r.counters.reset()
}
