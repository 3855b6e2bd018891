// Package anonymize renames variables, arguments, functions and classes in a
// syntax tree to positional labels (v1, a2, f1, c1) and restores them later.
//
// Labels are scoped: a name defined inside a function or class carries the
// enclosing definition's new label as a prefix (f1_v1), and every nesting
// level owns its own counter frame per category. Top-level definitions start
// fresh local counters, so sibling functions number their locals
// independently while code between them keeps using the global counters.
//
// The forward pass records a side-table of (new label, original label) per
// renamed node; InverseApply replays it to restore the tree exactly.
package anonymize
