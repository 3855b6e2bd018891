package anonymize

import "astanon/internal/engine/tree"

// Category is one of the four identifier families with separate counters.
type Category uint8

const (
	Variable Category = iota
	Argument
	Function
	Class
)

const categoryCount = 4

var categoryPrefixes = [categoryCount]string{
	Variable: "v",
	Argument: "a",
	Function: "f",
	Class:    "c",
}

var categoryNames = [categoryCount]string{
	Variable: "variable",
	Argument: "argument",
	Function: "function",
	Class:    "class",
}

// Prefix is the letter that starts synthesized labels of this category.
func (c Category) Prefix() string {
	return categoryPrefixes[c]
}

func (c Category) String() string {
	if int(c) < categoryCount {
		return categoryNames[c]
	}
	return "unknown"
}

// definitionCategory maps definition kinds to the registry that owns them.
func definitionCategory(k tree.Kind) Category {
	if k == tree.KindClassDef {
		return Class
	}
	return Function
}
