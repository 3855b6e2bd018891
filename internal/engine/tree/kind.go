package tree

import "strconv"

// Kind classifies a node for the anonymizer. The set is closed; any other
// value is treated as an unknown kind and passed through untouched.
type Kind uint8

const (
	KindOther Kind = iota
	KindVariableDef
	KindVariableUse
	KindArgument
	KindFunctionDef
	KindClassDef
)

var kindNames = [...]string{
	KindOther:       "Other",
	KindVariableDef: "VariableDef",
	KindVariableUse: "VariableUse",
	KindArgument:    "Argument",
	KindFunctionDef: "FunctionDef",
	KindClassDef:    "ClassDef",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Known reports whether k belongs to the recognized set.
func (k Kind) Known() bool {
	return int(k) < len(kindNames)
}

// IsDefinition reports whether k opens a named scope.
func (k Kind) IsDefinition() bool {
	return k == KindFunctionDef || k == KindClassDef
}
