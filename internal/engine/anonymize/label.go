package anonymize

import (
	"strconv"
	"strings"
)

// Synthesize builds a new label: the original's leading underscores, the
// scope prefix, the category letter and the counter value. "__init__" under
// prefix "c1_" with id 1 becomes "__c1_f1".
func Synthesize(c Category, scopePrefix string, id int, original string) string {
	var b strings.Builder
	b.WriteString(leadingUnderscores(original))
	b.WriteString(scopePrefix)
	b.WriteString(c.Prefix())
	b.WriteString(strconv.Itoa(id))
	return b.String()
}

// leadingUnderscores returns the run of leading '_' bytes, never the whole
// label: "_" keeps nothing and "___" keeps "__".
func leadingUnderscores(label string) string {
	n := 0
	for n < len(label) && label[n] == '_' {
		n++
	}
	if n == len(label) && n > 0 {
		n--
	}
	return label[:n]
}
