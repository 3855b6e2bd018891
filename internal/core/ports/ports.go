package ports

import (
	"astanon/internal/data/provenance"
	"astanon/internal/engine/tree"
)

// CodeParser turns source files into generic trees.
type CodeParser interface {
	ParseFile(path string, content []byte) (*tree.Tree, error)
	IsSupportedPath(path string) bool
	SupportedExtensions() []string
}

// ProvenanceStore persists the rename tables of anonymization runs so that
// anonymized output can be restored later.
type ProvenanceStore interface {
	SaveRun(run provenance.Run) (provenance.Run, error)
	LoadByOutputDigest(digest string) (provenance.Run, error)
	Close() error
}

var _ ProvenanceStore = (*provenance.Store)(nil)
