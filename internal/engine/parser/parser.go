package parser

import (
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"astanon/internal/core/errors"
	"astanon/internal/engine/tree"
	"astanon/internal/shared/observability"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

const LanguagePython = "python"

// Parser turns Python source files into trees ready for anonymization.
// It is safe for concurrent use.
type Parser struct {
	pool       *ParserPool
	builder    *PythonBuilder
	extensions map[string]string
}

func NewParser() *Parser {
	lang := sitter.NewLanguage(tree_sitter_python.Language())
	return &Parser{
		pool:    NewParserPool(lang),
		builder: NewPythonBuilder(),
		extensions: map[string]string{
			".py":  LanguagePython,
			".pyi": LanguagePython,
		},
	}
}

// ParseFile parses content as the language implied by path.
func (p *Parser) ParseFile(path string, content []byte) (*tree.Tree, error) {
	if p.GetLanguage(path) == "" {
		return nil, errors.Newf(errors.CodeNotSupported, "unsupported language").
			WithContext(errors.CtxPath, path)
	}
	t, err := p.Parse(content)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return t, nil
}

// Parse converts Python source into a tree. Source with syntax errors is
// rejected because its identifiers cannot be classified reliably.
func (p *Parser) Parse(content []byte) (*tree.Tree, error) {
	start := time.Now()
	defer func() {
		observability.ParsingDuration.WithLabelValues(LanguagePython).Observe(time.Since(start).Seconds())
	}()

	sp := p.pool.Get()
	defer p.pool.Put(sp)

	syntax := sp.Parse(content, nil)
	if syntax == nil {
		return nil, errors.New(errors.CodeInternal, "parse failed")
	}
	defer syntax.Close()

	root := syntax.RootNode()
	if root.HasError() {
		return nil, errors.New(errors.CodeParse, "source contains syntax errors")
	}
	t, err := p.builder.Build(root, content)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "tree construction failed")
	}
	return t, nil
}

func (p *Parser) GetLanguage(path string) string {
	return p.extensions[strings.ToLower(filepath.Ext(path))]
}

func (p *Parser) IsSupportedPath(path string) bool {
	return p.GetLanguage(path) != ""
}

func (p *Parser) SupportedExtensions() []string {
	return slices.Sorted(maps.Keys(p.extensions))
}
