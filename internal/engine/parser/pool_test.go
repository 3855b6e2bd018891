package parser

import (
	"sync"
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pythonLanguage() *sitter.Language {
	return sitter.NewLanguage(tree_sitter_python.Language())
}

func TestParserPool_GetPut(t *testing.T) {
	pool := NewParserPool(pythonLanguage())

	sp := pool.Get()
	require.NotNil(t, sp)
	assert.Equal(t, 1, pool.Leased())

	pool.Put(sp)
	assert.Equal(t, 0, pool.Leased())

	pool.Put(nil)
	assert.Equal(t, 0, pool.Leased())
}

func TestParserPool_ParsesAfterReset(t *testing.T) {
	pool := NewParserPool(pythonLanguage())

	sp := pool.Get()
	sp.Reset()
	pool.Put(sp)

	sp = pool.Get()
	defer pool.Put(sp)
	syntax := sp.Parse([]byte("x = 1\n"), nil)
	require.NotNil(t, syntax)
	defer syntax.Close()
	assert.False(t, syntax.RootNode().HasError())
}

func TestParserPool_ConcurrentAccess(t *testing.T) {
	pool := NewParserPool(pythonLanguage())
	src := []byte("def run():\n    return 1\n")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				sp := pool.Get()
				syntax := sp.Parse(src, nil)
				if syntax == nil {
					t.Errorf("expected non-nil parse tree")
				} else {
					syntax.Close()
				}
				pool.Put(sp)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, pool.Leased())
}
