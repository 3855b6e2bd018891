package app

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const minCacheEntries = 16

// contentCache remembers the source digest last anonymized per path so
// unchanged files are not rewritten again.
type contentCache struct {
	entries *lru.Cache[string, string]
}

func newContentCache(size int) (*contentCache, error) {
	if size < minCacheEntries {
		size = minCacheEntries
	}
	entries, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &contentCache{entries: entries}, nil
}

func (c *contentCache) unchanged(path, digest string) bool {
	previous, ok := c.entries.Get(path)
	return ok && previous == digest
}

// known reports whether path was written during this process.
func (c *contentCache) known(path string) bool {
	return c.entries.Contains(path)
}

func (c *contentCache) remember(path, digest string) {
	c.entries.Add(path, digest)
}

func (c *contentCache) forget(path string) {
	c.entries.Remove(path)
}

// invalidate forces every known path to be anonymized again while keeping
// the record that its output was written by this process.
func (c *contentCache) invalidate() {
	for _, path := range c.entries.Keys() {
		c.entries.Add(path, "")
	}
}

func (c *contentCache) len() int {
	return c.entries.Len()
}
