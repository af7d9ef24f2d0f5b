package expr

import (
	"sync"
)

// Cache memoizes compiled expressions by exact text. Its lifetime is tied
// to the owning rule pack: replacing the pack calls Invalidate, atomically
// under the pack owner's lock, so a given evaluation never mixes entries
// from two pack generations.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Compiled
}

// NewCache creates an empty compile cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Compiled)}
}

// Get returns the compiled form of text, compiling and caching on miss
func (c *Cache) Get(text string) (*Compiled, error) {
	c.mu.RLock()
	compiled, ok := c.entries[text]
	c.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	compiled, err := Compile(text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// A racing caller may have compiled the same text; keep the first entry
	if existing, ok := c.entries[text]; ok {
		compiled = existing
	} else {
		c.entries[text] = compiled
	}
	c.mu.Unlock()

	return compiled, nil
}

// Invalidate drops every cached entry
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]*Compiled)
	c.mu.Unlock()
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
