package mocks

import (
	"context"
	"sync"

	"github.com/ersonp/lineage-core/internal/domain/ports"
)

// Cache is a mock implementation of ports.TraversalCache backed by a map.
type Cache struct {
	mu      sync.Mutex
	entries map[string]map[string]any

	// Call tracking
	Hits          int
	Loads         int
	Invalidations []string
}

// NewCache creates a new empty mock cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]map[string]any)}
}

// GetOrLoad returns the stored value or calls load and stores its result.
func (c *Cache) GetOrLoad(ctx context.Context, scope, key string, load ports.LoadFunc) (any, error) {
	c.mu.Lock()
	if v, ok := c.entries[scope][key]; ok {
		c.Hits++
		c.mu.Unlock()
		return v, nil
	}
	c.Loads++
	c.mu.Unlock()

	v, err := load(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[scope] == nil {
		c.entries[scope] = make(map[string]any)
	}
	c.entries[scope][key] = v
	return v, nil
}

// InvalidateScope drops every entry of scope and records the call.
func (c *Cache) InvalidateScope(scope string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, scope)
	c.Invalidations = append(c.Invalidations, scope)
}

// Len returns the number of entries stored for scope.
func (c *Cache) Len(scope string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries[scope])
}
