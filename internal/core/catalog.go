package core

import (
	"sort"
	"sync"
)

// Catalog caches the model definitions the service last applied, by table
// name. The registry decides what the admin site serves; the catalog answers
// Service.Model. A table's definition is evicted before it is rebuilt, so a
// failed upload leaves no stale definition behind.
type Catalog struct {
	mu     sync.RWMutex
	models map[string]*Model
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{models: make(map[string]*Model)}
}

// Put stores a model definition, replacing any definition for the same table.
func (c *Catalog) Put(m *Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models[m.Table] = m
}

// Evict removes the definition for a table.
// Returns false if nothing was cached.
func (c *Catalog) Evict(table string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.models[table]; !ok {
		return false
	}
	delete(c.models, table)
	return true
}

// Get returns the cached definition for a table.
func (c *Catalog) Get(table string) (*Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.models[table]
	return m, ok
}

// All returns every cached definition sorted by table name.
func (c *Catalog) All() []*Model {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*Model, 0, len(c.models))
	for _, m := range c.models {
		result = append(result, m)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Table < result[j].Table
	})

	return result
}

// Len returns the number of cached definitions.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.models)
}
