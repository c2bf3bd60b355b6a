package cache

import (
	"log/slog"
	"sort"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a typed, non-expiring map from identifier to V.
type Cache[V any] struct {
	name  string
	items *gocache.Cache
}

// New returns an empty cache. name is only used in log lines.
func New[V any](name string) *Cache[V] {
	return &Cache[V]{
		name:  name,
		items: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get returns the value stored under id and whether it was present.
func (c *Cache[V]) Get(id string) (V, bool) {
	var zero V
	raw, ok := c.items.Get(id)
	if !ok {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		slog.Error("cache: unexpected value type", "cache", c.name, "identifier", id)
		return zero, false
	}
	return v, true
}

// Put stores v under id, replacing any previous value.
func (c *Cache[V]) Put(id string, v V) {
	c.items.Set(id, v, gocache.NoExpiration)
}

// Remove deletes id. Removing an absent key is a no-op.
func (c *Cache[V]) Remove(id string) {
	c.items.Delete(id)
}

// Keys returns a sorted snapshot of the identifiers present at call time.
func (c *Cache[V]) Keys() []string {
	items := c.items.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (c *Cache[V]) Len() int {
	return c.items.ItemCount()
}
