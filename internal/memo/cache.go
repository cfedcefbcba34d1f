package memo

import (
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Cache memoizes values built from a set of input files. An entry is reused
// only while every input file still has the fingerprint it had when the
// value was built; otherwise the value is rebuilt.
type Cache[V any] struct {
	name    string
	mu      sync.Mutex
	entries map[string]*entry[V]
	logger  *zap.Logger
}

type entry[V any] struct {
	paths  []string
	prints []Fingerprint
	value  V
}

// New creates an empty cache. The name is only used for logging.
func New[V any](name string) *Cache[V] {
	return &Cache[V]{
		name:    name,
		entries: make(map[string]*entry[V]),
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for hit/miss messages.
func (c *Cache[V]) SetLogger(l *zap.Logger) {
	c.logger = l
}

// Get returns the value cached for paths, calling load when there is no
// entry or when any of the files changed since the entry was built.
// Failed loads are not cached.
func (c *Cache[V]) Get(load func() (V, error), paths ...string) (V, error) {
	var zero V

	prints := make([]Fingerprint, len(paths))
	for i, p := range paths {
		fp, err := StatFile(p)
		if err != nil {
			return zero, err
		}
		prints[i] = fp
	}

	key := strings.Join(paths, "\x00")

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		if samePrints(e.prints, prints) {
			c.logger.Debug("cache hit", zap.String("cache", c.name), zap.Strings("files", paths))
			return e.value, nil
		}
		c.logger.Info("input changed, reloading", zap.String("cache", c.name), zap.Strings("files", paths))
		delete(c.entries, key)
	}

	v, err := load()
	if err != nil {
		return zero, err
	}
	c.entries[key] = &entry[V]{paths: slices.Clone(paths), prints: prints, value: v}
	return v, nil
}

// Invalidate drops every entry that was built from path.
func (c *Cache[V]) Invalidate(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, e := range c.entries {
		if slices.Contains(e.paths, path) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// Clear drops all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func samePrints(a, b []Fingerprint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Same(b[i]) {
			return false
		}
	}
	return true
}
