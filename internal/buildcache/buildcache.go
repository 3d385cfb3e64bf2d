// Package buildcache caches parsed references per source file, keyed on
// modification time and size so an unchanged file never needs reparsing.
//
// Cache is not internally synchronized: the engine holds a single mutex
// around the whole cache for the duration of a rebuild, matching the
// "lock held for the whole rebuild" shape rather than a per-file lock.
package buildcache

import (
	"time"

	"github.com/cespare/xxhash/v2"

	"tracey/internal/lexer"
)

// Entry is one cached parse result.
type Entry struct {
	ModTime time.Time
	Size    int64
	// Hash is a defensive content fingerprint used only to re-validate a
	// cache hit when ModTime+Size collide across a clock anomaly; it is
	// never the primary cache key.
	Hash       uint64
	References []lexer.Reference
	Warnings   []lexer.Warning
}

// Cache is a path -> Entry map.
type Cache struct {
	entries map[string]Entry
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]Entry)}
}

// Lookup returns the cached entry for path if its ModTime and Size still
// match and content hashes the same. ModTime+Size alone can collide — a
// file rewritten with identical length inside one mtime tick — so content
// is re-hashed and checked against the hash recorded at Store time before
// the cached references are trusted.
func (c *Cache) Lookup(path string, modTime time.Time, size int64, content []byte) (Entry, bool) {
	e, ok := c.entries[path]
	if !ok || !e.ModTime.Equal(modTime) || e.Size != size {
		return Entry{}, false
	}
	if xxhash.Sum64(content) != e.Hash {
		return Entry{}, false
	}
	return e, true
}

// Store records a fresh parse result for path.
func (c *Cache) Store(path string, modTime time.Time, size int64, content []byte, refs []lexer.Reference, warns []lexer.Warning) {
	c.entries[path] = Entry{
		ModTime:    modTime,
		Size:       size,
		Hash:       xxhash.Sum64(content),
		References: refs,
		Warnings:   warns,
	}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	return len(c.entries)
}
