// Package cache stores materialized archive resources.
//
// Keys are opaque strings built by the archive from the archive path, its
// size and modification time, and the resource locator, so entries are
// invalidated when the archive file changes.
package cache

// Cache stores resource payloads by key.
//
// Implementations should handle their own size limits and eviction policies.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the cached payload for key.
	// Returns nil, false if the key is not cached.
	// Callers must not modify the returned slice.
	Get(key string) ([]byte, bool)

	// Put stores data under key. The cache may keep a reference to data.
	Put(key string, data []byte) error

	// Delete removes the entry for key.
	// Implementations should treat missing entries as a no-op.
	Delete(key string) error
}
