// Package cache provides the fast-reload cache used by readers whose raw
// input is slow to parse.
//
// A [Cache] stores opaque byte payloads under string keys. Every backend
// seals payloads with a SHA-256 checksum on write and verifies it on read;
// an entry that fails verification is reported as a miss, never as an
// error, so callers simply re-parse and overwrite it.
//
// # Backends
//
//   - [FileCache]: one file per key under a directory, published with an
//     atomic rename so readers never see a partial entry.
//   - [RedisCache]: a Redis server, for sharing parsed tables between hosts.
//   - [NullCache]: disables caching.
//
// # Keys
//
// [FileKey] derives a key from a source file's absolute path, size, and
// modification time, so editing or replacing the file invalidates its entry.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-payload store.
type Cache interface {
	// Get returns the payload for key. A missing, expired, or corrupt entry
	// is a miss (hit == false, err == nil).
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by backends that can drop every entry they own.
type Clearer interface {
	// Clear removes all entries and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}
