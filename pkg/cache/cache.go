// Package cache provides pluggable response caching for index fetches.
//
// The package defines a [Cache] interface with three backends:
//   - file: directory-backed cache for CLI usage (the default)
//   - redis: Redis-backed cache for shared or long-running deployments
//   - null: no-op cache for tests or --fresh runs
//
// Cached entries carry a TTL; an expired entry is treated as a miss so the
// caller re-fetches from the index. Keys are namespaced by the caller
// (e.g., "index:simple:requests") and hashed before hitting the backend,
// so arbitrary key strings are safe.
//
// This cache holds index metadata only. Downloaded release archives are
// managed by the artifact store, which is content-addressed and has no
// expiry.
package cache

import (
	"context"
	"time"
)

// Cache is the interface for response cache backends.
// All implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns (data, true, nil) on a hit, (nil, false, nil) on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A TTL of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value from the cache. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
