// Package repository defines the infrastructure interfaces used by domain services
// Following the dependency inversion principle, domain logic depends on these interfaces,
// and infrastructure implementations provide concrete implementations
package repository

import (
	"context"
	"time"
)

// CacheStore is a key/value store with per-entry TTL and pattern-based bulk
// deletion. Every operation degrades to a miss or no-op when the backing
// store is unreachable; implementations never surface an error to callers,
// so the pipeline stays correct (just slower) without a cache.
type CacheStore interface {
	// Get unmarshals the value stored at key into dest and reports whether
	// a live entry was found. A deserialization failure counts as a miss.
	Get(ctx context.Context, key string, dest any) bool

	// Set stores value at key for ttl and reports whether the write landed.
	Set(ctx context.Context, key string, value any, ttl time.Duration) bool

	// Delete removes an exact key and reports whether an entry was removed.
	Delete(ctx context.Context, key string) bool

	// DeleteByPattern removes every key matching the glob pattern and
	// returns the number of keys removed.
	DeleteByPattern(ctx context.Context, pattern string) int

	// Exists reports whether a live entry is stored at key.
	Exists(ctx context.Context, key string) bool

	// TTL returns the remaining lifetime of key, or a negative duration
	// when the key is absent or carries no expiry.
	TTL(ctx context.Context, key string) time.Duration

	// Connected reports whether the backing store is currently reachable.
	Connected() bool
}
