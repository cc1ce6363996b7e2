package cache

import (
	"context"

	"fakestore-offline/internal/model"
)

// Store is the generation-scoped response cache.
// This abstraction allows swapping between the memory store (tests, single
// process), SQLite (durable, one host) and Redis (shared between gateway
// instances) without changing routing logic. No policy logic lives here.
type Store interface {
	// Get returns the entry for key in generation. Returns ErrCacheMiss if
	// absent. Corrupt entries are dropped and reported as ErrCacheMiss.
	Get(ctx context.Context, generation string, key model.RequestKey) (*model.CachedEntry, error)

	// Put stores entry under (generation, key). A write whose StoredAt is
	// older than the stored entry returns ErrStaleWrite; a write issued
	// before its generation was evicted returns ErrGenerationEvicted. A zero
	// StoredAt is set to the current time.
	Put(ctx context.Context, generation string, key model.RequestKey, entry *model.CachedEntry) error

	// EvictGeneration removes every entry of generation in one atomic step.
	// Readers see the generation either whole or not at all.
	EvictGeneration(ctx context.Context, generation string) error

	// ListGenerations returns the live generations in sorted order.
	ListGenerations(ctx context.Context) ([]string, error)

	// Close releases the backend.
	Close() error
}

// Common cache errors
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in the generation.
	ErrCacheMiss CacheError = "cache miss"

	// ErrStaleWrite indicates a newer entry already occupies the slot.
	ErrStaleWrite CacheError = "stale cache write"

	// ErrGenerationEvicted indicates the target generation was evicted.
	ErrGenerationEvicted CacheError = "generation evicted"
)

// Backend names accepted by CACHE_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

func validGeneration(generation string) error {
	if generation == "" {
		return CacheError("empty generation")
	}
	return nil
}
