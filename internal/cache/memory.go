package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"fakestore-offline/internal/model"
)

// generationEntries holds one generation's entries keyed by RequestKey.String().
type generationEntries map[string]*model.CachedEntry

// MemoryStore is an in-memory implementation of Store.
// Use this for development/testing or single-instance deployments.
type MemoryStore struct {
	mu          sync.RWMutex
	generations map[string]generationEntries
	evicted     map[string]time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		generations: make(map[string]generationEntries),
		evicted:     make(map[string]time.Time),
	}
}

// Get retrieves a copy of the entry for key.
func (s *MemoryStore) Get(ctx context.Context, generation string, key model.RequestKey) (*model.CachedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.generations[generation]
	if !ok {
		return nil, ErrCacheMiss
	}
	entry, ok := entries[key.String()]
	if !ok {
		return nil, ErrCacheMiss
	}
	return copyEntry(entry), nil
}

// Put stores a copy of entry.
func (s *MemoryStore) Put(ctx context.Context, generation string, key model.RequestKey, entry *model.CachedEntry) error {
	if err := validGeneration(generation); err != nil {
		return err
	}

	stored := copyEntry(entry)
	stored.Key = key
	if stored.StoredAt.IsZero() {
		stored.StoredAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if evictedAt, gone := s.evicted[generation]; gone && !stored.StoredAt.After(evictedAt) {
		return ErrGenerationEvicted
	}

	entries, ok := s.generations[generation]
	if !ok {
		entries = make(generationEntries)
		s.generations[generation] = entries
	}

	slot := key.String()
	if existing, ok := entries[slot]; ok && stored.StoredAt.Before(existing.StoredAt) {
		return ErrStaleWrite
	}

	entries[slot] = stored
	return nil
}

// EvictGeneration drops the whole generation map under the write lock.
func (s *MemoryStore) EvictGeneration(ctx context.Context, generation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.generations, generation)
	s.evicted[generation] = time.Now()
	return nil
}

// ListGenerations returns the generations holding entries.
func (s *MemoryStore) ListGenerations(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	generations := make([]string, 0, len(s.generations))
	for g := range s.generations {
		generations = append(generations, g)
	}
	sort.Strings(generations)
	return generations, nil
}

// Len returns the number of entries in generation.
func (s *MemoryStore) Len(generation string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.generations[generation])
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func copyEntry(e *model.CachedEntry) *model.CachedEntry {
	c := *e
	c.Payload = make([]byte, len(e.Payload))
	copy(c.Payload, e.Payload)
	return &c
}

var _ Store = (*MemoryStore)(nil)
