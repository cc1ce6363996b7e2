package repository

import (
	"context"
	"sync"
)

// MemoryRecordStore keeps records in process memory. It is shared by every
// component holding the same instance, which is enough for tests and single
// gateway deployments.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryRecordStore creates an empty in-memory record store.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[string][]byte)}
}

// GetRecord returns a copy of the stored record.
func (s *MemoryRecordStore) GetRecord(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.records[name]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return append([]byte(nil), data...), nil
}

// PutRecord stores a copy of data.
func (s *MemoryRecordStore) PutRecord(_ context.Context, name string, data []byte) error {
	if name == "" {
		return ErrEmptyName
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[name] = append([]byte(nil), data...)
	return nil
}

// DeleteRecord removes the record.
func (s *MemoryRecordStore) DeleteRecord(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, name)
	return nil
}

// Ping always succeeds.
func (s *MemoryRecordStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryRecordStore) Close() error { return nil }

var _ RecordStore = (*MemoryRecordStore)(nil)
