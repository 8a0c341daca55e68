package cachestore

import (
	"context"
	"sync"
	"time"

	"github.com/liskstats/aggregator/internal/core/domain"
)

// MemoryStore keeps the encoded record in memory. Used by tests and
// ephemeral runs; it round-trips through the same encode/decode path as
// the durable backends so schema handling is exercised identically.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
	now  func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// SetClock overrides the save timestamp source, for tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetRaw seeds the store with a raw record, for tests of decode behavior.
func (s *MemoryStore) SetRaw(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
}

// Delete clears the stored record.
func (s *MemoryStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}

// Load returns the last saved cache.
func (s *MemoryStore) Load(ctx context.Context) (*domain.AggregateCache, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil, ErrNotFound
	}
	return decode(s.data)
}

// Save stores the encoded cache.
func (s *MemoryStore) Save(ctx context.Context, cache *domain.AggregateCache) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := encode(cache, s.now())
	if err != nil {
		return err
	}
	s.data = data
	return nil
}
