package snapshot

import (
	"context"
	"sync"
)

// MemorySink keeps snapshots in memory, for tests and deployments without
// a database.
type MemorySink struct {
	mu    sync.RWMutex
	byDay map[string]*DailySnapshot
	order []string
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{byDay: make(map[string]*DailySnapshot)}
}

// Append stores the snapshot unless its day already has one.
func (s *MemorySink) Append(ctx context.Context, snap *DailySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byDay[snap.DayKey]; ok {
		return nil
	}
	cp := *snap
	s.byDay[snap.DayKey] = &cp
	s.order = append(s.order, snap.DayKey)
	return nil
}

// Latest returns the snapshot with the greatest day key.
func (s *MemorySink) Latest(ctx context.Context) (*DailySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *DailySnapshot
	for day, snap := range s.byDay {
		if latest == nil || day > latest.DayKey {
			latest = snap
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

// Count returns how many snapshots exist, for tests.
func (s *MemorySink) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byDay)
}

// Get returns the snapshot for a day, for tests.
func (s *MemorySink) Get(dayKey string) *DailySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byDay[dayKey]
}
