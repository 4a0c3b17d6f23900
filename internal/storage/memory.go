package storage

import (
	"context"
	"errors"
	"sync"
)

// memStore holds the leaderboard in process memory only. It backs the
// disabled-persistence driver and doubles as a test store.
type memStore struct {
	mu      sync.Mutex
	entries []*Entry
	byID    map[int64]*Entry
}

// NewMemory returns a store with no persistence.
func NewMemory() Store {
	return &memStore{byID: map[int64]*Entry{}}
}

func (s *memStore) Close() error { return nil }

func (s *memStore) Award(ctx context.Context, userID int64, name string, delta int) (int, error) {
	if delta < 0 {
		return 0, errors.New("award delta must be >= 0")
	}
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[userID]
	if !ok {
		e = &Entry{UserID: userID, Name: name}
		s.entries = append(s.entries, e)
		s.byID[userID] = e
	}
	if name != "" {
		e.Name = name
	}
	e.Score += delta
	return e.Score, nil
}

func (s *memStore) Snapshot(ctx context.Context) ([]Entry, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedCopyLocked(s.entries), nil
}
