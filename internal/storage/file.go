package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	logx "quizbot/pkg/logx"
)

// fileStore is the dependency-free persistence backend: the full leaderboard
// is kept in memory (slice in first-award order plus an id index) and written
// as a single JSON snapshot after every mutation. Writes go through a temp
// file + rename so a crash mid-write can't corrupt the previous snapshot.
type fileStore struct {
	log logx.Logger

	path string

	mu      sync.Mutex
	entries []*Entry
	byID    map[int64]*Entry
}

type fileSnapshot struct {
	Entries []Entry `json:"entries"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{log: log, path: path, byID: map[int64]*Entry{}}

	// A missing or unreadable snapshot is not fatal: first run starts empty,
	// a corrupt file is logged and starts empty.
	if err := s.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("leaderboard load failed; starting empty", logx.String("path", path), logx.Err(err))
	}
	return s, nil
}

func (s *fileStore) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var snap fileSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return err
	}
	for i := range snap.Entries {
		e := snap.Entries[i]
		if e.Score < 0 {
			e.Score = 0
		}
		cp := e
		s.entries = append(s.entries, &cp)
		s.byID[e.UserID] = &cp
	}
	return nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) Award(ctx context.Context, userID int64, name string, delta int) (int, error) {
	if delta < 0 {
		return 0, errors.New("award delta must be >= 0")
	}

	s.mu.Lock()
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
	total := e.Score
	err := s.saveLocked()
	s.mu.Unlock()

	if err != nil {
		// In-memory state stays authoritative until the next successful save.
		s.log.Warn("leaderboard save failed", logx.String("path", s.path), logx.Err(err))
	}
	_ = ctx
	return total, nil
}

func (s *fileStore) Snapshot(ctx context.Context) ([]Entry, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedCopyLocked(s.entries), nil
}

func (s *fileStore) saveLocked() error {
	snap := fileSnapshot{Entries: make([]Entry, 0, len(s.entries))}
	for _, e := range s.entries {
		snap.Entries = append(snap.Entries, *e)
	}

	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// sortedCopyLocked returns entries sorted by score descending. The input
// slice is in first-award order and the sort is stable, so ties keep that
// order.
func sortedCopyLocked(entries []*Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
