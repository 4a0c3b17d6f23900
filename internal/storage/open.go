package storage

import (
	"context"
	"errors"
	"strings"

	logx "quizbot/pkg/logx"
)

// Store is the leaderboard persistence API used by the competition core.
//
// Award must be safe under concurrent calls from different sessions, and must
// not fail for non-negative deltas because of persistence trouble: a failed
// write is logged and the in-memory state stays authoritative.
type Store interface {
	// Award adds delta points to a participant and returns the new total.
	Award(ctx context.Context, userID int64, name string, delta int) (int, error)
	// Snapshot returns all entries sorted by score descending; ties keep
	// first-award order.
	Snapshot(ctx context.Context) ([]Entry, error)
	Close() error
}

// Open initializes the configured store. A disabled driver ("" or "none")
// yields an in-memory store, so scores still work within a process lifetime.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "none", "memory":
		return NewMemory(), nil
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "redis":
		return openRedis(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
