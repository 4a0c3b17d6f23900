package storage

import "time"

// Config configures leaderboard storage.
//
// Driver values:
//   - "file": dependency-free JSON snapshot file
//   - "sqlite": SQLite database file (optional build tag)
//   - "redis": Redis-backed leaderboard
//
// If Driver is empty, "none", or "memory", scores live in process memory only.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	Redis       RedisConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Entry is one leaderboard row. Keyed by stable participant id; the display
// name rides along for rendering and is refreshed on every award.
type Entry struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
}
