//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	logx "quizbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Award(ctx context.Context, userID int64, name string, delta int) (int, error) {
	if delta < 0 {
		return 0, errors.New("award delta must be >= 0")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leaderboard(user_id, name, score) VALUES(?,?,?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   score = score + excluded.score,
		   name  = COALESCE(NULLIF(excluded.name, ''), name)`,
		userID, name, delta,
	)
	if err != nil {
		return 0, err
	}
	var total int
	err = s.db.QueryRowContext(ctx, `SELECT score FROM leaderboard WHERE user_id = ?`, userID).Scan(&total)
	return total, err
}

func (s *sqliteStore) Snapshot(ctx context.Context) ([]Entry, error) {
	// id is assigned in insert order, which is first-award order.
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, name, score FROM leaderboard ORDER BY score DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.UserID, &e.Name, &e.Score); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
