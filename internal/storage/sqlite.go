package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "vaultbot/pkg/logx"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

// migrations are applied in order; never edit a released entry, append a new one.
var migrations = []migration{
	{
		Version:     1,
		Description: "deliveries journal",
		SQL: `
			CREATE TABLE deliveries (
				id        INTEGER PRIMARY KEY AUTOINCREMENT,
				at        INTEGER NOT NULL,
				source    TEXT    NOT NULL,
				line      INTEGER NOT NULL,
				task      TEXT    NOT NULL,
				due_at    INTEGER NOT NULL,
				chat_id   INTEGER NOT NULL DEFAULT 0,
				thread_id INTEGER NOT NULL DEFAULT 0
			);
			CREATE INDEX idx_deliveries_at ON deliveries(at);
		`,
	},
}

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return newSQLite(path, cfg.BusyTimeout, log)
}

// openSQLiteMemory backs tests; a single connection keeps the database alive.
func openSQLiteMemory(log logx.Logger) (*sqliteStore, error) {
	return newSQLite(":memory:", 0, log)
}

func newSQLite(path string, busy time.Duration, log logx.Logger) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if busy <= 0 {
		busy = 5 * time.Second
	}
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL
		)`); err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_versions WHERE version = ?`, m.Version).Scan(&n); err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if n > 0 {
			continue
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_versions(version, description, applied_at) VALUES(?,?,?)`,
			m.Version, m.Description, time.Now().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
		s.log.Debug("migration applied", logx.Int("version", m.Version), logx.String("desc", m.Description))
	}
	return nil
}

func (s *sqliteStore) schemaVersion(ctx context.Context) (int, error) {
	var v sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_versions`).Scan(&v)
	return int(v.Int64), err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AppendDelivery(ctx context.Context, d Delivery) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if d.At.IsZero() {
		d.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries(at, source, line, task, due_at, chat_id, thread_id) VALUES(?,?,?,?,?,?,?)`,
		d.At.UnixMilli(), d.Source, d.Line, d.Task, d.DueAt.Unix(), d.ChatID, d.ThreadID,
	)
	return err
}

func (s *sqliteStore) RecentDeliveries(ctx context.Context, limit int) ([]Delivery, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, source, line, task, due_at, chat_id, thread_id
		 FROM deliveries ORDER BY at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var (
			d          Delivery
			atMS, dueS int64
		)
		if err := rows.Scan(&atMS, &d.Source, &d.Line, &d.Task, &dueS, &d.ChatID, &d.ThreadID); err != nil {
			return nil, err
		}
		d.At = time.UnixMilli(atMS)
		d.DueAt = time.Unix(dueS, 0)
		out = append(out, d)
	}
	return out, rows.Err()
}
