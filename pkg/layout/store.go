// Package layout persists window geometry between sessions. A store
// holds named snapshots of the window set; a host saves one on exit
// and restores it on the next start.
package layout

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// ErrStoreClosed indicates the underlying database connection is
// unavailable.
var ErrStoreClosed = errors.New("layout: closed")

// WindowLayout is one saved window geometry.
type WindowLayout struct {
	WindowID    string
	Title       string
	X           int
	Y           int
	Width       int
	Height      int
	Z           int
	AlwaysOnTop bool
	Hidden      bool
	Focused     bool
}

// Store manages layout snapshots in a SQLite database.
type Store struct {
	db     *sql.DB
	closed atomic.Bool
}

// Open creates or opens the layout database at path. The file and its
// parent directory are created private to the user.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("layout: db path cannot be empty")
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("create layout directory: %w", err)
			}
		}
		if err := ensurePrivateFile(path); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open layout database: %w", err)
	}

	// SQLite supports one writer at a time; WAL lets readers proceed
	// alongside it.
	db.SetMaxOpenConns(4)
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func ensurePrivateFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat layout db: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("create layout db: %w", err)
	}
	return f.Close()
}

type migration struct {
	version int
	name    string
	apply   func(db *sql.DB) error
}

// migrations is the ordered list; version 1 is the base schema, which
// runMigrations applies separately because it is idempotent.
var migrations = []migration{
	{1, "initial_schema", func(db *sql.DB) error { return nil }},
}

func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply base schema: %w", err)
	}

	var current int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := m.apply(db); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := db.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			m.version, m.name,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

// Close closes the database connection. Safe to call more than once.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// Save replaces the named session's snapshot with the given windows.
// Saving an empty set deletes the session.
func (s *Store) Save(ctx context.Context, session string, windows []WindowLayout) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if session == "" {
		return fmt.Errorf("layout: session name cannot be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin layout save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM layouts WHERE session = ?", session); err != nil {
		return fmt.Errorf("clear session %q: %w", session, err)
	}

	const insert = `
		INSERT INTO layouts (session, window_id, title, x, y, width, height, z, always_on_top, hidden, focused)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, w := range windows {
		if _, err := tx.ExecContext(ctx, insert,
			session, w.WindowID, w.Title, w.X, w.Y, w.Width, w.Height,
			w.Z, boolInt(w.AlwaysOnTop), boolInt(w.Hidden), boolInt(w.Focused),
		); err != nil {
			return fmt.Errorf("save window %q: %w", w.WindowID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit layout save: %w", err)
	}
	return nil
}

// Load returns the named session's snapshot, back to front, or an
// empty slice for an unknown session.
func (s *Store) Load(ctx context.Context, session string) ([]WindowLayout, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	const query = `
		SELECT window_id, title, x, y, width, height, z, always_on_top, hidden, focused
		FROM layouts
		WHERE session = ?
		ORDER BY always_on_top, z, window_id
	`
	rows, err := s.db.QueryContext(ctx, query, session)
	if err != nil {
		return nil, fmt.Errorf("load session %q: %w", session, err)
	}
	defer rows.Close()

	var layouts []WindowLayout
	for rows.Next() {
		var w WindowLayout
		var onTop, hidden, focused int
		if err := rows.Scan(&w.WindowID, &w.Title, &w.X, &w.Y, &w.Width, &w.Height,
			&w.Z, &onTop, &hidden, &focused); err != nil {
			return nil, fmt.Errorf("scan layout row: %w", err)
		}
		w.AlwaysOnTop = onTop != 0
		w.Hidden = hidden != 0
		w.Focused = focused != 0
		layouts = append(layouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read session %q: %w", session, err)
	}
	return layouts, nil
}

// Sessions lists the saved session names.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT session FROM layouts ORDER BY session")
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan session name: %w", err)
		}
		sessions = append(sessions, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read sessions: %w", err)
	}
	return sessions, nil
}

// Delete removes the named session's snapshot.
func (s *Store) Delete(ctx context.Context, session string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM layouts WHERE session = ?", session); err != nil {
		return fmt.Errorf("delete session %q: %w", session, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
