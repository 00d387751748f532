// Package store persists per-project synchronization state in a SQLite
// database under the sync root. The executor writes a row after every
// successful clone or fetch; the scanner reads it back to decide how
// fresh a working copy is.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const currentSchemaVersion = 1

// DefaultPath returns the state DB location for a sync root.
func DefaultPath(root string) string {
	return filepath.Join(root, ".glmirror", "state.db")
}

// Record is one project's sync bookkeeping.
type Record struct {
	RelPath  string
	Upstream string
	LastSync time.Time
}

// Store is the SQLite-backed state store. Safe for concurrent use; the
// underlying *sql.DB serializes access.
type Store struct {
	db *sql.DB
}

// Open opens or creates the DB at path and runs migrations. The parent
// directory is created if it does not exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);
		CREATE TABLE IF NOT EXISTS projects (
			path      TEXT PRIMARY KEY,
			upstream  TEXT NOT NULL DEFAULT '',
			last_sync TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var version int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion)
		if err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version > currentSchemaVersion:
		return fmt.Errorf("state DB schema v%d is newer than this build supports (v%d)", version, currentSchemaVersion)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// RecordSync upserts the sync timestamp and upstream for a project.
func (s *Store) RecordSync(relPath, upstream string, at time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO projects (path, upstream, last_sync) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET upstream = excluded.upstream, last_sync = excluded.last_sync
	`, relPath, upstream, at.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record sync %s: %w", relPath, err)
	}
	return nil
}

// LastSync returns the recorded sync time for a path. The second
// result is false when the path is unknown or the row is unreadable,
// in which case callers fall back to filesystem evidence.
func (s *Store) LastSync(relPath string) (time.Time, bool) {
	var raw string
	err := s.db.QueryRow("SELECT last_sync FROM projects WHERE path = ?", relPath).Scan(&raw)
	if err != nil {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// All returns every record, ordered by path.
func (s *Store) All() ([]Record, error) {
	rows, err := s.db.Query("SELECT path, upstream, last_sync FROM projects ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var raw string
		if err := rows.Scan(&r.RelPath, &r.Upstream, &raw); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if ts, perr := time.Parse(time.RFC3339, raw); perr == nil {
			r.LastSync = ts
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Delete drops a project's record, e.g. after its orphaned working
// copy was cleaned up.
func (s *Store) Delete(relPath string) error {
	_, err := s.db.Exec("DELETE FROM projects WHERE path = ?", relPath)
	if err != nil {
		return fmt.Errorf("delete record %s: %w", relPath, err)
	}
	return nil
}
