package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sync_entries (
	assignment_id  TEXT PRIMARY KEY,
	remote_task_id TEXT NOT NULL,
	last_status    TEXT NOT NULL DEFAULT '',
	last_sync      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_sync_entries_remote ON sync_entries(remote_task_id);
CREATE TABLE IF NOT EXISTS sync_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// SQLiteStore keeps the mappings in an embedded SQLite database. Every
// mutation is a single statement, so each entry change is atomic.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sync database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to configure sync database (%s): %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sync schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(assignmentID string) (Entry, bool) {
	var e Entry
	var lastSync string
	err := s.db.QueryRow(
		`SELECT remote_task_id, last_status, last_sync FROM sync_entries WHERE assignment_id = ?`,
		assignmentID,
	).Scan(&e.RemoteTaskID, &e.LastStatus, &lastSync)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Printf("Warning: failed to read sync entry %s: %v", assignmentID, err)
		}
		return Entry{}, false
	}
	e.LastSync = parseStoredTime(lastSync)
	return e, true
}

func (s *SQLiteStore) Set(assignmentID string, entry Entry) {
	_, err := s.db.Exec(`
		INSERT INTO sync_entries (assignment_id, remote_task_id, last_status, last_sync)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(assignment_id) DO UPDATE SET
			remote_task_id = excluded.remote_task_id,
			last_status = excluded.last_status,
			last_sync = excluded.last_sync`,
		assignmentID, entry.RemoteTaskID, entry.LastStatus, formatStoredTime(entry.LastSync))
	if err != nil {
		log.Printf("Warning: failed to write sync entry %s: %v", assignmentID, err)
	}
}

func (s *SQLiteStore) Delete(assignmentID string) {
	if _, err := s.db.Exec(`DELETE FROM sync_entries WHERE assignment_id = ?`, assignmentID); err != nil {
		log.Printf("Warning: failed to delete sync entry %s: %v", assignmentID, err)
	}
}

func (s *SQLiteStore) All() map[string]Entry {
	out := make(map[string]Entry)
	rows, err := s.db.Query(`SELECT assignment_id, remote_task_id, last_status, last_sync FROM sync_entries`)
	if err != nil {
		log.Printf("Warning: failed to list sync entries: %v", err)
		return out
	}
	defer rows.Close()

	for rows.Next() {
		var id, lastSync string
		var e Entry
		if err := rows.Scan(&id, &e.RemoteTaskID, &e.LastStatus, &lastSync); err != nil {
			log.Printf("Warning: failed to scan sync entry: %v", err)
			continue
		}
		e.LastSync = parseStoredTime(lastSync)
		out[id] = e
	}
	if err := rows.Err(); err != nil {
		log.Printf("Warning: failed to iterate sync entries: %v", err)
	}
	return out
}

func (s *SQLiteStore) LastSync() (time.Time, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM sync_meta WHERE key = 'last_sync'`).Scan(&value)
	if err != nil {
		return time.Time{}, false
	}
	t := parseStoredTime(value)
	return t, !t.IsZero()
}

func (s *SQLiteStore) SetLastSync(t time.Time) {
	_, err := s.db.Exec(`
		INSERT INTO sync_meta (key, value) VALUES ('last_sync', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, formatStoredTime(t))
	if err != nil {
		log.Printf("Warning: failed to record last sync time: %v", err)
	}
}

func formatStoredTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseStoredTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
