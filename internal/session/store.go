package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no usable snapshot exists for a session key,
// including snapshots that aged out.
var ErrNotFound = errors.New("session: snapshot not found")

// Store keeps snapshots in sqlite. Writes are last-write-wins per session
// key; a snapshot older than the TTL is treated as absent and deleted on
// read.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	mu  sync.Mutex

	now func() time.Time
}

func NewStore(dbPath string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db, ttl: ttl, now: time.Now}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_key TEXT PRIMARY KEY,
			snapshot TEXT NOT NULL,
			saved_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_saved ON sessions(saved_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put upserts the snapshot for its session key, stamping SavedAt.
func (s *Store) Put(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap.SavedAt = s.now()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO sessions (session_key, snapshot, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT(session_key) DO UPDATE SET
			snapshot = excluded.snapshot,
			saved_at = excluded.saved_at
	`, snap.SessionKey, string(data), snap.SavedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

// Get loads the snapshot for a session key. A snapshot is usable only while
// strictly younger than the TTL; one that reached the TTL is deleted and
// reported as not found.
func (s *Store) Get(sessionKey string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw, savedAt string
	err := s.db.QueryRow(`
		SELECT snapshot, saved_at FROM sessions WHERE session_key = ?
	`, sessionKey).Scan(&raw, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}

	saved, err := time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse saved_at: %w", err)
	}
	if s.now().Sub(saved) >= s.ttl {
		_, _ = s.db.Exec(`DELETE FROM sessions WHERE session_key = ?`, sessionKey)
		return Snapshot{}, ErrNotFound
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// Delete removes a snapshot. Deleting an absent key is not an error.
func (s *Store) Delete(sessionKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM sessions WHERE session_key = ?`, sessionKey); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// PurgeExpired drops every snapshot that reached the TTL and reports how
// many were removed.
func (s *Store) PurgeExpired() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl).UTC().Format(time.RFC3339Nano)
	res, err := s.db.Exec(`DELETE FROM sessions WHERE saved_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
