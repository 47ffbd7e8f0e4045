// Package store provides the sqlite-backed persistence the editor keeps
// across restarts: per-path buffer version numbers (so the broker can
// detect a document changed out from under it), plugin permission grants
// (so PermissionRequest only prompts once per plugin/path/access), and a
// broker session audit log. Grounded on
// _examples/sacenox-symb/internal/store's Cache: same Open/Close shape,
// same pragma tuning, same sql.DB-behind-a-mutex structure, retargeted
// schema and queries.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // register sqlite driver

	"tome.dev/tome/internal/pluginabi"
)

const schema = `
CREATE TABLE IF NOT EXISTS buffer_versions (
	path      TEXT PRIMARY KEY,
	version   INTEGER NOT NULL,
	updated   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS plugin_grants (
	plugin_name TEXT NOT NULL,
	access      INTEGER NOT NULL,
	path        TEXT NOT NULL,
	granted     INTEGER NOT NULL,
	created     INTEGER NOT NULL,
	PRIMARY KEY (plugin_name, access, path)
);

CREATE TABLE IF NOT EXISTS broker_sessions (
	session_id TEXT PRIMARY KEY,
	started    INTEGER NOT NULL,
	ended      INTEGER,
	doc_count  INTEGER NOT NULL DEFAULT 0
);
`

// Store is the sqlite-backed persistence handle shared by the editor and
// the broker daemon.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens a store database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database. Safe to call on a nil receiver.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// --- Buffer versions -------------------------------------------------------

// BufferVersion returns the last-persisted version for path, or 0 if none
// is on record. Safe to call on a nil receiver.
func (s *Store) BufferVersion(path string) uint64 {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var version uint64
	err := s.db.QueryRow("SELECT version FROM buffer_versions WHERE path = ?", path).Scan(&version)
	if err != nil {
		return 0
	}
	return version
}

// SetBufferVersion records version as the last-known version for path.
// No-op on a nil receiver.
func (s *Store) SetBufferVersion(path string, version uint64) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT INTO buffer_versions (path, version, updated) VALUES (?, ?, ?) "+
			"ON CONFLICT(path) DO UPDATE SET version = excluded.version, updated = excluded.updated",
		path, version, time.Now().Unix(),
	)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to persist buffer version")
	}
}

// --- Plugin permission grants ----------------------------------------------

// HasGrant reports whether req was previously granted (true) or denied
// (false) by the user, and whether any decision is on record at all.
func (s *Store) HasGrant(req pluginabi.PermissionRequest) (granted bool, found bool) {
	if s == nil {
		return false, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var g int
	err := s.db.QueryRow(
		"SELECT granted FROM plugin_grants WHERE plugin_name = ? AND access = ? AND path = ?",
		req.PluginName, int(req.Access), req.Path,
	).Scan(&g)
	if err != nil {
		return false, false
	}
	return g != 0, true
}

// RecordGrant persists the user's decision for req so future identical
// requests don't re-prompt.
func (s *Store) RecordGrant(req pluginabi.PermissionRequest, granted bool) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	g := 0
	if granted {
		g = 1
	}
	_, err := s.db.Exec(
		"INSERT INTO plugin_grants (plugin_name, access, path, granted, created) VALUES (?, ?, ?, ?, ?) "+
			"ON CONFLICT(plugin_name, access, path) DO UPDATE SET granted = excluded.granted, created = excluded.created",
		req.PluginName, int(req.Access), req.Path, g, time.Now().Unix(),
	)
	if err != nil {
		log.Warn().Err(err).Str("plugin", req.PluginName).Msg("failed to persist permission grant")
	}
}

// --- Broker session audit log ----------------------------------------------

// RecordSessionStart appends a new broker session row.
func (s *Store) RecordSessionStart(sessionID string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO broker_sessions (session_id, started, ended, doc_count) VALUES (?, ?, NULL, 0)",
		sessionID, time.Now().Unix(),
	)
	if err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("failed to record broker session start")
	}
}

// RecordSessionEnd marks sessionID as ended with the given final document
// count, for post-mortem audit of broker activity.
func (s *Store) RecordSessionEnd(sessionID string, docCount int) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"UPDATE broker_sessions SET ended = ?, doc_count = ? WHERE session_id = ?",
		time.Now().Unix(), docCount, sessionID,
	)
	if err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("failed to record broker session end")
	}
}
