package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"tome.dev/tome/internal/pluginabi"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBufferVersion_SetGet(t *testing.T) {
	s := openTestStore(t)

	if v := s.BufferVersion("/tmp/a.go"); v != 0 {
		t.Fatalf("expected 0 for unknown path, got %d", v)
	}

	s.SetBufferVersion("/tmp/a.go", 3)
	if v := s.BufferVersion("/tmp/a.go"); v != 3 {
		t.Fatalf("got %d want 3", v)
	}

	s.SetBufferVersion("/tmp/a.go", 7)
	if v := s.BufferVersion("/tmp/a.go"); v != 7 {
		t.Fatalf("got %d want 7 after update", v)
	}
}

func TestPluginGrant_RecordAndRead(t *testing.T) {
	s := openTestStore(t)
	req := pluginabi.PermissionRequest{
		PluginName: "formatter",
		Access:     pluginabi.FsWrite,
		Path:       "/tmp/project",
	}

	if _, found := s.HasGrant(req); found {
		t.Fatal("expected no decision on record yet")
	}

	s.RecordGrant(req, true)
	granted, found := s.HasGrant(req)
	if !found || !granted {
		t.Fatalf("expected granted=true found=true, got granted=%v found=%v", granted, found)
	}

	s.RecordGrant(req, false)
	granted, found = s.HasGrant(req)
	if !found || granted {
		t.Fatalf("expected granted=false after re-recording denial, got granted=%v found=%v", granted, found)
	}
}

func TestBrokerSessionAuditLog(t *testing.T) {
	s := openTestStore(t)
	s.RecordSessionStart("sess-1")
	s.RecordSessionEnd("sess-1", 4)

	var ended sql.NullInt64
	row := s.db.QueryRow("SELECT ended, doc_count FROM broker_sessions WHERE session_id = ?", "sess-1")
	var docCount int
	if err := row.Scan(&ended, &docCount); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !ended.Valid {
		t.Fatal("expected ended to be set")
	}
	if docCount != 4 {
		t.Fatalf("doc_count = %d want 4", docCount)
	}
}
