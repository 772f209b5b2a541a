package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun writes a run record and fails the test on error.
func createTestRun(t *testing.T, s *Store, id string) Run {
	t.Helper()
	run, err := s.WriteRun(context.Background(), id, "test-scenario")
	if err != nil {
		t.Fatalf("WriteRun(%q) failed: %v", id, err)
	}
	return run
}

// createTestEvent builds an event record with minimal fields.
func createTestEvent(seq int64, stream, key, kind, value string) EventRecord {
	return EventRecord{Seq: seq, Stream: stream, Key: key, Kind: kind, Value: value}
}
