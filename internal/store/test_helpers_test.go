package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/kinda/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
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

// createTestRun writes a run and returns its id.
func createTestRun(t *testing.T, s *Store, id string) string {
	t.Helper()
	if err := s.WriteRun(context.Background(), Run{ID: id, Name: id + "-scenario"}); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	return id
}

func emitRecord(seq int64, object, event string, args ...any) ir.TraceRecord {
	arr, err := ir.ArrayFromGo(args)
	if err != nil {
		panic(err)
	}
	return ir.TraceRecord{Seq: seq, Kind: ir.TraceEmit, Object: object, Event: event, Args: arr}
}
