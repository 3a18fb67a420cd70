// Package testutil provides shared test helpers for setting up stores and services.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/starford/inkwell/internal/noteservice"
	"github.com/starford/inkwell/internal/notes"
	"github.com/starford/inkwell/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Clock returns a deterministic clock that advances one second per call.
func Clock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		t := next
		next = next.Add(time.Second)
		return t
	}
}

// TestStore creates a file-backed adapter rooted in a temporary directory.
func TestStore(t *testing.T) (string, *storage.Adapter) {
	t.Helper()
	dir := t.TempDir()
	kv, err := storage.NewFileKV(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { kv.Close() })
	return dir, storage.NewAdapter(kv, storage.DefaultKey, Logger())
}

// TestRepo creates an in-memory repository with a deterministic clock.
func TestRepo(t *testing.T) *notes.Repository {
	t.Helper()
	adapter := storage.NewAdapter(storage.NewMemoryKV(), storage.DefaultKey, Logger())
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return notes.New(context.Background(), adapter,
		notes.WithClock(Clock(start)), notes.WithLogger(Logger()))
}

// TestService wraps TestRepo in a note service.
func TestService(t *testing.T, opts ...noteservice.Option) *noteservice.Service {
	t.Helper()
	return noteservice.NewService(TestRepo(t), opts...)
}
