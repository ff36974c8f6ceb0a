// Package testutil provides shared test helpers for caches, gateways and
// timer-driven assertions.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/daybook/internal/cache"
)

// Logger discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestCache opens a SQLite cache in a temporary directory that is closed on
// cleanup. Reopening the same path simulates a process restart.
func TestCache(t *testing.T) (*cache.SQLite, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	return OpenCache(t, path), path
}

// OpenCache opens the SQLite cache at path.
func OpenCache(t *testing.T, path string) *cache.SQLite {
	t.Helper()
	c, err := cache.OpenSQLite(path, Logger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// Eventually polls cond until it holds or the timeout expires.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
