// Package testutil provides shared test helpers for setting up stores and users.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/starford/notely/internal/models"
	"github.com/starford/notely/internal/store"
)

// TestStore creates a temporary SQLite store that is automatically cleaned up.
func TestStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "notely-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() {
		os.Remove(dbFile.Name())
		os.Remove(dbFile.Name() + "-wal")
		os.Remove(dbFile.Name() + "-shm")
	})

	s, err := store.Open(store.DriverSQLite, dbFile.Name(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// SeedUser inserts a user with a placeholder password hash.
func SeedUser(t *testing.T, s *store.Store, username string) *models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), username, "not-a-real-hash")
	if err != nil {
		t.Fatalf("seed user %q: %v", username, err)
	}
	return u
}

// Clock is a deterministic clock that advances one second per call.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock starting at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time and advances it.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}
