package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/event-listing/internal/adapter"
	"github.com/example/event-listing/internal/persistence"
	"github.com/example/event-listing/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary, migrated
// SQLite database file.
type SQLiteHarness struct {
	Storage  *sqlite.Storage
	Users    persistence.UserRepository
	Events   persistence.EventRepository
	Sessions persistence.SessionRepository

	// Repos exposes the same storage through the application interfaces.
	Repos adapter.Repositories

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a database in tb.TempDir. The harness
// closes itself through tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "events.db")
	ctx := context.Background()

	storage, err := sqlite.Open(ctx, "file:"+path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := storage.Migrate(ctx, quiet); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:  storage,
		Users:    storage,
		Events:   storage,
		Sessions: storage,
		Repos:    adapter.New(storage),
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// InsertUser stores fixture directly through the repository.
func (h *SQLiteHarness) InsertUser(tb testing.TB, fixture UserFixture) UserFixture {
	tb.Helper()
	if err := h.Users.CreateUser(context.Background(), fixture.Persistence()); err != nil {
		tb.Fatalf("insert user %s: %v", fixture.Email, err)
	}
	return fixture
}

// InsertEvent stores fixture directly through the repository.
func (h *SQLiteHarness) InsertEvent(tb testing.TB, fixture EventFixture) EventFixture {
	tb.Helper()
	if err := h.Events.CreateEvent(context.Background(), fixture.Persistence()); err != nil {
		tb.Fatalf("insert event %s: %v", fixture.Title, err)
	}
	return fixture
}

// InsertSession stores fixture directly through the repository.
func (h *SQLiteHarness) InsertSession(tb testing.TB, fixture SessionFixture) SessionFixture {
	tb.Helper()
	if err := h.Sessions.SaveSession(context.Background(), fixture.Persistence()); err != nil {
		tb.Fatalf("insert session %s: %v", fixture.Token, err)
	}
	return fixture
}
