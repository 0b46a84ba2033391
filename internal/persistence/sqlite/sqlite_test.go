package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/event-listing/internal/persistence"
)

var testTime = time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "events.db")
	storage, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}

	t.Cleanup(func() {
		_ = storage.Close()
	})

	if err := storage.Migrate(context.Background(), quietLogger()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return storage
}

func testUser(id, email string) persistence.User {
	return persistence.User{
		ID:            id,
		Email:         email,
		PasswordHash:  "$argon2id$hash-" + id,
		FirstName:     "Test",
		LastName:      "User",
		IsActive:      true,
		EmailVerified: false,
		CreatedAt:     testTime,
		UpdatedAt:     testTime,
	}
}

func strPtr(s string) *string {
	return &s
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	version, err := storage.Pool().SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != 2 {
		t.Fatalf("expected schema version 2, got %d", version)
	}

	applied, err := storage.Pool().Migrate(ctx, quietLogger())
	if err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected no migrations on second run, got %#v", applied)
	}

	for _, table := range []string{"users", "events", "sessions"} {
		var name string
		if err := storage.Pool().DB().GetContext(ctx, &name, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table); err != nil {
			t.Fatalf("expected table %s: %v", table, err)
		}
	}

	var fk int
	if err := storage.Pool().DB().GetContext(ctx, &fk, `PRAGMA foreign_keys`); err != nil {
		t.Fatalf("read foreign_keys pragma: %v", err)
	}
	if fk != 1 {
		t.Fatalf("expected foreign keys to be enforced")
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}

func TestStoragePing(t *testing.T) {
	storage := newTestStorage(t)
	if err := storage.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestWithPragmas(t *testing.T) {
	cfg := DefaultConfig("file:events.db")
	got := withPragmas(cfg)
	want := "file:events.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	cfg.DSN = "file:events.db?mode=rwc&_pragma=journal_mode(DELETE)"
	got = withPragmas(cfg)
	want = "file:events.db?mode=rwc&_pragma=journal_mode(DELETE)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestTimestampsRoundTrip(t *testing.T) {
	local := time.Date(2024, time.July, 4, 20, 30, 15, 123456000, time.FixedZone("EST", -5*3600))
	formatted := formatTime(local)
	if formatted != "2024-07-05T01:30:15.123456Z" {
		t.Fatalf("unexpected format %q", formatted)
	}
	parsed, err := parseTime("ts", formatted)
	if err != nil || !parsed.Equal(local) {
		t.Fatalf("round trip failed: %v, %v", parsed, err)
	}
	if parsed, err := parseTime("ts", "2024-07-05T01:30:15Z"); err != nil || parsed.Hour() != 1 {
		t.Fatalf("expected RFC3339 fallback, got %v, %v", parsed, err)
	}
	if _, err := parseTime("ts", "yesterday"); err == nil {
		t.Fatal("expected parse error")
	}
}
