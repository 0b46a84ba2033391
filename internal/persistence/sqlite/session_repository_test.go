package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/event-listing/internal/persistence"
)

func testSession(token, userID string, expiresAt time.Time) persistence.Session {
	return persistence.Session{
		Token:         token,
		UserID:        userID,
		Authenticated: userID != "",
		ExpiresAt:     expiresAt,
		CreatedAt:     testTime,
		UpdatedAt:     testTime,
	}
}

func TestSessionRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	session := testSession("token-1", "", testTime.Add(time.Hour))
	if err := storage.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := storage.GetSession(ctx, " token-1 ")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.UserID != "" || got.Authenticated || len(got.Flashes) != 0 {
		t.Fatalf("unexpected anonymous session %#v", got)
	}
	if !got.ExpiresAt.Equal(session.ExpiresAt) {
		t.Fatalf("expected expiry %v, got %v", session.ExpiresAt, got.ExpiresAt)
	}
}

func TestSessionRepository_SaveUpserts(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)
	if err := storage.CreateUser(ctx, testUser("user-1", "user@example.com")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	session := testSession("token-1", "", testTime.Add(time.Hour))
	if err := storage.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	updated := testSession("token-1", "user-1", testTime.Add(2*time.Hour))
	updated.CreatedAt = testTime.Add(time.Minute)
	updated.UpdatedAt = testTime.Add(time.Minute)
	updated.Flashes = []persistence.Flash{{Kind: "success", Message: "Welcome back!"}}
	if err := storage.SaveSession(ctx, updated); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := storage.GetSession(ctx, "token-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.UserID != "user-1" || !got.Authenticated {
		t.Fatalf("expected authenticated session, got %#v", got)
	}
	if len(got.Flashes) != 1 || got.Flashes[0].Message != "Welcome back!" {
		t.Fatalf("unexpected flashes %#v", got.Flashes)
	}
	if !got.CreatedAt.Equal(testTime) {
		t.Fatalf("expected created_at to be preserved, got %v", got.CreatedAt)
	}
	if !got.UpdatedAt.Equal(testTime.Add(time.Minute)) || !got.ExpiresAt.Equal(testTime.Add(2*time.Hour)) {
		t.Fatalf("expected refreshed timestamps, got %#v", got)
	}
}

func TestSessionRepository_Validation(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	if err := storage.SaveSession(ctx, testSession(" ", "", testTime)); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
	if err := storage.SaveSession(ctx, testSession("token-1", "ghost", testTime)); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}
	if _, err := storage.GetSession(ctx, "unknown"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := storage.GetSession(ctx, ""); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for blank token, got %v", err)
	}
}

func TestSessionRepository_Delete(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	if err := storage.SaveSession(ctx, testSession("token-1", "", testTime.Add(time.Hour))); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if err := storage.DeleteSession(ctx, "token-1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := storage.GetSession(ctx, "token-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := storage.DeleteSession(ctx, "token-1"); err != nil {
		t.Fatalf("deleting an unknown token should succeed, got %v", err)
	}
	if err := storage.DeleteSession(ctx, ""); err != nil {
		t.Fatalf("deleting a blank token should succeed, got %v", err)
	}
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)

	sessions := []persistence.Session{
		testSession("expired", "", testTime.Add(-time.Minute)),
		testSession("boundary", "", testTime),
		testSession("live", "", testTime.Add(time.Minute)),
	}
	for _, session := range sessions {
		if err := storage.SaveSession(ctx, session); err != nil {
			t.Fatalf("SaveSession failed: %v", err)
		}
	}

	removed, err := storage.DeleteExpiredSessions(ctx, testTime)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 sessions removed, got %d", removed)
	}
	if _, err := storage.GetSession(ctx, "live"); err != nil {
		t.Fatalf("expected live session to remain, got %v", err)
	}
}
