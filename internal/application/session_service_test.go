package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func tokenSequence(tokens ...string) func() string {
	return func() string {
		if len(tokens) == 0 {
			return "fallback"
		}
		token := tokens[0]
		tokens = tokens[1:]
		return token
	}
}

func TestSessionService_Start(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := NewSessionService(newSessionRepositoryStub(), tokenSequence("fresh"), func() time.Time { return now }, 2*time.Hour)

	session := svc.Start()
	if session.Token != "fresh" || session.Authenticated || session.UserID != "" {
		t.Fatalf("unexpected session %#v", session)
	}
	if !session.ExpiresAt.Equal(now.Add(2 * time.Hour)) {
		t.Fatalf("expected expiry after ttl, got %v", session.ExpiresAt)
	}
}

func TestNewSessionToken(t *testing.T) {
	t.Parallel()

	a, b := NewSessionToken(), NewSessionToken()
	if len(a) != 64 || a == b {
		t.Fatalf("expected distinct 64 character tokens, got %q and %q", a, b)
	}
}

func TestSessionService_Load(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("returns live sessions", func(t *testing.T) {
		t.Parallel()

		repo := newSessionRepositoryStub(Session{Token: "live", UserID: "user-1", Authenticated: true, ExpiresAt: now.Add(time.Hour)})
		svc := NewSessionService(repo, nil, clock, time.Hour)

		session, err := svc.Load(context.Background(), "live")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if session.UserID != "user-1" {
			t.Fatalf("unexpected session %#v", session)
		}
	})

	t.Run("expired sessions are removed and reported missing", func(t *testing.T) {
		t.Parallel()

		repo := newSessionRepositoryStub(Session{Token: "stale", ExpiresAt: now})
		svc := NewSessionService(repo, nil, clock, time.Hour)

		if _, err := svc.Load(context.Background(), "stale"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, ok := repo.sessions["stale"]; ok {
			t.Fatalf("expected expired session to be deleted")
		}
	})

	t.Run("unknown and blank tokens are not found", func(t *testing.T) {
		t.Parallel()

		svc := NewSessionService(newSessionRepositoryStub(), nil, clock, time.Hour)
		for _, token := range []string{"", "  ", "missing"} {
			if _, err := svc.Load(context.Background(), token); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Load(%q): expected ErrNotFound, got %v", token, err)
			}
		}
	})

	t.Run("store failures surface as unavailable", func(t *testing.T) {
		t.Parallel()

		repo := newSessionRepositoryStub()
		repo.getErr = errors.New("database is locked")
		svc := NewSessionService(repo, nil, clock, time.Hour)

		if _, err := svc.Load(context.Background(), "any"); !errors.Is(err, ErrStoreUnavailable) {
			t.Fatalf("expected ErrStoreUnavailable, got %v", err)
		}
	})
}

func TestSessionService_Save(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newSessionRepositoryStub()
	svc := NewSessionService(repo, nil, func() time.Time { return now }, time.Hour)

	if err := svc.Save(context.Background(), Session{}); err == nil {
		t.Fatalf("expected error for session without token")
	}

	if err := svc.Save(context.Background(), Session{Token: "t", Flashes: []Flash{{Kind: FlashInfo, Message: "hi"}}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	stored := repo.sessions["t"]
	if !stored.UpdatedAt.Equal(now) || !stored.ExpiresAt.Equal(now.Add(time.Hour)) || len(stored.Flashes) != 1 {
		t.Fatalf("unexpected stored session %#v", stored)
	}

	repo.saveErr = errors.New("disk I/O error")
	if err := svc.Save(context.Background(), Session{Token: "t"}); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestSessionService_Login(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("rotates the token and keeps flashes", func(t *testing.T) {
		t.Parallel()

		anonymous := Session{Token: "before", ExpiresAt: now.Add(time.Hour), Flashes: []Flash{{Kind: FlashInfo, Message: "carry"}}}
		expired := Session{Token: "old", ExpiresAt: now.Add(-time.Minute)}
		repo := newSessionRepositoryStub(anonymous, expired)
		svc := NewSessionService(repo, tokenSequence("after"), func() time.Time { return now }, time.Hour)

		session, err := svc.Login(context.Background(), anonymous, User{ID: "user-1"})
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if session.Token != "after" || !session.Authenticated || session.UserID != "user-1" {
			t.Fatalf("unexpected session %#v", session)
		}
		if len(session.Flashes) != 1 || session.Flashes[0].Message != "carry" {
			t.Fatalf("expected flashes to carry over, got %#v", session.Flashes)
		}
		if _, ok := repo.sessions["before"]; ok {
			t.Fatalf("expected previous token to be revoked")
		}
		if _, ok := repo.sessions["old"]; ok {
			t.Fatalf("expected expired sessions to be pruned")
		}
		if len(repo.pruneCalls) != 1 || !repo.pruneCalls[0].Equal(now) {
			t.Fatalf("expected prune with now, got %#v", repo.pruneCalls)
		}
		if _, ok := repo.sessions["after"]; !ok {
			t.Fatalf("expected new session to be stored")
		}
	})

	t.Run("requires a user", func(t *testing.T) {
		t.Parallel()

		svc := NewSessionService(newSessionRepositoryStub(), nil, nil, time.Hour)
		if _, err := svc.Login(context.Background(), Session{}, User{}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("propagates cleanup failures", func(t *testing.T) {
		t.Parallel()

		repo := newSessionRepositoryStub()
		repo.pruneErr = errors.New("cleanup failed")
		svc := NewSessionService(repo, nil, nil, time.Hour)

		if _, err := svc.Login(context.Background(), Session{}, User{ID: "user-1"}); !errors.Is(err, ErrStoreUnavailable) {
			t.Fatalf("expected ErrStoreUnavailable, got %v", err)
		}
	})
}

func TestSessionService_Logout(t *testing.T) {
	t.Parallel()

	repo := newSessionRepositoryStub(Session{Token: "active"})
	svc := NewSessionService(repo, nil, nil, time.Hour)

	if err := svc.Logout(context.Background(), "active"); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, ok := repo.sessions["active"]; ok {
		t.Fatalf("expected session to be deleted")
	}
	if err := svc.Logout(context.Background(), ""); err != nil {
		t.Fatalf("expected blank token to be ignored, got %v", err)
	}
	if len(repo.deleteCalls) != 1 {
		t.Fatalf("expected a single delete call, got %#v", repo.deleteCalls)
	}

	repo.deleteErr = errors.New("readonly database")
	if err := svc.Logout(context.Background(), "other"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestSessionService_PurgeExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newSessionRepositoryStub(
		Session{Token: "a", ExpiresAt: now.Add(-time.Hour)},
		Session{Token: "b", ExpiresAt: now.Add(-time.Second)},
		Session{Token: "c", ExpiresAt: now.Add(time.Hour)},
	)
	svc := NewSessionService(repo, nil, func() time.Time { return now }, time.Hour)

	removed, err := svc.PurgeExpired(context.Background())
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if removed != 2 || len(repo.sessions) != 1 {
		t.Fatalf("expected 2 removed and 1 kept, got %d removed and %d kept", removed, len(repo.sessions))
	}
}
