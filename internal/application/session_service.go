package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// SessionRepository captures the persistence interactions for browser sessions.
type SessionRepository interface {
	GetSession(ctx context.Context, token string) (Session, error)
	SaveSession(ctx context.Context, session Session) error
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error)
}

// DefaultSessionTTL is the lifetime of a session cookie.
const DefaultSessionTTL = 24 * time.Hour

// NewSessionToken returns a random 256-bit session identifier.
func NewSessionToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("generate session token: %v", err))
	}
	return hex.EncodeToString(buf)
}

// SessionService coordinates the lifecycle of server-side sessions: issuing,
// loading, signing in with token rotation and signing out.
type SessionService struct {
	sessions       SessionRepository
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewSessionService constructs a SessionService with the provided dependencies.
func NewSessionService(sessions SessionRepository, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration) *SessionService {
	return NewSessionServiceWithLogger(sessions, tokenGenerator, now, sessionTTL, nil)
}

// NewSessionServiceWithLogger constructs a SessionService with a specified logger.
func NewSessionServiceWithLogger(sessions SessionRepository, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *SessionService {
	if tokenGenerator == nil {
		tokenGenerator = NewSessionToken
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &SessionService{
		sessions:       sessions,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *SessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SessionService", operation, attrs...)
}

// TTL reports the configured session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.sessionTTL
}

// Start returns a fresh anonymous session. It is not persisted until Save.
func (s *SessionService) Start() Session {
	now := s.now()
	return Session{
		Token:     s.tokenGenerator(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
}

// Load returns the live session for token. Unknown and expired tokens yield
// ErrNotFound; expired sessions are removed on the way.
func (s *SessionService) Load(ctx context.Context, token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrNotFound
	}
	if s.sessions == nil {
		return Session{}, fmt.Errorf("%w: session repository not configured", ErrStoreUnavailable)
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return Session{}, storeError(err)
	}
	if session.Expired(s.now()) {
		if err := s.sessions.DeleteSession(ctx, token); err != nil && !errors.Is(err, ErrNotFound) {
			s.loggerWith(ctx, "Load").WarnContext(ctx, "failed to remove expired session", "error", err)
		}
		return Session{}, ErrNotFound
	}
	return session, nil
}

// Save persists session, stamping UpdatedAt.
func (s *SessionService) Save(ctx context.Context, session Session) error {
	if strings.TrimSpace(session.Token) == "" {
		return errors.New("session token is required")
	}
	if s.sessions == nil {
		return fmt.Errorf("%w: session repository not configured", ErrStoreUnavailable)
	}

	now := s.now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = now.Add(s.sessionTTL)
	}
	session.UpdatedAt = now
	if session.Flashes == nil {
		session.Flashes = []Flash{}
	}

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		err = storeError(err)
		s.loggerWith(ctx, "Save").ErrorContext(ctx, "failed to save session", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	return nil
}

// Login binds user to the visitor's session. The token is rotated so that an
// identifier issued before sign in cannot be replayed afterwards; pending
// flashes carry over.
func (s *SessionService) Login(ctx context.Context, current Session, user User) (session Session, err error) {
	logger := s.loggerWith(ctx, "Login", "user_id", user.ID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "session sign in failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session signed in")
	}()

	if strings.TrimSpace(user.ID) == "" {
		err = ErrInvalidCredentials
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("%w: session repository not configured", ErrStoreUnavailable)
		return
	}

	now := s.now()
	if _, pruneErr := s.sessions.DeleteExpiredSessions(ctx, now); pruneErr != nil {
		err = storeError(pruneErr)
		return
	}
	if current.Token != "" {
		if delErr := s.sessions.DeleteSession(ctx, current.Token); delErr != nil && !errors.Is(delErr, ErrNotFound) {
			err = storeError(delErr)
			return
		}
	}

	session = Session{
		Token:         s.tokenGenerator(),
		UserID:        user.ID,
		Authenticated: true,
		Flashes:       append([]Flash{}, current.Flashes...),
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(s.sessionTTL),
	}
	if saveErr := s.sessions.SaveSession(ctx, session); saveErr != nil {
		session = Session{}
		err = storeError(saveErr)
	}
	return
}

// Logout deletes the session identified by token. Unknown tokens are ignored.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if s.sessions == nil {
		return fmt.Errorf("%w: session repository not configured", ErrStoreUnavailable)
	}
	if err := s.sessions.DeleteSession(ctx, token); err != nil && !errors.Is(err, ErrNotFound) {
		err = storeError(err)
		s.loggerWith(ctx, "Logout").ErrorContext(ctx, "failed to delete session", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	s.loggerWith(ctx, "Logout").InfoContext(ctx, "session signed out")
	return nil
}

// PurgeExpired removes every session that expired before now.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	if s.sessions == nil {
		return 0, fmt.Errorf("%w: session repository not configured", ErrStoreUnavailable)
	}
	removed, err := s.sessions.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, storeError(err)
	}
	s.loggerWith(ctx, "PurgeExpired").InfoContext(ctx, "expired sessions purged", "removed", removed)
	return removed, nil
}
