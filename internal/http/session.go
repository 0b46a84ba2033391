package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/event-listing/internal/application"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session_id"

// SessionStore persists session state by token. application.SessionService
// satisfies it.
type SessionStore interface {
	Start() application.Session
	Load(ctx context.Context, token string) (application.Session, error)
	Save(ctx context.Context, session application.Session) error
	Login(ctx context.Context, current application.Session, user application.User) (application.Session, error)
	Logout(ctx context.Context, token string) error
}

// SessionManager binds a server-side session to every request. Sessions are
// only written back, and the cookie only issued, when a handler changed them.
type SessionManager struct {
	store  SessionStore
	secure bool
	logger *slog.Logger
}

// NewSessionManager builds a manager over store. secure marks the cookie as
// HTTPS only.
func NewSessionManager(store SessionStore, secure bool, logger *slog.Logger) *SessionManager {
	return &SessionManager{store: store, secure: secure, logger: defaultLogger(logger)}
}

type sessionState struct {
	session  application.Session
	modified bool
	cleared  bool
	discard  []string
}

// Load is middleware that resolves the session cookie and commits changes
// before the response headers are written.
func (m *SessionManager) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		state := &sessionState{}

		if cookie, err := r.Cookie(SessionCookieName); err == nil && strings.TrimSpace(cookie.Value) != "" {
			session, loadErr := m.store.Load(ctx, cookie.Value)
			switch {
			case loadErr == nil:
				state.session = session
			case errors.Is(loadErr, application.ErrNotFound):
				state.cleared = true
			default:
				handlerLogger(ctx, m.logger, "SessionManager", "Load").
					WarnContext(ctx, "failed to load session", "error", loadErr, "error_kind", application.ErrorKind(loadErr))
			}
		}
		if state.session.Token == "" {
			state.session = m.store.Start()
		}

		sw := &sessionWriter{ResponseWriter: w}
		sw.commit = func() { m.commit(ctx, w, state) }
		next.ServeHTTP(sw, r.WithContext(contextWithSessionState(ctx, state)))
		sw.flush()
	})
}

func (m *SessionManager) commit(ctx context.Context, w http.ResponseWriter, state *sessionState) {
	logger := handlerLogger(ctx, m.logger, "SessionManager", "Commit")
	for _, token := range state.discard {
		if err := m.store.Logout(ctx, token); err != nil {
			logger.ErrorContext(ctx, "failed to delete session", "error", err, "error_kind", application.ErrorKind(err))
		}
	}

	if state.modified {
		if err := m.store.Save(ctx, state.session); err != nil {
			logger.ErrorContext(ctx, "failed to save session", "error", err, "error_kind", application.ErrorKind(err))
			return
		}
		m.setCookie(w, state.session)
		return
	}
	if state.cleared {
		m.clearCookie(w)
	}
}

// Renew signs user in on the current request, rotating the session token.
func (m *SessionManager) Renew(r *http.Request, user application.User) error {
	state := sessionStateFromContext(r.Context())
	if state == nil {
		return errors.New("session middleware not installed")
	}
	session, err := m.store.Login(r.Context(), state.session, user)
	if err != nil {
		return err
	}
	state.session = session
	state.modified = true
	return nil
}

// Destroy drops the current session and replaces it with a fresh anonymous
// one. Flashes added afterwards travel with the new session.
func (m *SessionManager) Destroy(r *http.Request) {
	state := sessionStateFromContext(r.Context())
	if state == nil {
		return
	}
	if state.session.Token != "" {
		state.discard = append(state.discard, state.session.Token)
	}
	state.session = m.store.Start()
	state.modified = false
	state.cleared = true
}

func (m *SessionManager) setCookie(w http.ResponseWriter, session application.Session) {
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if !session.ExpiresAt.IsZero() {
		cookie.Expires = session.ExpiresAt.UTC()
	}
	http.SetCookie(w, cookie)
}

func (m *SessionManager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionUserID returns the signed in user id of the request session, or ""
// for anonymous visitors.
func SessionUserID(r *http.Request) string {
	state := sessionStateFromContext(r.Context())
	if state == nil || !state.session.Authenticated {
		return ""
	}
	return state.session.UserID
}

// AddFlash queues a one-time notice for the next rendered page.
func AddFlash(r *http.Request, kind, message string) {
	state := sessionStateFromContext(r.Context())
	if state == nil {
		return
	}
	state.session.Flashes = append(state.session.Flashes, application.Flash{Kind: kind, Message: message})
	state.modified = true
}

// PopFlashes returns and clears the queued notices.
func PopFlashes(r *http.Request) []application.Flash {
	state := sessionStateFromContext(r.Context())
	if state == nil || len(state.session.Flashes) == 0 {
		return nil
	}
	flashes := state.session.Flashes
	state.session.Flashes = nil
	state.modified = true
	return flashes
}

type sessionWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (w *sessionWriter) flush() {
	if w.committed {
		return
	}
	w.committed = true
	if w.commit != nil {
		w.commit()
	}
}

func (w *sessionWriter) WriteHeader(status int) {
	w.flush()
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
