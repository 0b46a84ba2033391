package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/event-listing/internal/application"
	"github.com/example/event-listing/internal/logging"
)

const (
	loginPath     = "/auth/login"
	dashboardPath = "/users/dashboard"
)

// RequestLogger attaches a request scoped logger to the context and logs
// the outcome of every request.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := logging.ContextWithLogger(r.Context(), logger)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "status", rec.status, "duration", time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Recoverer turns panics into the server error page.
func Recoverer(responder *Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", rec)
				}
				responder.ServerError(w, r, err, debug.Stack())
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// MethodOverride lets HTML forms tunnel PUT, PATCH and DELETE through POST
// with a _method field or the X-HTTP-Method-Override header.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			override := r.Header.Get("X-HTTP-Method-Override")
			if override == "" && isFormRequest(r) {
				override = r.PostFormValue("_method")
			}
			switch method := strings.ToUpper(strings.TrimSpace(override)); method {
			case http.MethodPut, http.MethodPatch, http.MethodDelete:
				r.Method = method
			}
		}
		next.ServeHTTP(w, r)
	})
}

func isFormRequest(r *http.Request) bool {
	contentType := r.Header.Get("Content-Type")
	return strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data")
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (application.User, error)
}

// RequireAuth admits only requests whose session resolves to an active
// user, which is attached to the request context. Everyone else is sent to
// the login page with a flash explaining why.
func RequireAuth(sessions *SessionManager, users userFinder, logger *slog.Logger) func(http.Handler) http.Handler {
	base := defaultLogger(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := SessionUserID(r)
			if userID == "" {
				AddFlash(r, application.FlashError, "Please log in to access this page")
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}

			log := handlerLogger(ctx, base, "RequireAuth", "", "user_id", userID)
			user, err := users.FindByID(ctx, userID)
			switch {
			case err == nil && user.IsActive:
				next.ServeHTTP(w, r.WithContext(ContextWithUser(ctx, user)))
			case err == nil, errors.Is(err, application.ErrNotFound):
				log.WarnContext(ctx, "session references a missing or inactive user")
				sessions.Destroy(r)
				AddFlash(r, application.FlashError, "Invalid session. Please log in again.")
				http.Redirect(w, r, loginPath, http.StatusFound)
			default:
				log.ErrorContext(ctx, "failed to resolve session user", "error", err, "error_kind", application.ErrorKind(err))
				AddFlash(r, application.FlashError, "Authentication failed")
				http.Redirect(w, r, loginPath, http.StatusFound)
			}
		})
	}
}

// RedirectIfAuthenticated sends signed in visitors from the guest pages to
// their dashboard.
func RedirectIfAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionUserID(r) != "" {
			http.Redirect(w, r, dashboardPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
