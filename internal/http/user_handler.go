package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/event-listing/internal/application"
)

type accountService interface {
	UpdateUser(ctx context.Context, params application.UpdateUserParams) (application.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type ownedEventSource interface {
	ListUserEvents(ctx context.Context, userID string) ([]application.Event, error)
}

const profilePath = "/users/profile"

// UserHandler serves the signed in user's dashboard and account pages.
type UserHandler struct {
	users     accountService
	events    ownedEventSource
	sessions  *SessionManager
	responder *Responder
	logger    *slog.Logger
}

func NewUserHandler(users accountService, events ownedEventSource, sessions *SessionManager, responder *Responder, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:     users,
		events:    events,
		sessions:  sessions,
		responder: responder,
		logger:    defaultLogger(logger),
	}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

type dashboardView struct {
	Events []application.Event
	Error  string
}

type profileView struct {
	Email     string
	FirstName string
	LastName  string
	Errors    map[string]string
}

func (h *UserHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.events == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	user, _ := UserFromContext(ctx)
	view := dashboardView{}
	events, err := h.events.ListUserEvents(ctx, user.ID)
	if err != nil {
		h.log(ctx, "Dashboard", "user_id", user.ID, "error_kind", application.ErrorKind(err)).ErrorContext(ctx, "failed to load user events", "error", err)
		view.Error = "Failed to load dashboard data"
	}
	view.Events = events
	h.responder.HTML(w, r, http.StatusOK, "dashboard", "Dashboard", view)
}

func (h *UserHandler) ShowProfile(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.responder == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	user, _ := UserFromContext(r.Context())
	h.responder.HTML(w, r, http.StatusOK, "profile", "Profile", profileView{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.users == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	user, _ := UserFromContext(ctx)
	logger := h.log(ctx, "UpdateProfile", "user_id", user.ID)

	if err := r.ParseForm(); err != nil {
		logger.WarnContext(ctx, "failed to parse profile form", "error", err, "error_kind", "bad_request")
		AddFlash(r, application.FlashError, "Failed to update profile")
		http.Redirect(w, r, profilePath, http.StatusFound)
		return
	}

	var patch application.UserPatch
	view := profileView{Email: user.Email, FirstName: user.FirstName, LastName: user.LastName}
	if values, ok := r.PostForm["email"]; ok && len(values) > 0 {
		patch.Email = stringPtr(strings.TrimSpace(values[0]))
		view.Email = *patch.Email
	}
	if values, ok := r.PostForm["firstName"]; ok && len(values) > 0 {
		patch.FirstName = stringPtr(strings.TrimSpace(values[0]))
		view.FirstName = *patch.FirstName
	}
	if values, ok := r.PostForm["lastName"]; ok && len(values) > 0 {
		patch.LastName = stringPtr(strings.TrimSpace(values[0]))
		view.LastName = *patch.LastName
	}

	updated, err := h.users.UpdateUser(ctx, application.UpdateUserParams{UserID: user.ID, Patch: patch})
	if err != nil {
		var validation *application.ValidationError
		status := http.StatusInternalServerError
		switch {
		case errors.As(err, &validation):
			status = http.StatusUnprocessableEntity
			view.Errors = validation.FieldErrors
		case errors.Is(err, application.ErrAlreadyExists):
			status = http.StatusConflict
			view.Errors = map[string]string{"email": "an account with this email already exists"}
		}
		AddFlash(r, application.FlashError, "Failed to update profile")
		h.responder.HTML(w, r, status, "profile", "Profile", view)
		return
	}

	logger.With("email", updated.Email).InfoContext(ctx, "profile updated")
	AddFlash(r, application.FlashSuccess, "Profile updated successfully!")
	http.Redirect(w, r, profilePath, http.StatusFound)
}

func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.users == nil || h.sessions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	user, _ := UserFromContext(ctx)
	logger := h.log(ctx, "DeleteAccount", "user_id", user.ID)

	if err := h.users.DeleteUser(ctx, user.ID); err != nil {
		logger.ErrorContext(ctx, "account deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		AddFlash(r, application.FlashError, "Failed to delete account")
		http.Redirect(w, r, profilePath, http.StatusFound)
		return
	}

	logger.InfoContext(ctx, "account deleted")
	h.sessions.Destroy(r)
	AddFlash(r, application.FlashSuccess, "Account deleted successfully")
	http.Redirect(w, r, "/", http.StatusFound)
}
