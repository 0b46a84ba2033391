package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/event-listing/internal/application"
)

type credentialService interface {
	ValidateCredentials(ctx context.Context, email, password string) (application.User, error)
	CreateUser(ctx context.Context, params application.CreateUserParams) (application.User, error)
}

type passwordResetService interface {
	RequestReset(ctx context.Context, email string) error
	ValidateResetToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, token, password string) error
}

const forgotPasswordPath = "/auth/forgot-password"

// AuthHandler serves sign in, registration, password reset and sign out.
type AuthHandler struct {
	users     credentialService
	resets    passwordResetService
	sessions  *SessionManager
	responder *Responder
	logger    *slog.Logger
}

func NewAuthHandler(users credentialService, resets passwordResetService, sessions *SessionManager, responder *Responder, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:     users,
		resets:    resets,
		sessions:  sessions,
		responder: responder,
		logger:    defaultLogger(logger),
	}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

type authView struct {
	Email     string
	FirstName string
	LastName  string
	Token     string
	Errors    map[string]string
}

func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.responder == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.responder.HTML(w, r, http.StatusOK, "login", "Login", authView{})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.users == nil || h.sessions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	email := strings.TrimSpace(r.PostFormValue("email"))
	logger := h.log(ctx, "Login", "email", email)
	view := authView{Email: email}

	user, err := h.users.ValidateCredentials(ctx, email, r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, application.ErrInvalidCredentials) || errors.Is(err, application.ErrAccountDisabled) {
			logger.InfoContext(ctx, "login rejected", "error_kind", application.ErrorKind(err))
			AddFlash(r, application.FlashError, "Invalid email or password")
			h.responder.HTML(w, r, http.StatusUnauthorized, "login", "Login", view)
			return
		}
		logger.ErrorContext(ctx, "login failed", "error", err, "error_kind", application.ErrorKind(err))
		AddFlash(r, application.FlashError, "Login failed")
		h.responder.HTML(w, r, http.StatusInternalServerError, "login", "Login", view)
		return
	}

	if err := h.sessions.Renew(r, user); err != nil {
		logger.ErrorContext(ctx, "failed to start authenticated session", "error", err, "error_kind", application.ErrorKind(err))
		AddFlash(r, application.FlashError, "Login failed")
		h.responder.HTML(w, r, http.StatusInternalServerError, "login", "Login", view)
		return
	}

	logger.With("user_id", user.ID).InfoContext(ctx, "user logged in")
	AddFlash(r, application.FlashSuccess, "Welcome back!")
	http.Redirect(w, r, dashboardPath, http.StatusFound)
}

func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.responder == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.responder.HTML(w, r, http.StatusOK, "register", "Register", authView{})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.users == nil || h.sessions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	params := application.CreateUserParams{
		Email:     strings.TrimSpace(r.PostFormValue("email")),
		Password:  r.PostFormValue("password"),
		FirstName: strings.TrimSpace(r.PostFormValue("firstName")),
		LastName:  strings.TrimSpace(r.PostFormValue("lastName")),
	}
	logger := h.log(ctx, "Register", "email", params.Email)
	view := authView{Email: params.Email, FirstName: params.FirstName, LastName: params.LastName}

	user, err := h.users.CreateUser(ctx, params)
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
		default:
			logger.ErrorContext(ctx, "registration failed", "error", err, "error_kind", application.ErrorKind(err))
		}
		AddFlash(r, application.FlashError, "Registration failed")
		h.responder.HTML(w, r, status, "register", "Register", view)
		return
	}

	if err := h.sessions.Renew(r, user); err != nil {
		logger.ErrorContext(ctx, "failed to start session for new account", "error", err, "error_kind", application.ErrorKind(err))
		AddFlash(r, application.FlashInfo, "Your account was created. Please log in.")
		http.Redirect(w, r, loginPath, http.StatusFound)
		return
	}

	logger.With("user_id", user.ID).InfoContext(ctx, "account registered")
	AddFlash(r, application.FlashSuccess, "Account created successfully!")
	http.Redirect(w, r, dashboardPath, http.StatusFound)
}

func (h *AuthHandler) ShowForgotPassword(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.responder == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.responder.HTML(w, r, http.StatusOK, "forgot_password", "Forgot Password", authView{})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.resets == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	email := strings.TrimSpace(r.PostFormValue("email"))
	if err := h.resets.RequestReset(ctx, email); err != nil {
		h.log(ctx, "ForgotPassword", "error_kind", application.ErrorKind(err)).ErrorContext(ctx, "failed to issue reset instructions", "error", err)
		AddFlash(r, application.FlashError, "Failed to send reset instructions")
		h.responder.HTML(w, r, http.StatusInternalServerError, "forgot_password", "Forgot Password", authView{Email: email})
		return
	}

	AddFlash(r, application.FlashInfo, "Password reset instructions sent to your email")
	http.Redirect(w, r, loginPath, http.StatusFound)
}

func (h *AuthHandler) ShowResetPassword(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.resets == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	token := r.PathValue("token")
	if err := h.resets.ValidateResetToken(ctx, token); err != nil {
		h.rejectResetToken(w, r, err)
		return
	}
	h.responder.HTML(w, r, http.StatusOK, "reset_password", "Reset Password", authView{Token: token})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.resets == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	token := r.PathValue("token")
	password := r.PostFormValue("password")
	view := authView{Token: token}

	if confirm, ok := r.PostForm["confirmPassword"]; ok && (len(confirm) == 0 || confirm[0] != password) {
		view.Errors = map[string]string{"confirm_password": "passwords do not match"}
		AddFlash(r, application.FlashError, "Passwords do not match")
		h.responder.HTML(w, r, http.StatusUnprocessableEntity, "reset_password", "Reset Password", view)
		return
	}

	err := h.resets.ResetPassword(ctx, token, password)
	if err != nil {
		var validation *application.ValidationError
		switch {
		case errors.Is(err, application.ErrInvalidResetToken):
			h.rejectResetToken(w, r, err)
		case errors.As(err, &validation):
			view.Errors = validation.FieldErrors
			flashValidation(r, "Failed to reset password", validation)
			h.responder.HTML(w, r, http.StatusUnprocessableEntity, "reset_password", "Reset Password", view)
		default:
			h.log(ctx, "ResetPassword", "error_kind", application.ErrorKind(err)).ErrorContext(ctx, "password reset failed", "error", err)
			AddFlash(r, application.FlashError, "Failed to reset password")
			h.responder.HTML(w, r, http.StatusInternalServerError, "reset_password", "Reset Password", view)
		}
		return
	}

	AddFlash(r, application.FlashSuccess, "Password reset successfully!")
	http.Redirect(w, r, loginPath, http.StatusFound)
}

func (h *AuthHandler) rejectResetToken(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if !errors.Is(err, application.ErrInvalidResetToken) {
		h.log(ctx, "ResetPassword", "error_kind", application.ErrorKind(err)).ErrorContext(ctx, "failed to verify reset token", "error", err)
	}
	AddFlash(r, application.FlashError, "Password reset link is invalid or has expired")
	http.Redirect(w, r, forgotPasswordPath, http.StatusFound)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.sessions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	h.log(ctx, "Logout", "user_id", SessionUserID(r)).InfoContext(ctx, "user logged out")
	h.sessions.Destroy(r)
	http.Redirect(w, r, "/", http.StatusFound)
}
