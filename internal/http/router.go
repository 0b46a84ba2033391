package http

import (
	"net/http"
)

// RouterConfig collects the handlers mounted by NewRouter. Nil handlers leave
// their routes unregistered.
type RouterConfig struct {
	Home        *HomeHandler
	Events      *EventHandler
	Auth        *AuthHandler
	Users       *UserHandler
	Responder   *Responder
	Static      http.Handler
	RequireAuth func(http.Handler) http.Handler
	Middleware  []func(http.Handler) http.Handler
}

// NewRouter wires the site routes. Middleware runs in the order given.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	protected := cfg.RequireAuth
	if protected == nil {
		protected = func(next http.Handler) http.Handler { return next }
	}
	private := func(fn http.HandlerFunc) http.Handler { return protected(fn) }
	guest := func(fn http.HandlerFunc) http.Handler { return RedirectIfAuthenticated(fn) }

	if cfg.Home != nil {
		mux.HandleFunc("GET /{$}", cfg.Home.Home)
		mux.HandleFunc("GET /health", cfg.Home.Health)
	}

	if cfg.Static != nil {
		mux.Handle("GET /static/", cfg.Static)
	}

	if cfg.Events != nil {
		mux.HandleFunc("GET /events", cfg.Events.List)
		mux.Handle("GET /events/new", private(cfg.Events.New))
		mux.Handle("POST /events", private(cfg.Events.Create))
		mux.HandleFunc("GET /events/{id}", cfg.Events.Show)
		mux.Handle("GET /events/{id}/edit", private(cfg.Events.Edit))
		mux.Handle("PUT /events/{id}", private(cfg.Events.Update))
		mux.Handle("PATCH /events/{id}", private(cfg.Events.Update))
		mux.Handle("DELETE /events/{id}", private(cfg.Events.Delete))
	}

	if cfg.Auth != nil {
		mux.Handle("GET /auth/login", guest(cfg.Auth.ShowLogin))
		mux.Handle("POST /auth/login", guest(cfg.Auth.Login))
		mux.Handle("GET /auth/register", guest(cfg.Auth.ShowRegister))
		mux.Handle("POST /auth/register", guest(cfg.Auth.Register))
		mux.Handle("GET /auth/forgot-password", guest(cfg.Auth.ShowForgotPassword))
		mux.Handle("POST /auth/forgot-password", guest(cfg.Auth.ForgotPassword))
		mux.Handle("GET /auth/reset-password/{token}", guest(cfg.Auth.ShowResetPassword))
		mux.Handle("POST /auth/reset-password/{token}", guest(cfg.Auth.ResetPassword))
		mux.Handle("POST /auth/logout", private(cfg.Auth.Logout))
	}

	if cfg.Users != nil {
		mux.Handle("GET /users/dashboard", private(cfg.Users.Dashboard))
		mux.Handle("GET /users/profile", private(cfg.Users.ShowProfile))
		mux.Handle("POST /users/profile", private(cfg.Users.UpdateProfile))
		mux.Handle("PUT /users/profile", private(cfg.Users.UpdateProfile))
		mux.Handle("DELETE /users/account", private(cfg.Users.DeleteAccount))
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Responder == nil {
			http.NotFound(w, r)
			return
		}
		cfg.Responder.NotFound(w, r, "Page Not Found")
	})

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}
