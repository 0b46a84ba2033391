package http

import (
	"context"

	"github.com/example/event-listing/internal/application"
)

type contextKey string

const (
	userContextKey    contextKey = "user"
	sessionContextKey contextKey = "session"
)

// ContextWithUser returns a derived context containing the signed in user.
func ContextWithUser(ctx context.Context, user application.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext extracts the user attached by RequireAuth.
func UserFromContext(ctx context.Context) (application.User, bool) {
	user, ok := ctx.Value(userContextKey).(application.User)
	return user, ok
}

func contextWithSessionState(ctx context.Context, state *sessionState) context.Context {
	return context.WithValue(ctx, sessionContextKey, state)
}

func sessionStateFromContext(ctx context.Context) *sessionState {
	state, _ := ctx.Value(sessionContextKey).(*sessionState)
	return state
}
