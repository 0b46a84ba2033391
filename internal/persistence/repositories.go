package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	DeleteUser(ctx context.Context, id string) error
}

// EventOrder selects the sort order of event listings.
type EventOrder int

const (
	// OrderByEventDate sorts ascending by event date, oldest first.
	OrderByEventDate EventOrder = iota
	// OrderByNewest sorts descending by creation time.
	OrderByNewest
)

// EventFilter narrows event queries. Zero values disable a criterion; a zero
// Limit returns every matching row.
type EventFilter struct {
	PublicOnly bool
	UserID     string
	Category   string
	Search     string
	Order      EventOrder
	Limit      int
	Offset     int
}

// EventRepository stores events.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	UpdateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	CountEvents(ctx context.Context, filter EventFilter) (int, error)
	DeleteEvent(ctx context.Context, id string) error
}

// SessionRepository stores server-side session state.
type SessionRepository interface {
	SaveSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error)
}
