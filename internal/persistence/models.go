package persistence

import "time"

// User represents a registered account.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	IsActive      bool
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Event represents a listed event row. An empty UserID marks an event
// without an owner account.
type Event struct {
	ID          string
	UserID      string
	Title       string
	Description *string
	EventDate   time.Time
	EventTime   *time.Time
	Location    *string
	Category    *string
	IsPublic    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Flash is a one-time notice stored with a session.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Session represents server-side session state keyed by its cookie token.
// UserID is empty for anonymous visitors.
type Session struct {
	Token         string
	UserID        string
	Authenticated bool
	Flashes       []Flash
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
