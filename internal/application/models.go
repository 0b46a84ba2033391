package application

import (
	"strings"
	"time"
)

// AnonymousOwner is recorded as the owner of events created without a user.
const AnonymousOwner = "anonymous"

// User represents a registered account. The password hash never leaves the
// repository layer except through UserCredentials.
type User struct {
	ID            string
	Email         string
	FirstName     string
	LastName      string
	IsActive      bool
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullName joins the first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserCredentials couples a user with the stored password hash.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// CreateUserParams describes a registration request.
type CreateUserParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UserPatch carries the profile fields to change; nil fields are left untouched.
type UserPatch struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// UpdateUserParams identifies the user and the profile changes to apply.
type UpdateUserParams struct {
	UserID string
	Patch  UserPatch
}

// Event is a user-owned listing.
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

// IsOwnedBy reports whether userID owns the event. Anonymous events have no
// owner who may change them.
func (e Event) IsOwnedBy(userID string) bool {
	userID = strings.TrimSpace(userID)
	return userID != "" && userID != AnonymousOwner && e.UserID == userID
}

// EventPatch is a sparse set of event fields. Nil pointers leave the field
// untouched. An empty string clears Description, Location and Category and a
// zero time clears EventTime.
type EventPatch struct {
	Title       *string
	Description *string
	EventDate   *time.Time
	EventTime   *time.Time
	Location    *string
	Category    *string
	IsPublic    *bool
}

// CreateEventParams describes a new event. An empty UserID records the event
// as AnonymousOwner.
type CreateEventParams struct {
	UserID string
	Patch  EventPatch
}

// UpdateEventParams describes a change requested by UserID.
type UpdateEventParams struct {
	EventID string
	UserID  string
	Patch   EventPatch
}

// EventFilter holds the public listing criteria accepted from visitors.
type EventFilter struct {
	Category string
	Search   string
	Page     int
	Limit    int
}

// EventPage is one page of public events.
type EventPage struct {
	Events     []Event
	Pagination Pagination
}

// Flash is a one-time notice shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Session is the server-side state bound to a session cookie. UserID is
// empty for anonymous visitors.
type Session struct {
	Token         string
	UserID        string
	Authenticated bool
	Flashes       []Flash
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
