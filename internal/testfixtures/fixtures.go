package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/event-listing/internal/application"
	"github.com/example/event-listing/internal/persistence"
)

var (
	userCounter    uint64
	eventCounter   uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// DefaultPassword is the plain-text password of every generated user.
const DefaultPassword = "password123"

// Hasher is an argon2id hasher with parameters small enough for tests.
var Hasher = application.Argon2idHasher{Params: application.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  8,
	KeyLength:   16,
}}

// MustHash hashes password with Hasher and panics on failure.
func MustHash(password string) string {
	hash, err := Hasher.Hash(password)
	if err != nil {
		panic(fmt.Sprintf("hash fixture password: %v", err))
	}
	return hash
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic account that can be materialised for
// application or persistence tests.
type UserFixture struct {
	ID            string
	Email         string
	Password      string
	PasswordHash  string
	FirstName     string
	LastName      string
	IsActive      bool
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns an active user whose password is DefaultPassword.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:            DeterministicID("user", idx),
		Email:         fmt.Sprintf("user-%03d@example.com", idx),
		Password:      DefaultPassword,
		FirstName:     "User",
		LastName:      fmt.Sprintf("%03d", idx),
		IsActive:      true,
		EmailVerified: true,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	if fixture.PasswordHash == "" {
		fixture.PasswordHash = MustHash(fixture.Password)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserName sets the first and last name.
func WithUserName(first, last string) UserOption {
	return func(f *UserFixture) {
		f.FirstName = first
		f.LastName = last
	}
}

// WithUserPassword sets the plain-text password the hash is derived from.
func WithUserPassword(password string) UserOption {
	return func(f *UserFixture) {
		f.Password = password
		f.PasswordHash = ""
	}
}

// WithUserInactive marks the account as disabled.
func WithUserInactive() UserOption {
	return func(f *UserFixture) {
		f.IsActive = false
	}
}

// WithUserTimestamps sets both created and updated timestamps on the fixture.
func WithUserTimestamps(created, updated time.Time) UserOption {
	return func(f *UserFixture) {
		f.CreatedAt = created
		f.UpdatedAt = updated
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:            f.ID,
		Email:         f.Email,
		FirstName:     f.FirstName,
		LastName:      f.LastName,
		IsActive:      f.IsActive,
		EmailVerified: f.EmailVerified,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// Credentials returns the fixture as application.UserCredentials.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{User: f.Application(), PasswordHash: f.PasswordHash}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:            f.ID,
		Email:         f.Email,
		PasswordHash:  f.PasswordHash,
		FirstName:     f.FirstName,
		LastName:      f.LastName,
		IsActive:      f.IsActive,
		EmailVerified: f.EmailVerified,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// ----------------------------- Event fixtures -----------------------------

// EventFixture represents a deterministic event listing.
type EventFixture struct {
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

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a public event owned by ownerID. An empty ownerID
// produces an event without an owner account.
func NewEventFixture(ownerID string, opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Second)
	date := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(idx%365))
	description := fmt.Sprintf("Description for event %03d", idx)
	location := "Convention Center, Downtown"
	category := "Technology"
	fixture := EventFixture{
		ID:          DeterministicID("event", idx),
		UserID:      ownerID,
		Title:       fmt.Sprintf("Event %03d", idx),
		Description: &description,
		EventDate:   date,
		Location:    &location,
		Category:    &category,
		IsPublic:    true,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) {
		f.ID = id
	}
}

// WithEventTitle overrides the generated title.
func WithEventTitle(title string) EventOption {
	return func(f *EventFixture) {
		f.Title = title
	}
}

// WithEventDescription sets the description; an empty value clears it.
func WithEventDescription(description string) EventOption {
	return func(f *EventFixture) {
		f.Description = optional(description)
	}
}

// WithEventDate sets the event date.
func WithEventDate(date time.Time) EventOption {
	return func(f *EventFixture) {
		f.EventDate = date
	}
}

// WithEventTime sets the start time on the fixture's current event date.
func WithEventTime(hour, minute int) EventOption {
	return func(f *EventFixture) {
		d := f.EventDate
		t := time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, time.UTC)
		f.EventTime = &t
	}
}

// WithEventLocation sets the location; an empty value clears it.
func WithEventLocation(location string) EventOption {
	return func(f *EventFixture) {
		f.Location = optional(location)
	}
}

// WithEventCategory sets the category; an empty value clears it.
func WithEventCategory(category string) EventOption {
	return func(f *EventFixture) {
		f.Category = optional(category)
	}
}

// WithEventPrivate hides the event from public listings.
func WithEventPrivate() EventOption {
	return func(f *EventFixture) {
		f.IsPublic = false
	}
}

// WithEventCreatedAt sets both timestamps, which drives "newest first" ordering.
func WithEventCreatedAt(created time.Time) EventOption {
	return func(f *EventFixture) {
		f.CreatedAt = created
		f.UpdatedAt = created
	}
}

// Application returns the fixture as an application.Event value.
func (f EventFixture) Application() application.Event {
	owner := f.UserID
	if owner == "" {
		owner = application.AnonymousOwner
	}
	return application.Event{
		ID:          f.ID,
		UserID:      owner,
		Title:       f.Title,
		Description: cloneString(f.Description),
		EventDate:   f.EventDate,
		EventTime:   cloneTime(f.EventTime),
		Location:    cloneString(f.Location),
		Category:    cloneString(f.Category),
		IsPublic:    f.IsPublic,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Event value.
func (f EventFixture) Persistence() persistence.Event {
	return persistence.Event{
		ID:          f.ID,
		UserID:      f.UserID,
		Title:       f.Title,
		Description: cloneString(f.Description),
		EventDate:   f.EventDate,
		EventTime:   cloneTime(f.EventTime),
		Location:    cloneString(f.Location),
		Category:    cloneString(f.Category),
		IsPublic:    f.IsPublic,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// ---------------------------- Session fixtures ----------------------------

// SessionFixture represents a stored browser session.
type SessionFixture struct {
	Token         string
	UserID        string
	Authenticated bool
	Flashes       []application.Flash
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns an anonymous session valid for a day after
// ReferenceTime.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Second)
	fixture := SessionFixture{
		Token:     fmt.Sprintf("session-token-%03d", idx),
		ExpiresAt: created.Add(application.DefaultSessionTTL),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionUser marks the session as signed in by userID.
func WithSessionUser(userID string) SessionOption {
	return func(f *SessionFixture) {
		f.UserID = userID
		f.Authenticated = userID != ""
	}
}

// WithSessionExpiresAt overrides the expiry.
func WithSessionExpiresAt(expiresAt time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.ExpiresAt = expiresAt
	}
}

// WithSessionFlash queues a flash message.
func WithSessionFlash(kind, message string) SessionOption {
	return func(f *SessionFixture) {
		f.Flashes = append(f.Flashes, application.Flash{Kind: kind, Message: message})
	}
}

// Application returns the fixture as an application.Session value.
func (f SessionFixture) Application() application.Session {
	return application.Session{
		Token:         f.Token,
		UserID:        f.UserID,
		Authenticated: f.Authenticated,
		Flashes:       append([]application.Flash{}, f.Flashes...),
		ExpiresAt:     f.ExpiresAt,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	flashes := make([]persistence.Flash, 0, len(f.Flashes))
	for _, flash := range f.Flashes {
		flashes = append(flashes, persistence.Flash{Kind: flash.Kind, Message: flash.Message})
	}
	return persistence.Session{
		Token:         f.Token,
		UserID:        f.UserID,
		Authenticated: f.Authenticated,
		Flashes:       flashes,
		ExpiresAt:     f.ExpiresAt,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
