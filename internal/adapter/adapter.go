// Package adapter bridges the persistence layer and the application services.
// It converts between storage models and domain types and translates
// persistence sentinels into application errors.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/event-listing/internal/application"
	"github.com/example/event-listing/internal/persistence"
)

// Store is the full set of repositories the adapters wrap. *sqlite.Storage
// satisfies it.
type Store interface {
	persistence.UserRepository
	persistence.EventRepository
	persistence.SessionRepository
}

// Repositories groups the application-facing views of a Store.
type Repositories struct {
	Users    *UserRepository
	Events   *EventRepository
	Sessions *SessionRepository
}

// New wraps every repository of store.
func New(store Store) Repositories {
	return Repositories{
		Users:    NewUserRepository(store),
		Events:   NewEventRepository(store),
		Sessions: NewSessionRepository(store),
	}
}

// translateError maps persistence sentinels onto the application error set.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, persistence.ErrNotFound):
		return fmt.Errorf("%w: %v", application.ErrNotFound, err)
	case errors.Is(err, persistence.ErrDuplicate):
		return fmt.Errorf("%w: %v", application.ErrAlreadyExists, err)
	default:
		return fmt.Errorf("%w: %v", application.ErrStoreUnavailable, err)
	}
}

// UserRepository implements application.UserRepository.
type UserRepository struct {
	repo persistence.UserRepository
}

var _ application.UserRepository = (*UserRepository)(nil)

// NewUserRepository wraps repo.
func NewUserRepository(repo persistence.UserRepository) *UserRepository {
	return &UserRepository{repo: repo}
}

func (a *UserRepository) CreateUser(ctx context.Context, creds application.UserCredentials) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(creds.User, creds.PasswordHash)); err != nil {
		return application.User{}, translateError(err)
	}
	stored, err := a.repo.GetUser(ctx, creds.User.ID)
	if err != nil {
		return application.User{}, translateError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *UserRepository) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, translateError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *UserRepository) GetUserCredentials(ctx context.Context, id string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.UserCredentials{}, translateError(err)
	}
	return toCredentials(stored), nil
}

func (a *UserRepository) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, translateError(err)
	}
	return toCredentials(stored), nil
}

// UpdateUser writes profile fields and keeps the stored password hash.
func (a *UserRepository) UpdateUser(ctx context.Context, user application.User) (application.User, error) {
	current, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, translateError(err)
	}
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(user, current.PasswordHash)); err != nil {
		return application.User{}, translateError(err)
	}
	stored, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, translateError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *UserRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	current, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return translateError(err)
	}
	current.PasswordHash = passwordHash
	current.UpdatedAt = updatedAt
	return translateError(a.repo.UpdateUser(ctx, current))
}

func (a *UserRepository) DeleteUser(ctx context.Context, id string) error {
	return translateError(a.repo.DeleteUser(ctx, id))
}

// EventRepository implements application.EventRepository.
type EventRepository struct {
	repo persistence.EventRepository
}

var _ application.EventRepository = (*EventRepository)(nil)

// NewEventRepository wraps repo.
func NewEventRepository(repo persistence.EventRepository) *EventRepository {
	return &EventRepository{repo: repo}
}

func (a *EventRepository) CreateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := a.repo.CreateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.Event{}, translateError(err)
	}
	stored, err := a.repo.GetEvent(ctx, event.ID)
	if err != nil {
		return application.Event{}, translateError(err)
	}
	return toApplicationEvent(stored), nil
}

func (a *EventRepository) UpdateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := a.repo.UpdateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.Event{}, translateError(err)
	}
	stored, err := a.repo.GetEvent(ctx, event.ID)
	if err != nil {
		return application.Event{}, translateError(err)
	}
	return toApplicationEvent(stored), nil
}

func (a *EventRepository) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, translateError(err)
	}
	return toApplicationEvent(stored), nil
}

func (a *EventRepository) ListEvents(ctx context.Context, query application.EventQuery) ([]application.Event, error) {
	models, err := a.repo.ListEvents(ctx, toPersistenceFilter(query))
	if err != nil {
		return nil, translateError(err)
	}
	events := make([]application.Event, 0, len(models))
	for _, model := range models {
		events = append(events, toApplicationEvent(model))
	}
	return events, nil
}

func (a *EventRepository) CountEvents(ctx context.Context, query application.EventQuery) (int, error) {
	total, err := a.repo.CountEvents(ctx, toPersistenceFilter(query))
	if err != nil {
		return 0, translateError(err)
	}
	return total, nil
}

func (a *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	return translateError(a.repo.DeleteEvent(ctx, id))
}

// SessionRepository implements application.SessionRepository.
type SessionRepository struct {
	repo persistence.SessionRepository
}

var _ application.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository wraps repo.
func NewSessionRepository(repo persistence.SessionRepository) *SessionRepository {
	return &SessionRepository{repo: repo}
}

func (a *SessionRepository) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, translateError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *SessionRepository) SaveSession(ctx context.Context, session application.Session) error {
	return translateError(a.repo.SaveSession(ctx, toPersistenceSession(session)))
}

func (a *SessionRepository) DeleteSession(ctx context.Context, token string) error {
	return translateError(a.repo.DeleteSession(ctx, token))
}

func (a *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error) {
	removed, err := a.repo.DeleteExpiredSessions(ctx, reference)
	if err != nil {
		return 0, translateError(err)
	}
	return removed, nil
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:            model.ID,
		Email:         model.Email,
		FirstName:     model.FirstName,
		LastName:      model.LastName,
		IsActive:      model.IsActive,
		EmailVerified: model.EmailVerified,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func toCredentials(model persistence.User) application.UserCredentials {
	return application.UserCredentials{User: toApplicationUser(model), PasswordHash: model.PasswordHash}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:            user.ID,
		Email:         user.Email,
		PasswordHash:  passwordHash,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		IsActive:      user.IsActive,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

func toApplicationEvent(model persistence.Event) application.Event {
	owner := model.UserID
	if owner == "" {
		owner = application.AnonymousOwner
	}
	return application.Event{
		ID:          model.ID,
		UserID:      owner,
		Title:       model.Title,
		Description: cloneString(model.Description),
		EventDate:   model.EventDate,
		EventTime:   cloneTime(model.EventTime),
		Location:    cloneString(model.Location),
		Category:    cloneString(model.Category),
		IsPublic:    model.IsPublic,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceEvent(event application.Event) persistence.Event {
	owner := event.UserID
	if owner == application.AnonymousOwner {
		owner = ""
	}
	return persistence.Event{
		ID:          event.ID,
		UserID:      owner,
		Title:       event.Title,
		Description: cloneString(event.Description),
		EventDate:   event.EventDate,
		EventTime:   cloneTime(event.EventTime),
		Location:    cloneString(event.Location),
		Category:    cloneString(event.Category),
		IsPublic:    event.IsPublic,
		CreatedAt:   event.CreatedAt,
		UpdatedAt:   event.UpdatedAt,
	}
}

func toPersistenceFilter(query application.EventQuery) persistence.EventFilter {
	order := persistence.OrderByEventDate
	if query.Order == application.OrderByNewest {
		order = persistence.OrderByNewest
	}
	owner := query.OwnerID
	if owner == application.AnonymousOwner {
		owner = ""
	}
	return persistence.EventFilter{
		PublicOnly: query.PublicOnly,
		UserID:     owner,
		Category:   query.Category,
		Search:     query.Search,
		Order:      order,
		Limit:      query.Limit,
		Offset:     query.Offset,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	flashes := make([]application.Flash, 0, len(model.Flashes))
	for _, flash := range model.Flashes {
		flashes = append(flashes, application.Flash{Kind: flash.Kind, Message: flash.Message})
	}
	return application.Session{
		Token:         model.Token,
		UserID:        model.UserID,
		Authenticated: model.Authenticated,
		Flashes:       flashes,
		ExpiresAt:     model.ExpiresAt,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	flashes := make([]persistence.Flash, 0, len(session.Flashes))
	for _, flash := range session.Flashes {
		flashes = append(flashes, persistence.Flash{Kind: flash.Kind, Message: flash.Message})
	}
	return persistence.Session{
		Token:         session.Token,
		UserID:        session.UserID,
		Authenticated: session.Authenticated,
		Flashes:       flashes,
		ExpiresAt:     session.ExpiresAt,
		CreatedAt:     session.CreatedAt,
		UpdatedAt:     session.UpdatedAt,
	}
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
