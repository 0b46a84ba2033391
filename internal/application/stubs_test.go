package application

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type eventRepositoryStub struct {
	mu        sync.Mutex
	events    map[string]Event
	listErr   error
	countErr  error
	getErr    error
	createErr error
	updateErr error
	deleteErr error
	calls     []string
	queries   []EventQuery
}

func newEventRepositoryStub(events ...Event) *eventRepositoryStub {
	stub := &eventRepositoryStub{events: make(map[string]Event)}
	for _, event := range events {
		stub.events[event.ID] = event
	}
	return stub
}

func (s *eventRepositoryStub) record(call string) {
	s.calls = append(s.calls, call)
}

func (s *eventRepositoryStub) CreateEvent(_ context.Context, event Event) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreateEvent")
	if s.createErr != nil {
		return Event{}, s.createErr
	}
	s.events[event.ID] = event
	return event, nil
}

func (s *eventRepositoryStub) UpdateEvent(_ context.Context, event Event) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("UpdateEvent")
	if s.updateErr != nil {
		return Event{}, s.updateErr
	}
	if _, ok := s.events[event.ID]; !ok {
		return Event{}, ErrNotFound
	}
	s.events[event.ID] = event
	return event, nil
}

func (s *eventRepositoryStub) GetEvent(_ context.Context, id string) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetEvent")
	if s.getErr != nil {
		return Event{}, s.getErr
	}
	event, ok := s.events[id]
	if !ok {
		return Event{}, ErrNotFound
	}
	return event, nil
}

func (s *eventRepositoryStub) matching(query EventQuery) []Event {
	out := make([]Event, 0, len(s.events))
	for _, event := range s.events {
		if query.PublicOnly && !event.IsPublic {
			continue
		}
		if query.OwnerID != "" && event.UserID != query.OwnerID {
			continue
		}
		if query.Category != "" && (event.Category == nil || *event.Category != query.Category) {
			continue
		}
		if query.Search != "" {
			needle := strings.ToLower(query.Search)
			desc := ""
			if event.Description != nil {
				desc = *event.Description
			}
			if !strings.Contains(strings.ToLower(event.Title), needle) && !strings.Contains(strings.ToLower(desc), needle) {
				continue
			}
		}
		out = append(out, event)
	}
	sort.Slice(out, func(i, j int) bool {
		if query.Order == OrderByNewest {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].EventDate.Before(out[j].EventDate)
	})
	return out
}

func (s *eventRepositoryStub) ListEvents(_ context.Context, query EventQuery) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListEvents")
	s.queries = append(s.queries, query)
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := s.matching(query)
	if query.Offset > 0 {
		if query.Offset >= len(out) {
			return []Event{}, nil
		}
		out = out[query.Offset:]
	}
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}

func (s *eventRepositoryStub) CountEvents(_ context.Context, query EventQuery) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CountEvents")
	if s.countErr != nil {
		return 0, s.countErr
	}
	return len(s.matching(query)), nil
}

func (s *eventRepositoryStub) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeleteEvent")
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.events[id]; !ok {
		return ErrNotFound
	}
	delete(s.events, id)
	return nil
}

type userRepositoryStub struct {
	mu        sync.Mutex
	users     map[string]UserCredentials
	getErr    error
	createErr error
	updateErr error
	deleteErr error
}

func newUserRepositoryStub(users ...UserCredentials) *userRepositoryStub {
	stub := &userRepositoryStub{users: make(map[string]UserCredentials)}
	for _, user := range users {
		stub.users[user.User.ID] = user
	}
	return stub
}

func (s *userRepositoryStub) CreateUser(_ context.Context, creds UserCredentials) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return User{}, s.createErr
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.User.Email, creds.User.Email) {
			return User{}, ErrAlreadyExists
		}
	}
	s.users[creds.User.ID] = creds
	return creds.User, nil
}

func (s *userRepositoryStub) GetUser(ctx context.Context, id string) (User, error) {
	creds, err := s.GetUserCredentials(ctx, id)
	return creds.User, err
}

func (s *userRepositoryStub) GetUserCredentials(_ context.Context, id string) (UserCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return UserCredentials{}, s.getErr
	}
	creds, ok := s.users[id]
	if !ok {
		return UserCredentials{}, ErrNotFound
	}
	return creds, nil
}

func (s *userRepositoryStub) GetUserCredentialsByEmail(_ context.Context, email string) (UserCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return UserCredentials{}, s.getErr
	}
	for _, creds := range s.users {
		if strings.EqualFold(creds.User.Email, email) {
			return creds, nil
		}
	}
	return UserCredentials{}, ErrNotFound
}

func (s *userRepositoryStub) UpdateUser(_ context.Context, user User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return User{}, s.updateErr
	}
	creds, ok := s.users[user.ID]
	if !ok {
		return User{}, ErrNotFound
	}
	for id, other := range s.users {
		if id != user.ID && strings.EqualFold(other.User.Email, user.Email) {
			return User{}, ErrAlreadyExists
		}
	}
	creds.User = user
	s.users[user.ID] = creds
	return user, nil
}

func (s *userRepositoryStub) UpdatePasswordHash(_ context.Context, id, hash string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	creds, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	creds.PasswordHash = hash
	creds.User.UpdatedAt = updatedAt
	s.users[id] = creds
	return nil
}

func (s *userRepositoryStub) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// fastHasher keeps argon2id but with parameters cheap enough for unit tests.
var fastHasher = Argon2idHasher{Params: Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}}

func ptr[T any](v T) *T {
	return &v
}

type sessionRepositoryStub struct {
	mu          sync.Mutex
	sessions    map[string]Session
	saveErr     error
	getErr      error
	deleteErr   error
	pruneErr    error
	deleteCalls []string
	pruneCalls  []time.Time
}

func newSessionRepositoryStub(sessions ...Session) *sessionRepositoryStub {
	stub := &sessionRepositoryStub{sessions: make(map[string]Session)}
	for _, session := range sessions {
		stub.sessions[session.Token] = session
	}
	return stub
}

func (s *sessionRepositoryStub) GetSession(_ context.Context, token string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return Session{}, s.getErr
	}
	session, ok := s.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return session, nil
}

func (s *sessionRepositoryStub) SaveSession(_ context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.sessions[session.Token] = session
	return nil
}

func (s *sessionRepositoryStub) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls = append(s.deleteCalls, token)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.sessions, token)
	return nil
}

func (s *sessionRepositoryStub) DeleteExpiredSessions(_ context.Context, reference time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneCalls = append(s.pruneCalls, reference)
	if s.pruneErr != nil {
		return 0, s.pruneErr
	}
	var removed int64
	for token, session := range s.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed, nil
}
