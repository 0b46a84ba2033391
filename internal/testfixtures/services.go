package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/example/event-listing/internal/adapter"
	"github.com/example/event-listing/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers, clocks and cheap password hashing.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults. Logs are
// discarded unless WithLogger is supplied.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLogger routes service logs to logger.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// NewEventService builds an event service over events.
func (f *ServiceFactory) NewEventService(events application.EventRepository) *application.EventService {
	return application.NewEventServiceWithLogger(events, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger)
}

// NewUserService builds a user service over users with the fixture hasher.
func (f *ServiceFactory) NewUserService(users application.UserRepository) *application.UserService {
	return application.NewUserServiceWithLogger(users, Hasher, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger)
}

// NewSessionService builds a session service over sessions.
func (f *ServiceFactory) NewSessionService(sessions application.SessionRepository, ttl time.Duration) *application.SessionService {
	return application.NewSessionServiceWithLogger(sessions, application.NewSessionToken, f.Clock.NowFunc(), ttl, f.Logger)
}

// NewPasswordResetService builds the reset flow on top of users.
func (f *ServiceFactory) NewPasswordResetService(users *application.UserService, notifier application.ResetNotifier) *application.PasswordResetService {
	svc, err := application.NewPasswordResetService(users, notifier, application.PasswordResetConfig{
		Secret:  []byte("test-reset-secret"),
		TTL:     time.Hour,
		BaseURL: "http://localhost:3000",
	}, f.Clock.NowFunc(), f.Logger)
	if err != nil {
		panic(err)
	}
	return svc
}

// Services bundles every application service wired against one store.
type Services struct {
	Events   *application.EventService
	Users    *application.UserService
	Sessions *application.SessionService
	Resets   *application.PasswordResetService
	Notifier *RecordingNotifier
}

// Wire builds all services over repos, recording reset links in Notifier.
func (f *ServiceFactory) Wire(repos adapter.Repositories) Services {
	notifier := &RecordingNotifier{}
	events := f.NewEventService(repos.Events)
	users := f.NewUserService(repos.Users)
	users.OnAccountDeleted(func(context.Context, string) { events.InvalidateListings() })
	return Services{
		Events:   events,
		Users:    users,
		Sessions: f.NewSessionService(repos.Sessions, application.DefaultSessionTTL),
		Resets:   f.NewPasswordResetService(users, notifier),
		Notifier: notifier,
	}
}

// SentReset is one reset link captured by RecordingNotifier.
type SentReset struct {
	User      application.User
	Link      string
	ExpiresAt time.Time
}

// RecordingNotifier is an application.ResetNotifier that keeps every link.
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []SentReset
}

// SendPasswordReset implements application.ResetNotifier.
func (n *RecordingNotifier) SendPasswordReset(_ context.Context, user application.User, link string, expiresAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, SentReset{User: user, Link: link, ExpiresAt: expiresAt})
	return nil
}

// Sent returns a copy of the captured links.
func (n *RecordingNotifier) Sent() []SentReset {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SentReset(nil), n.sent...)
}

// LastLink returns the most recent reset link, or "" when none was sent.
func (n *RecordingNotifier) LastLink() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return ""
	}
	return n.sent[len(n.sent)-1].Link
}
