// Package sqlite implements the persistence repositories on SQLite through
// sqlx and the pure Go modernc.org/sqlite driver. The schema is managed by
// goose migrations embedded in the binary.
package sqlite

import (
	"context"
	"log/slog"

	"github.com/example/event-listing/internal/persistence"
)

var (
	_ persistence.UserRepository    = (*Storage)(nil)
	_ persistence.EventRepository   = (*Storage)(nil)
	_ persistence.SessionRepository = (*Storage)(nil)
)

// Storage bundles the repositories that share one connection pool.
type Storage struct {
	*UserRepository
	*EventRepository
	*SessionRepository

	pool *ConnectionPool
}

// Open connects to the database at dsn with DefaultConfig settings.
func Open(ctx context.Context, dsn string) (*Storage, error) {
	return OpenWithConfig(ctx, DefaultConfig(dsn))
}

// OpenWithConfig connects using an explicit pool configuration.
func OpenWithConfig(ctx context.Context, cfg Config) (*Storage, error) {
	pool, err := NewConnectionPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewStorage(pool), nil
}

// NewStorage builds the repositories on top of an existing pool.
func NewStorage(pool *ConnectionPool) *Storage {
	return &Storage{
		UserRepository:    NewUserRepository(pool),
		EventRepository:   NewEventRepository(pool),
		SessionRepository: NewSessionRepository(pool),
		pool:              pool,
	}
}

// Pool exposes the shared connection pool.
func (s *Storage) Pool() *ConnectionPool {
	return s.pool
}

// Migrate applies pending schema migrations.
func (s *Storage) Migrate(ctx context.Context, logger *slog.Logger) error {
	_, err := s.pool.Migrate(ctx, logger)
	return err
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}
