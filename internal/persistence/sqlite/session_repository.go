package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/example/event-listing/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
type SessionRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

type sessionRow struct {
	Token         string         `db:"token"`
	UserID        sql.NullString `db:"user_id"`
	Authenticated bool           `db:"authenticated"`
	Flashes       string         `db:"flashes"`
	ExpiresAt     string         `db:"expires_at"`
	CreatedAt     string         `db:"created_at"`
	UpdatedAt     string         `db:"updated_at"`
}

func newSessionRow(session persistence.Session) (sessionRow, error) {
	flashes := session.Flashes
	if flashes == nil {
		flashes = []persistence.Flash{}
	}
	encoded, err := json.Marshal(flashes)
	if err != nil {
		return sessionRow{}, fmt.Errorf("failed to encode flashes: %w", err)
	}
	return sessionRow{
		Token:         session.Token,
		UserID:        sql.NullString{String: session.UserID, Valid: session.UserID != ""},
		Authenticated: session.Authenticated,
		Flashes:       string(encoded),
		ExpiresAt:     formatTime(session.ExpiresAt),
		CreatedAt:     formatTime(session.CreatedAt),
		UpdatedAt:     formatTime(session.UpdatedAt),
	}, nil
}

func (row sessionRow) toSession() (persistence.Session, error) {
	session := persistence.Session{
		Token:         row.Token,
		UserID:        row.UserID.String,
		Authenticated: row.Authenticated,
	}
	if strings.TrimSpace(row.Flashes) != "" {
		if err := json.Unmarshal([]byte(row.Flashes), &session.Flashes); err != nil {
			return persistence.Session{}, fmt.Errorf("failed to decode flashes: %w", err)
		}
	}
	var err error
	if session.ExpiresAt, err = parseTime("expires_at", row.ExpiresAt); err != nil {
		return persistence.Session{}, err
	}
	if session.CreatedAt, err = parseTime("created_at", row.CreatedAt); err != nil {
		return persistence.Session{}, err
	}
	if session.UpdatedAt, err = parseTime("updated_at", row.UpdatedAt); err != nil {
		return persistence.Session{}, err
	}
	return session, nil
}

// SaveSession inserts or replaces the state stored under the session token.
// The creation time of an existing row is preserved.
func (r *SessionRepository) SaveSession(ctx context.Context, session persistence.Session) error {
	if strings.TrimSpace(session.Token) == "" {
		return persistence.ErrConstraintViolation
	}
	row, err := newSessionRow(session)
	if err != nil {
		return err
	}

	query := `INSERT INTO sessions (token, user_id, authenticated, flashes, expires_at, created_at, updated_at)
		VALUES (:token, :user_id, :authenticated, :flashes, :expires_at, :created_at, :updated_at)
		ON CONFLICT (token) DO UPDATE SET
			user_id = excluded.user_id,
			authenticated = excluded.authenticated,
			flashes = excluded.flashes,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`

	return r.retry.WithRetry(ctx, func() error {
		_, err := r.pool.db.NamedExecContext(ctx, query, row)
		return err
	})
}

// GetSession retrieves the session stored under token.
func (r *SessionRepository) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	normalized := strings.TrimSpace(token)
	if normalized == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	var row sessionRow
	query := `SELECT token, user_id, authenticated, flashes, expires_at, created_at, updated_at FROM sessions WHERE token = ?`
	if err := r.pool.db.GetContext(ctx, &row, query, normalized); err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	return row.toSession()
}

// DeleteSession removes the session stored under token. Deleting an unknown
// token is not an error.
func (r *SessionRepository) DeleteSession(ctx context.Context, token string) error {
	normalized := strings.TrimSpace(token)
	if normalized == "" {
		return nil
	}
	if _, err := r.pool.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, normalized); err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired on or before reference
// and reports how many were removed.
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error) {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(reference))
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return removed, nil
}
