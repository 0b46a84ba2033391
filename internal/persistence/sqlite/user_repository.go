package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/example/event-listing/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool, mapper: NewErrorMapper()}
}

type userRow struct {
	ID            string `db:"id"`
	Email         string `db:"email"`
	PasswordHash  string `db:"password_hash"`
	FirstName     string `db:"first_name"`
	LastName      string `db:"last_name"`
	IsActive      bool   `db:"is_active"`
	EmailVerified bool   `db:"email_verified"`
	CreatedAt     string `db:"created_at"`
	UpdatedAt     string `db:"updated_at"`
}

const userColumns = `id, email, password_hash, first_name, last_name, is_active, email_verified, created_at, updated_at`

func newUserRow(user persistence.User) userRow {
	return userRow{
		ID:            user.ID,
		Email:         strings.ToLower(strings.TrimSpace(user.Email)),
		PasswordHash:  user.PasswordHash,
		FirstName:     strings.TrimSpace(user.FirstName),
		LastName:      strings.TrimSpace(user.LastName),
		IsActive:      user.IsActive,
		EmailVerified: user.EmailVerified,
		CreatedAt:     formatTime(user.CreatedAt),
		UpdatedAt:     formatTime(user.UpdatedAt),
	}
}

func (row userRow) toUser() (persistence.User, error) {
	user := persistence.User{
		ID:            row.ID,
		Email:         row.Email,
		PasswordHash:  row.PasswordHash,
		FirstName:     row.FirstName,
		LastName:      row.LastName,
		IsActive:      row.IsActive,
		EmailVerified: row.EmailVerified,
	}
	var err error
	if user.CreatedAt, err = parseTime("created_at", row.CreatedAt); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTime("updated_at", row.UpdatedAt); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

// CreateUser inserts a new user. Emails are stored lower-cased.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	query := `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :email, :password_hash, :first_name, :last_name, :is_active, :email_verified, :created_at, :updated_at)`

	if _, err := r.pool.db.NamedExecContext(ctx, query, newUserRow(user)); err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// UpdateUser overwrites the mutable columns of an existing user.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
		return persistence.ErrConstraintViolation
	}

	query := `UPDATE users
		SET email = :email, password_hash = :password_hash, first_name = :first_name, last_name = :last_name,
			is_active = :is_active, email_verified = :email_verified, updated_at = :updated_at
		WHERE id = :id`

	result, err := r.pool.db.NamedExecContext(ctx, query, newUserRow(user))
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetUser retrieves a user by identifier.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if strings.TrimSpace(id) == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by email address, ignoring case.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, normalized)
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (persistence.User, error) {
	var row userRow
	if err := r.pool.db.GetContext(ctx, &row, query, args...); err != nil {
		return persistence.User{}, r.mapper.MapError(err)
	}
	return row.toUser()
}

// DeleteUser removes a user together with their events and sessions.
func (r *UserRepository) DeleteUser(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, id); err != nil {
			return r.mapper.MapError(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE user_id = ?`, id); err != nil {
			return r.mapper.MapError(err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}
