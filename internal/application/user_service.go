package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, credentials UserCredentials) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserCredentials(ctx context.Context, id string) (UserCredentials, error)
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	DeleteUser(ctx context.Context, id string) error
}

const maxNameLength = 100

// UserService implements account lookup, registration, profile changes and
// credential checks.
type UserService struct {
	users       UserRepository
	hasher      PasswordHasher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	onDelete    []func(ctx context.Context, userID string)
}

// NewUserService wires dependencies for the user service using argon2id hashing.
func NewUserService(users UserRepository, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, nil, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires dependencies with an explicit hasher and logger.
// A nil hasher selects NewArgon2idHasher.
func NewUserServiceWithLogger(users UserRepository, hasher PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hasher == nil {
		hasher = NewArgon2idHasher()
	}
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:       users,
		hasher:      hasher,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// OnAccountDeleted registers hook to run after an account and its events are
// removed.
func (s *UserService) OnAccountDeleted(hook func(ctx context.Context, userID string)) {
	if s == nil || hook == nil {
		return
	}
	s.onDelete = append(s.onDelete, hook)
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// FindByID returns the user with the given identifier or ErrNotFound.
func (s *UserService) FindByID(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, ErrNotFound
	}
	if s.users == nil {
		return User{}, fmt.Errorf("%w: user repository not configured", ErrStoreUnavailable)
	}

	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return User{}, storeError(err)
	}
	return user, nil
}

// FindByEmail returns the user registered with email, ignoring case.
func (s *UserService) FindByEmail(ctx context.Context, email string) (User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return User{}, ErrNotFound
	}
	if s.users == nil {
		return User{}, fmt.Errorf("%w: user repository not configured", ErrStoreUnavailable)
	}

	creds, err := s.users.GetUserCredentialsByEmail(ctx, email)
	if err != nil {
		return User{}, storeError(err)
	}
	return creds.User, nil
}

// CreateUser registers a new active account.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "CreateUser", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "user registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	}()

	profile := User{
		Email:     email,
		FirstName: strings.TrimSpace(params.FirstName),
		LastName:  strings.TrimSpace(params.LastName),
	}
	vErr := validateProfile(profile)
	vErr.merge(validatePassword(params.Password))
	if vErr.HasErrors() {
		err = vErr
		return
	}

	hash, hashErr := s.hasher.Hash(params.Password)
	if hashErr != nil {
		err = fmt.Errorf("hash password: %w", hashErr)
		return
	}

	now := s.now()
	profile.ID = s.idGenerator()
	profile.IsActive = true
	profile.CreatedAt = now
	profile.UpdatedAt = now

	if s.users == nil {
		user = profile
		return
	}

	user, err = s.users.CreateUser(ctx, UserCredentials{User: profile, PasswordHash: hash})
	if err != nil {
		user = User{}
		err = storeError(err)
	}
	return
}

// UpdateUser applies a sparse profile patch.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (user User, err error) {
	logger := s.loggerWith(ctx, "UpdateUser", "user_id", params.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "profile update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "profile updated")
	}()

	existing, err := s.FindByID(ctx, params.UserID)
	if err != nil {
		return User{}, err
	}

	updated := existing
	if params.Patch.Email != nil {
		updated.Email = normalizeEmail(*params.Patch.Email)
	}
	if params.Patch.FirstName != nil {
		updated.FirstName = strings.TrimSpace(*params.Patch.FirstName)
	}
	if params.Patch.LastName != nil {
		updated.LastName = strings.TrimSpace(*params.Patch.LastName)
	}
	if vErr := validateProfile(updated); vErr.HasErrors() {
		return User{}, vErr
	}
	if updated.Email != existing.Email {
		// A changed address has not been confirmed.
		updated.EmailVerified = false
	}
	updated.UpdatedAt = s.now()

	persisted, err := s.users.UpdateUser(ctx, updated)
	if err != nil {
		return User{}, storeError(err)
	}
	return persisted, nil
}

// DeleteUser removes the account together with its events and sessions.
func (s *UserService) DeleteUser(ctx context.Context, id string) (err error) {
	logger := s.loggerWith(ctx, "DeleteUser", "user_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "account deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "account deleted")
	}()

	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}
	if s.users == nil {
		return fmt.Errorf("%w: user repository not configured", ErrStoreUnavailable)
	}
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return storeError(err)
	}
	for _, hook := range s.onDelete {
		hook(ctx, id)
	}
	return nil
}

// ValidateCredentials returns the active user matching email and password.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *UserService) ValidateCredentials(ctx context.Context, email, password string) (user User, err error) {
	email = normalizeEmail(email)
	logger := s.loggerWith(ctx, "ValidateCredentials", "email", email)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "credential check failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "credentials accepted", "user_id", user.ID)
	}()

	if email == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}
	if s.users == nil {
		return User{}, fmt.Errorf("%w: user repository not configured", ErrStoreUnavailable)
	}

	creds, err := s.users.GetUserCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, storeError(err)
	}

	if verifyErr := s.hasher.Verify(creds.PasswordHash, password); verifyErr != nil {
		return User{}, ErrInvalidCredentials
	}
	if !creds.User.IsActive {
		return User{}, ErrAccountDisabled
	}
	return creds.User, nil
}

// SetPassword replaces the password of the given user.
func (s *UserService) SetPassword(ctx context.Context, userID, password string) error {
	if vErr := validatePassword(password); vErr.HasErrors() {
		return vErr
	}
	if s.users == nil {
		return fmt.Errorf("%w: user repository not configured", ErrStoreUnavailable)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash, s.now()); err != nil {
		return storeError(err)
	}
	s.loggerWith(ctx, "SetPassword", "user_id", userID).InfoContext(ctx, "password changed")
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateProfile(user User) *ValidationError {
	vErr := &ValidationError{}

	if user.Email == "" {
		vErr.add("email", "email is required")
	} else if addr, err := mail.ParseAddress(user.Email); err != nil || addr.Address != user.Email {
		vErr.add("email", "email is invalid")
	}

	if user.FirstName == "" {
		vErr.add("first_name", "first name is required")
	} else if utf8.RuneCountInString(user.FirstName) > maxNameLength {
		vErr.add("first_name", fmt.Sprintf("first name must be at most %d characters", maxNameLength))
	}
	if user.LastName == "" {
		vErr.add("last_name", "last name is required")
	} else if utf8.RuneCountInString(user.LastName) > maxNameLength {
		vErr.add("last_name", fmt.Sprintf("last name must be at most %d characters", maxNameLength))
	}

	return vErr
}

func validatePassword(password string) *ValidationError {
	vErr := &ValidationError{}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	return vErr
}
