package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const resetPurpose = "password_reset"

// ResetNotifier delivers password reset links to users.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, user User, link string, expiresAt time.Time) error
}

// PasswordResetConfig configures reset token signing.
type PasswordResetConfig struct {
	Secret  []byte
	TTL     time.Duration
	BaseURL string
}

type resetClaims struct {
	Purpose     string `json:"purpose"`
	Fingerprint string `json:"pwf"`
	jwt.RegisteredClaims
}

// PasswordResetService issues and redeems signed password reset tokens. A
// token embeds a fingerprint of the password hash it was issued for, so it
// stops working once the password changes.
type PasswordResetService struct {
	users    *UserService
	notifier ResetNotifier
	config   PasswordResetConfig
	now      func() time.Time
	logger   *slog.Logger
}

// NewPasswordResetService wires the reset flow on top of the user service.
func NewPasswordResetService(users *UserService, notifier ResetNotifier, cfg PasswordResetConfig, now func() time.Time, logger *slog.Logger) (*PasswordResetService, error) {
	if users == nil {
		return nil, errors.New("password reset requires a user service")
	}
	if len(cfg.Secret) == 0 {
		return nil, errors.New("password reset requires a signing secret")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if now == nil {
		now = time.Now
	}
	return &PasswordResetService{
		users:    users,
		notifier: notifier,
		config:   cfg,
		now:      now,
		logger:   defaultLogger(logger),
	}, nil
}

func (s *PasswordResetService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PasswordResetService", operation, attrs...)
}

// RequestReset sends a reset link when email belongs to an active account.
// Unknown addresses succeed silently.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	logger := s.loggerWith(ctx, "RequestReset", "email", email)
	if email == "" {
		return nil
	}

	creds, err := s.users.users.GetUserCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.InfoContext(ctx, "password reset requested for unknown email")
			return nil
		}
		err = storeError(err)
		logger.ErrorContext(ctx, "failed to look up user for password reset", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	if !creds.User.IsActive {
		logger.InfoContext(ctx, "password reset requested for disabled account", "user_id", creds.User.ID)
		return nil
	}

	token, expiresAt, err := s.issueToken(creds)
	if err != nil {
		logger.ErrorContext(ctx, "failed to sign reset token", "error", err)
		return err
	}

	if s.notifier != nil {
		link := s.config.BaseURL + "/auth/reset-password/" + token
		if err := s.notifier.SendPasswordReset(ctx, creds.User, link, expiresAt); err != nil {
			logger.ErrorContext(ctx, "failed to deliver reset link", "error", err, "user_id", creds.User.ID)
			return fmt.Errorf("deliver reset link: %w", err)
		}
	}
	logger.InfoContext(ctx, "password reset issued", "user_id", creds.User.ID, "expires_at", expiresAt)
	return nil
}

// ValidateResetToken reports whether token may still be redeemed.
func (s *PasswordResetService) ValidateResetToken(ctx context.Context, token string) error {
	_, err := s.resolve(ctx, token)
	return err
}

// ResetPassword redeems token and sets the new password.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, password string) (err error) {
	logger := s.loggerWith(ctx, "ResetPassword")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "password reset failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	creds, err := s.resolve(ctx, token)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, creds.User.ID, password); err != nil {
		return err
	}
	logger.InfoContext(ctx, "password reset completed", "user_id", creds.User.ID)
	return nil
}

func (s *PasswordResetService) issueToken(creds UserCredentials) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.config.TTL)
	claims := resetClaims{
		Purpose:     resetPurpose,
		Fingerprint: hashFingerprint(creds.PasswordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   creds.User.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign reset token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *PasswordResetService) resolve(ctx context.Context, token string) (UserCredentials, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return UserCredentials{}, ErrInvalidResetToken
	}

	claims := &resetClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.config.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return UserCredentials{}, fmt.Errorf("%w: %v", ErrInvalidResetToken, err)
	}
	if claims.Purpose != resetPurpose || claims.Subject == "" {
		return UserCredentials{}, ErrInvalidResetToken
	}

	creds, err := s.users.users.GetUserCredentials(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return UserCredentials{}, ErrInvalidResetToken
		}
		return UserCredentials{}, storeError(err)
	}
	if !creds.User.IsActive || hashFingerprint(creds.PasswordHash) != claims.Fingerprint {
		return UserCredentials{}, ErrInvalidResetToken
	}
	return creds, nil
}

func hashFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}
