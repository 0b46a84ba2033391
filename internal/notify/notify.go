// Package notify delivers account notifications. Outgoing mail is not wired
// yet, so LogNotifier records the message in the process log where an
// operator can pick it up.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/example/event-listing/internal/application"
	"github.com/example/event-listing/internal/logging"
)

// LogNotifier implements application.ResetNotifier by logging reset links.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that writes to logger, or to the context
// logger when logger is nil.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// SendPasswordReset logs the reset link for user.
func (n *LogNotifier) SendPasswordReset(ctx context.Context, user application.User, link string, expiresAt time.Time) error {
	if strings.TrimSpace(user.Email) == "" {
		return errors.New("notify: recipient has no email address")
	}
	if strings.TrimSpace(link) == "" {
		return errors.New("notify: empty reset link")
	}

	var base *slog.Logger
	if n != nil {
		base = n.logger
	}
	logging.FromContextOr(ctx, base).InfoContext(ctx, "password reset link issued",
		"notification", "password_reset",
		"user_id", user.ID,
		"to", user.Email,
		"link", link,
		"expires_at", expiresAt.UTC().Format(time.RFC3339),
	)
	return nil
}

var _ application.ResetNotifier = (*LogNotifier)(nil)
