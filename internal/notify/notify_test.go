package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/event-listing/internal/application"
	"github.com/example/event-listing/internal/logging"
)

func TestLogNotifierSendPasswordReset(t *testing.T) {
	t.Parallel()

	user := application.User{ID: "user-1", Email: "jane@example.com"}
	expires := time.Date(2030, time.January, 2, 15, 4, 5, 0, time.UTC)

	t.Run("logs the link", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		notifier := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

		err := notifier.SendPasswordReset(context.Background(), user, "http://localhost:3000/auth/reset-password/abc", expires)
		require.NoError(t, err)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "password reset link issued", entry["msg"])
		assert.Equal(t, "jane@example.com", entry["to"])
		assert.Equal(t, "http://localhost:3000/auth/reset-password/abc", entry["link"])
		assert.Equal(t, "2030-01-02T15:04:05Z", entry["expires_at"])
	})

	t.Run("prefers the request logger", func(t *testing.T) {
		t.Parallel()
		var fallback, scoped bytes.Buffer
		notifier := NewLogNotifier(slog.New(slog.NewJSONHandler(&fallback, nil)))
		ctx := logging.ContextWithLogger(context.Background(), slog.New(slog.NewJSONHandler(&scoped, nil)))

		require.NoError(t, notifier.SendPasswordReset(ctx, user, "http://x/reset", expires))
		assert.Empty(t, fallback.String())
		assert.Contains(t, scoped.String(), "password reset link issued")
	})

	t.Run("rejects incomplete messages", func(t *testing.T) {
		t.Parallel()
		notifier := NewLogNotifier(nil)
		assert.Error(t, notifier.SendPasswordReset(context.Background(), application.User{ID: "x"}, "http://x", expires))
		assert.Error(t, notifier.SendPasswordReset(context.Background(), user, " ", expires))
	})
}
