package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/event-listing/internal/adapter"
	"github.com/example/event-listing/internal/application"
	"github.com/example/event-listing/internal/config"
	httptransport "github.com/example/event-listing/internal/http"
	"github.com/example/event-listing/internal/logging"
	"github.com/example/event-listing/internal/notify"
	"github.com/example/event-listing/internal/persistence/sqlite"
)

const (
	listingCacheEntries  = 256
	sessionPurgeInterval = time.Hour
)

func main() {
	if err := config.LoadDotenv(); err != nil {
		logging.New(logging.Options{}).Error("failed to read .env file", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.Options{}).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{
		Production: cfg.IsProduction(),
		Debug:      os.Getenv("EVENTS_DEBUG") != "",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// run serves the site until ctx is cancelled.
func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	storage, err := openStorage(ctx, cfg.SQLiteDSN, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	site, err := newSite(cfg, adapter.New(storage), logger)
	if err != nil {
		return err
	}
	go purgeSessions(ctx, site.sessions, sessionPurgeInterval, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           site.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("event site listening", "addr", server.Addr, "env", cfg.Environment, "base_url", cfg.BaseURL)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("event site stopped")
	return nil
}

// openStorage connects to dsn and brings the schema up to date.
func openStorage(ctx context.Context, dsn string, logger *slog.Logger) (*sqlite.Storage, error) {
	storage, err := sqlite.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	applied, err := storage.Pool().Migrate(ctx, logger)
	if err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	version, err := storage.Pool().SchemaVersion(ctx)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}
	logger.Info("database ready", "schema_version", version, "applied", len(applied))
	return storage, nil
}

type site struct {
	handler  http.Handler
	sessions *application.SessionService
}

// newSite wires services, handlers and middleware over repos.
func newSite(cfg config.Config, repos adapter.Repositories, logger *slog.Logger) (*site, error) {
	now := time.Now

	events := application.NewEventServiceWithLogger(repos.Events, uuid.NewString, now, logger)
	events.SetDefaultPageSize(cfg.PageSize)
	events.EnableListingCache(cfg.ListingCacheTTL, listingCacheEntries)

	users := application.NewUserServiceWithLogger(repos.Users, nil, uuid.NewString, now, logger)
	users.OnAccountDeleted(func(context.Context, string) { events.InvalidateListings() })
	sessions := application.NewSessionServiceWithLogger(repos.Sessions, application.NewSessionToken, now, cfg.SessionTTL, logger)
	resets, err := application.NewPasswordResetService(users, notify.NewLogNotifier(logger), application.PasswordResetConfig{
		Secret:  []byte(cfg.SessionSecret),
		TTL:     cfg.ResetTokenTTL,
		BaseURL: cfg.BaseURL,
	}, now, logger)
	if err != nil {
		return nil, err
	}

	views, err := httptransport.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	responder := httptransport.NewResponder(views, cfg.IsProduction(), now, logger)
	manager := httptransport.NewSessionManager(sessions, cfg.SecureCookies, logger)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Home:        httptransport.NewHomeHandler(events, responder, now, logger),
		Events:      httptransport.NewEventHandler(events, responder, logger),
		Auth:        httptransport.NewAuthHandler(users, resets, manager, responder, logger),
		Users:       httptransport.NewUserHandler(users, events, manager, responder, logger),
		Responder:   responder,
		Static:      httptransport.StaticHandler(),
		RequireAuth: httptransport.RequireAuth(manager, users, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Recoverer(responder),
			httptransport.MethodOverride,
			manager.Load,
		},
	})

	return &site{handler: handler, sessions: sessions}, nil
}

// purgeSessions deletes expired sessions every interval until ctx is done.
func purgeSessions(ctx context.Context, sessions *application.SessionService, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sessions.PurgeExpired(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("failed to purge expired sessions", "error", err)
			}
		}
	}
}
