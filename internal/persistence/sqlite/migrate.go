package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// MigrationResult summarises one applied migration.
type MigrationResult struct {
	Version int64
	Source  string
}

func newMigrationProvider(cp *ConnectionPool) (*goose.Provider, error) {
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, cp.db.DB, fsys)
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}
	return provider, nil
}

// Migrate applies every pending migration and reports the ones it ran.
func (cp *ConnectionPool) Migrate(ctx context.Context, logger *slog.Logger) ([]MigrationResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := newMigrationProvider(cp)
	if err != nil {
		return nil, err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	applied := make([]MigrationResult, 0, len(results))
	for _, result := range results {
		if result == nil || result.Source == nil {
			continue
		}
		applied = append(applied, MigrationResult{Version: result.Source.Version, Source: result.Source.Path})
		logger.InfoContext(ctx, "migration applied",
			"version", result.Source.Version,
			"source", result.Source.Path,
			"duration", result.Duration,
		)
	}
	if len(applied) == 0 {
		logger.InfoContext(ctx, "database schema up to date")
	}
	return applied, nil
}

// SchemaVersion returns the highest applied migration version.
func (cp *ConnectionPool) SchemaVersion(ctx context.Context) (int64, error) {
	provider, err := newMigrationProvider(cp)
	if err != nil {
		return 0, err
	}
	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
