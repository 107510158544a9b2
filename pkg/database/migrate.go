package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/prohmpiriya/auth-sentry/migrations"
	"github.com/prohmpiriya/auth-sentry/pkg/config"
)

// RunMigrations applies the embedded schema migrations.
// Goose needs database/sql, so it opens a short-lived connection
// through the pgx stdlib driver instead of reusing the pool.
func RunMigrations(ctx context.Context, cfg *config.DatabaseConfig) error {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
