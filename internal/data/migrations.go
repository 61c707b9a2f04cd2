package data

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/target/principal-auth/internal/migrate"
)

// RunMigrations applies the embedded schema through a database/sql view of pool
// and returns the versions applied by this call.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) ([]string, error) {
	db := stdlib.OpenDBFromPool(pool)
	// Closing the view does not close the pool.
	defer func() { _ = db.Close() }()

	applied, err := migrate.Run(ctx, db, migrate.Options{Logger: logger})
	if err != nil {
		return applied, fmt.Errorf("run migrations: %w", err)
	}
	return applied, nil
}
