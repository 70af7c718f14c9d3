package migrations

import (
	"context"
	"fmt"

	"solana-copy-trader/internal/storage/postgres"
)

// RunPostgresMigrations applies every embedded Postgres migration in order.
// Files use IF NOT EXISTS and may be re-applied.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	migrations, err := load(postgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, m := range migrations {
		// Simple protocol: a file may hold several statements.
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}
	return nil
}
