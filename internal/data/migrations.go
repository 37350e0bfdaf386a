package data

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/quocan1101-cloud/acp-hackathon/internal/migrate"
)

// RunMigrations applies the embedded journal schema.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	return migrate.RunWithLogger(ctx, db, logger)
}
