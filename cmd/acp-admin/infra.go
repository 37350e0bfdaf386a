package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quocan1101-cloud/acp-hackathon/internal/adapters/acpapi"
	"github.com/quocan1101-cloud/acp-hackathon/internal/bootstrap"
)

var errDBNotConfigured = errors.New("DB_HOST is not set")

// connectDB opens the journal database named by the loaded config.
func connectDB(ctx context.Context, cmdCtx *commandContext) (*sql.DB, error) {
	if !cmdCtx.Config.Postgres.Enabled() {
		return nil, errDBNotConfigured
	}
	db, err := bootstrap.ConnectDB(ctx, cmdCtx.Config.Postgres, cmdCtx.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return db, nil
}

// newAPI builds a read-only ACP API client for the configured wallet.
func newAPI(cmdCtx *commandContext) (*acpapi.Client, error) {
	if err := cmdCtx.Config.Chain.Validate(); err != nil {
		return nil, fmt.Errorf("chain config: %w", err)
	}
	return acpapi.NewClient(acpapi.Options{
		BaseURL:       cmdCtx.Config.Chain.APIURL,
		WalletAddress: cmdCtx.Config.Agent.WalletAddress,
		Logger:        cmdCtx.Logger,
	})
}

func closeQuietly(logger *slog.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Warn("close failed", "resource", what, "error", err)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
