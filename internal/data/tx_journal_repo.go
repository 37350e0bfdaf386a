package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quocan1101-cloud/acp-hackathon/internal/core"
	"github.com/quocan1101-cloud/acp-hackathon/internal/data/pgxutil"
	"github.com/quocan1101-cloud/acp-hackathon/internal/domain/model"
	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

const txAttemptColumns = `id::text AS id, call_id::text AS call_id, method, target,
	COALESCE(handle, '') AS handle, attempt, status, result, COALESCE(error, '') AS error, created_at`

var _ core.TransactionJournal = (*TxJournalRepo)(nil)

// TxJournalRepo persists transaction attempts in Postgres.
type TxJournalRepo struct {
	DB *sql.DB
}

// NewTxJournalRepo creates a new TxJournalRepo.
func NewTxJournalRepo(db *sql.DB) *TxJournalRepo {
	return &TxJournalRepo{DB: db}
}

// Record inserts one attempt. A second insert of the same (call, attempt)
// pair returns a Conflict error.
func (r *TxJournalRepo) Record(ctx context.Context, a *model.TxAttempt) error {
	if a == nil {
		return apperrors.Validation("attempt is required")
	}
	if _, err := uuid.Parse(a.CallID); err != nil {
		return apperrors.ValidationField("call_id", "call id must be a uuid")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	const q = `
		INSERT INTO acp_tx_attempts (id, call_id, method, target, handle, attempt, status, result, error)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, NULLIF($9, ''))
		RETURNING created_at`

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, q,
			a.ID, a.CallID, a.Method, a.Target, a.Handle, a.Attempt, a.Status, string(a.Result), a.Error,
		).Scan(&a.CreatedAt)
	})
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// ListByCall returns every attempt of one call in attempt order.
func (r *TxJournalRepo) ListByCall(ctx context.Context, callID string) ([]*model.TxAttempt, error) {
	if _, err := uuid.Parse(callID); err != nil {
		return nil, apperrors.ValidationField("call_id", "call id must be a uuid")
	}
	q := `SELECT ` + txAttemptColumns + ` FROM acp_tx_attempts WHERE call_id = $1 ORDER BY attempt`
	out, err := pgxutil.CollectAll[model.TxAttempt](ctx, r.DB, q, callID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// Recent returns the newest attempts, newest first. limit is clamped to
// [1, 500]; zero means 50.
func (r *TxJournalRepo) Recent(ctx context.Context, limit int) ([]*model.TxAttempt, error) {
	switch {
	case limit <= 0:
		limit = defaultRecentLimit
	case limit > maxRecentLimit:
		limit = maxRecentLimit
	}
	q := `SELECT ` + txAttemptColumns + ` FROM acp_tx_attempts ORDER BY created_at DESC, attempt DESC LIMIT $1`
	out, err := pgxutil.CollectAll[model.TxAttempt](ctx, r.DB, q, limit)
	if err != nil {
		return nil, fmt.Errorf("recent attempts: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// Health pings the database.
func (r *TxJournalRepo) Health(ctx context.Context) error {
	if r.DB == nil {
		return errors.New("journal database not configured")
	}
	return r.DB.PingContext(ctx)
}
