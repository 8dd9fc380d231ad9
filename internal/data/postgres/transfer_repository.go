package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bank-transfer-engine/internal/domain/transfer"
	"github.com/bank-transfer-engine/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

// TransferRepository implements the transfer.Repository interface for PostgreSQL
type TransferRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransferRepository creates a new PostgreSQL transfer repository
func NewTransferRepository(logger *slog.Logger, db *persistence.PostgresDB) transfer.Repository {
	return &TransferRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *TransferRepository) WithTx(tx pgx.Tx) transfer.Repository {
	return &TransferRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a committed transfer. The unique index on idempotency_key
// is the last line of defense against double commits under one key.
func (r *TransferRepository) Create(ctx context.Context, t *transfer.Transfer) error {
	query := `
		INSERT INTO transfers (transfer_id, from_account_id, to_account_id, amount, currency, status, idempotency_key, requested_at, committed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		t.TransferID,
		t.FromAccountID,
		t.ToAccountID,
		t.Amount,
		t.Currency,
		t.Status,
		t.IdempotencyKey,
		t.RequestedAt,
		t.CommittedAt,
		t.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return transfer.ErrDuplicateTransfer{IdempotencyKey: t.IdempotencyKey}
		}
		r.logger.Error("Failed to create transfer", "transfer_id", t.TransferID, "error", err)
		return fmt.Errorf("failed to create transfer: %w", err)
	}

	return nil
}

// GetByIdempotencyKeyForUpdate looks up a committed transfer by key under
// an exclusive row lock. Returns (nil, nil) when no row exists, which is
// the common case for first-time requests.
func (r *TransferRepository) GetByIdempotencyKeyForUpdate(ctx context.Context, key string) (*transfer.Transfer, error) {
	query := `
		SELECT transfer_id, from_account_id, to_account_id, amount, currency, status, idempotency_key, requested_at, committed_at, created_at
		FROM transfers
		WHERE idempotency_key = $1
		FOR UPDATE
	`

	var t transfer.Transfer
	err := r.querier.QueryRow(ctx, query, key).Scan(
		&t.TransferID,
		&t.FromAccountID,
		&t.ToAccountID,
		&t.Amount,
		&t.Currency,
		&t.Status,
		&t.IdempotencyKey,
		&t.RequestedAt,
		&t.CommittedAt,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get transfer by idempotency key", "error", err)
		return nil, fmt.Errorf("failed to get transfer by idempotency key: %w", err)
	}

	return &t, nil
}
