package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bank-transfer-engine/internal/domain/ledger"
	"github.com/bank-transfer-engine/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// LedgerRepository implements the ledger.Repository interface for PostgreSQL
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a single ledger entry
func (r *LedgerRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (id, transfer_id, account_id, entry_type, amount, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.TransferID,
		entry.AccountID,
		entry.Type,
		entry.Amount,
		entry.Currency,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create ledger entry",
			"transfer_id", entry.TransferID,
			"account_id", entry.AccountID,
			"error", err,
		)
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	return nil
}

// ListByAccountID retrieves an account's entries, newest first
func (r *LedgerRepository) ListByAccountID(ctx context.Context, accountID int64) ([]*ledger.Entry, error) {
	query := `
		SELECT id, transfer_id, account_id, entry_type, amount, currency, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.querier.Query(ctx, query, accountID)
	if err != nil {
		r.logger.Error("Failed to list ledger entries", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		var entry ledger.Entry
		err := rows.Scan(
			&entry.ID,
			&entry.TransferID,
			&entry.AccountID,
			&entry.Type,
			&entry.Amount,
			&entry.Currency,
			&entry.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan ledger entry", "error", err)
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}

	return entries, nil
}
