// Package postgres provides PostgreSQL implementations of the domain
// repositories. All repositories share the Querier abstraction so the
// transfer orchestrator can run them against a single transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bank-transfer-engine/internal/domain/account"
	"github.com/bank-transfer-engine/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	query := `
		SELECT id, user_id, currency, balance, status, version, updated_at
		FROM accounts
		WHERE id = $1
	`

	return r.scanOne(ctx, query, id)
}

// GetForUpdate obtains a pessimistic lock on the account and returns its
// current state. Must be called within a transaction.
func (r *AccountRepository) GetForUpdate(ctx context.Context, id int64) (*account.Account, error) {
	query := `
		SELECT id, user_id, currency, balance, status, version, updated_at
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`

	return r.scanOne(ctx, query, id)
}

// GetOwnerID returns the owning user id without locking the row
func (r *AccountRepository) GetOwnerID(ctx context.Context, id int64) (string, error) {
	query := `
		SELECT user_id
		FROM accounts
		WHERE id = $1
	`

	var userID string
	err := r.querier.QueryRow(ctx, query, id).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account owner", "id", id, "error", err)
		return "", fmt.Errorf("failed to get account owner: %w", err)
	}

	return userID, nil
}

// UpdateBalance persists the balance, version, and updated_at of an
// account whose row is already locked by the surrounding transaction.
// The version predicate is a safety net against callers that bypass the
// row lock.
func (r *AccountRepository) UpdateBalance(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE accounts
		SET balance = $1, version = $2, updated_at = $3
		WHERE id = $4 AND version = $5
	`

	result, err := r.querier.Exec(ctx, query,
		acc.Balance,
		acc.Version,
		acc.UpdatedAt,
		acc.ID,
		acc.Version-1,
	)
	if err != nil {
		r.logger.Error("Failed to update account balance", "id", acc.ID, "error", err)
		return fmt.Errorf("failed to update account balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrConcurrentModification{AccountID: acc.ID}
	}

	return nil
}

// ListByUserID retrieves all accounts owned by the given user
func (r *AccountRepository) ListByUserID(ctx context.Context, userID string) ([]*account.Account, error) {
	query := `
		SELECT id, user_id, currency, balance, status, version, updated_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY id ASC
	`

	return r.scanMany(ctx, query, userID)
}

// ListByStatus retrieves all accounts in the given lifecycle state
func (r *AccountRepository) ListByStatus(ctx context.Context, status account.Status) ([]*account.Account, error) {
	query := `
		SELECT id, user_id, currency, balance, status, version, updated_at
		FROM accounts
		WHERE status = $1
		ORDER BY id ASC
	`

	return r.scanMany(ctx, query, status)
}

// FreezeByUserID marks every account of the user as FROZEN and returns
// how many rows were affected.
func (r *AccountRepository) FreezeByUserID(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE accounts
		SET status = $1, updated_at = NOW()
		WHERE user_id = $2 AND status <> $1
	`

	result, err := r.querier.Exec(ctx, query, account.StatusFrozen, userID)
	if err != nil {
		r.logger.Error("Failed to freeze accounts", "user_id", userID, "error", err)
		return 0, fmt.Errorf("failed to freeze accounts for user %s: %w", userID, err)
	}

	return result.RowsAffected(), nil
}

func (r *AccountRepository) scanOne(ctx context.Context, query string, arg interface{}) (*account.Account, error) {
	var acc account.Account
	err := r.querier.QueryRow(ctx, query, arg).Scan(
		&acc.ID,
		&acc.UserID,
		&acc.Currency,
		&acc.Balance,
		&acc.Status,
		&acc.Version,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if id, ok := arg.(int64); ok {
				return nil, account.ErrAccountNotFound{AccountID: id}
			}
			return nil, account.ErrAccountNotFound{}
		}
		r.logger.Error("Failed to get account", "arg", arg, "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &acc, nil
}

func (r *AccountRepository) scanMany(ctx context.Context, query string, arg interface{}) ([]*account.Account, error) {
	rows, err := r.querier.Query(ctx, query, arg)
	if err != nil {
		r.logger.Error("Failed to list accounts", "error", err)
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		var acc account.Account
		err := rows.Scan(
			&acc.ID,
			&acc.UserID,
			&acc.Currency,
			&acc.Balance,
			&acc.Status,
			&acc.Version,
			&acc.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan account", "error", err)
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, &acc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over accounts: %w", err)
	}

	return accounts, nil
}
