package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bank-transfer-engine/internal/domain/account"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func accountColumns() []string {
	return []string{"id", "user_id", "currency", "balance", "status", "version", "updated_at"}
}

func TestAccountRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}

	query := `
		SELECT id, user_id, currency, balance, status, version, updated_at
		FROM accounts
		WHERE id = \$1
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows(accountColumns()).
			AddRow(int64(1), "user-1", "USD", decimal.RequireFromString("1000"), account.StatusActive, int64(3), time.Now())

		mock.ExpectQuery(query).WithArgs(int64(1)).WillReturnRows(rows)

		acc, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), acc.ID)
		assert.Equal(t, "user-1", acc.UserID)
		assert.True(t, acc.Balance.Equal(decimal.RequireFromString("1000")))
		assert.Equal(t, int64(3), acc.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(int64(42)).WillReturnError(pgx.ErrNoRows)

		acc, err := repo.GetByID(ctx, 42)
		assert.Nil(t, acc)

		var notFound account.ErrAccountNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, int64(42), notFound.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetForUpdate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}

	query := `
		SELECT id, user_id, currency, balance, status, version, updated_at
		FROM accounts
		WHERE id = \$1
		FOR UPDATE
	`

	rows := pgxmock.NewRows(accountColumns()).
		AddRow(int64(1), "user-1", "USD", decimal.RequireFromString("1000"), account.StatusActive, int64(3), time.Now())

	mock.ExpectQuery(query).WithArgs(int64(1)).WillReturnRows(rows)

	acc, err := repo.GetForUpdate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), acc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_GetOwnerID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}

	query := `
		SELECT user_id
		FROM accounts
		WHERE id = \$1
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"user_id"}).AddRow("user-1")
		mock.ExpectQuery(query).WithArgs(int64(1)).WillReturnRows(rows)

		ownerID, err := repo.GetOwnerID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "user-1", ownerID)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(int64(42)).WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetOwnerID(ctx, 42)

		var notFound account.ErrAccountNotFound
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestAccountRepository_UpdateBalance(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}

	query := `
		UPDATE accounts
		SET balance = \$1, version = \$2, updated_at = \$3
		WHERE id = \$4 AND version = \$5
	`

	acc := &account.Account{
		ID:        1,
		UserID:    "user-1",
		Currency:  "USD",
		Balance:   decimal.RequireFromString("899"),
		Status:    account.StatusActive,
		Version:   4,
		UpdatedAt: time.Now(),
	}

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.Balance, acc.Version, acc.UpdatedAt, acc.ID, acc.Version-1).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateBalance(ctx, acc)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent modification", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.Balance, acc.Version, acc.UpdatedAt, acc.ID, acc.Version-1).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateBalance(ctx, acc)

		var conflict account.ErrConcurrentModification
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, int64(1), conflict.AccountID)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.Balance, acc.Version, acc.UpdatedAt, acc.ID, acc.Version-1).
			WillReturnError(errors.New("db error"))

		err := repo.UpdateBalance(ctx, acc)
		assert.Error(t, err)
	})
}

func TestAccountRepository_ListByUserID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}

	query := `
		SELECT id, user_id, currency, balance, status, version, updated_at
		FROM accounts
		WHERE user_id = \$1
		ORDER BY id ASC
	`

	rows := pgxmock.NewRows(accountColumns()).
		AddRow(int64(1), "user-1", "USD", decimal.RequireFromString("1000"), account.StatusActive, int64(1), time.Now()).
		AddRow(int64(5), "user-1", "EUR", decimal.RequireFromString("20"), account.StatusFrozen, int64(2), time.Now())

	mock.ExpectQuery(query).WithArgs("user-1").WillReturnRows(rows)

	accounts, err := repo.ListByUserID(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, int64(1), accounts[0].ID)
	assert.Equal(t, int64(5), accounts[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_FreezeByUserID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}

	query := `
		UPDATE accounts
		SET status = \$1, updated_at = NOW\(\)
		WHERE user_id = \$2 AND status <> \$1
	`

	mock.ExpectExec(query).
		WithArgs(account.StatusFrozen, "user-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	frozen, err := repo.FreezeByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), frozen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_WithTx(t *testing.T) {
	repo := &AccountRepository{querier: nil, logger: newTestLogger()}

	txRepo := repo.WithTx(pgx.Tx(nil))

	require.IsType(t, &AccountRepository{}, txRepo)
	assert.NotSame(t, repo, txRepo)
}
