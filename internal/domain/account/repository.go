package account

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// Repository defines account persistence operations.
// Lookups used inside the transfer transaction must take exclusive row
// locks so concurrent transactions contending for the same account
// serialize instead of both observing stale state.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Account, error)

	// GetForUpdate acquires a pessimistic row lock and returns current state
	GetForUpdate(ctx context.Context, id int64) (*Account, error)

	// GetOwnerID returns the owning user id without locking the row.
	// Used for the advisory ownership pre-check, not as a mutation guard.
	GetOwnerID(ctx context.Context, id int64) (string, error)

	// UpdateBalance persists balance/version/updated_at of an already-locked row
	UpdateBalance(ctx context.Context, acc *Account) error

	ListByUserID(ctx context.Context, userID string) ([]*Account, error)
	ListByStatus(ctx context.Context, status Status) ([]*Account, error)
	FreezeByUserID(ctx context.Context, userID string) (int64, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID int64
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + strconv.FormatInt(e.AccountID, 10)
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	AccountID int64
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for account: " + strconv.FormatInt(e.AccountID, 10)
}
