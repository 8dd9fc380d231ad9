package transfer

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository manages committed transfer persistence
type Repository interface {
	Create(ctx context.Context, t *Transfer) error

	// GetByIdempotencyKeyForUpdate looks up a committed transfer by its
	// idempotency key under an exclusive row lock, serializing concurrent
	// replays of the same key. Returns (nil, nil) when no row exists.
	GetByIdempotencyKeyForUpdate(ctx context.Context, key string) (*Transfer, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrDuplicateTransfer indicates idempotency key uniqueness violation
type ErrDuplicateTransfer struct {
	IdempotencyKey string
}

func (e ErrDuplicateTransfer) Error() string {
	return "transfer already exists for idempotency key: " + e.IdempotencyKey
}
