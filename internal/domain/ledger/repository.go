package ledger

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository manages ledger entry persistence. Entries are created once,
// inside the same transaction as the balance mutations they describe, and
// never updated.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	ListByAccountID(ctx context.Context, accountID int64) ([]*Entry, error)
	WithTx(tx pgx.Tx) Repository
}
