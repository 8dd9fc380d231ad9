package outbox

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages transactional outbox persistence
type Repository interface {
	Create(ctx context.Context, event *Event) error

	// ClaimPendingBatch reads up to limit PENDING events in FIFO order
	// with FOR UPDATE SKIP LOCKED, so concurrent publisher instances
	// claim disjoint batches without blocking on each other. Must be
	// called inside a transaction; the claim is held until commit.
	ClaimPendingBatch(ctx context.Context, limit int) ([]*Event, error)

	// MarkProcessed persists a successful publish (status, attempt count,
	// published_at, cleared error)
	MarkProcessed(ctx context.Context, event *Event) error

	// RecordFailure persists a failed attempt; the row stays PENDING
	RecordFailure(ctx context.Context, event *Event) error

	WithTx(tx pgx.Tx) Repository
}

// ErrEventNotFound indicates missing outbox event
type ErrEventNotFound struct {
	ID uuid.UUID
}

func (e ErrEventNotFound) Error() string {
	return "outbox event not found: " + e.ID.String()
}
