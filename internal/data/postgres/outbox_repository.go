package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bank-transfer-engine/internal/domain/outbox"
	"github.com/bank-transfer-engine/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// OutboxRepository implements the outbox.Repository interface for PostgreSQL
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewOutboxRepository creates a new PostgreSQL outbox repository
func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) outbox.Repository {
	return &OutboxRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction. Event creation must be
// atomic with the transfer and ledger writes it describes.
func (r *OutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return &OutboxRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new outbox event in pending status
func (r *OutboxRepository) Create(ctx context.Context, event *outbox.Event) error {
	query := `
		INSERT INTO outbox_events (id, aggregate_type, aggregate_id, event_type, payload, status, attempt_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		event.ID,
		event.AggregateType,
		event.AggregateID,
		event.EventType,
		event.Payload,
		event.Status,
		event.AttemptCount,
		event.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create outbox event",
			"aggregate_id", event.AggregateID,
			"error", err,
		)
		return fmt.Errorf("failed to create outbox event: %w", err)
	}

	return nil
}

// ClaimPendingBatch reads up to limit PENDING events in FIFO order with
// FOR UPDATE SKIP LOCKED. Rows already claimed by a concurrent relay
// instance are skipped, not waited on.
func (r *OutboxRepository) ClaimPendingBatch(ctx context.Context, limit int) ([]*outbox.Event, error) {
	query := `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, status, attempt_count, last_error, created_at, published_at
		FROM outbox_events
		WHERE status = $1
		ORDER BY created_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, outbox.StatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to claim pending outbox events", "error", err)
		return nil, fmt.Errorf("failed to claim pending outbox events: %w", err)
	}
	defer rows.Close()

	var events []*outbox.Event
	for rows.Next() {
		var event outbox.Event
		var lastError *string
		err := rows.Scan(
			&event.ID,
			&event.AggregateType,
			&event.AggregateID,
			&event.EventType,
			&event.Payload,
			&event.Status,
			&event.AttemptCount,
			&lastError,
			&event.CreatedAt,
			&event.PublishedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan outbox event", "error", err)
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		if lastError != nil {
			event.LastError = *lastError
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over outbox events: %w", err)
	}

	return events, nil
}

// MarkProcessed persists a successful publish
func (r *OutboxRepository) MarkProcessed(ctx context.Context, event *outbox.Event) error {
	query := `
		UPDATE outbox_events
		SET status = $1, attempt_count = $2, last_error = NULL, published_at = $3
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query,
		event.Status,
		event.AttemptCount,
		event.PublishedAt,
		event.ID,
	)
	if err != nil {
		r.logger.Error("Failed to mark outbox event processed", "id", event.ID.String(), "error", err)
		return fmt.Errorf("failed to mark outbox event processed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return outbox.ErrEventNotFound{ID: event.ID}
	}

	return nil
}

// RecordFailure persists a failed publish attempt; the event stays PENDING
func (r *OutboxRepository) RecordFailure(ctx context.Context, event *outbox.Event) error {
	query := `
		UPDATE outbox_events
		SET attempt_count = $1, last_error = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query,
		event.AttemptCount,
		event.LastError,
		event.ID,
	)
	if err != nil {
		r.logger.Error("Failed to record outbox publish failure", "id", event.ID.String(), "error", err)
		return fmt.Errorf("failed to record outbox publish failure: %w", err)
	}

	if result.RowsAffected() == 0 {
		return outbox.ErrEventNotFound{ID: event.ID}
	}

	return nil
}
