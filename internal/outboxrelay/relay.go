// Package outboxrelay drains PENDING outbox events to the message
// broker. Claiming uses FOR UPDATE SKIP LOCKED, so any number of relay
// instances can run concurrently without leader election: each claims a
// disjoint batch and the claim is released when its transaction commits.
// Delivery is at-least-once; consumers deduplicate on transfer id.
package outboxrelay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bank-transfer-engine/internal/config"
	"github.com/bank-transfer-engine/internal/domain/outbox"
	"github.com/bank-transfer-engine/internal/platform/messaging/producers"
	"github.com/bank-transfer-engine/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// Relay periodically publishes pending outbox events
type Relay struct {
	db             persistence.TxRunner
	outboxRepo     outbox.Repository
	publisher      producers.MessagePublisher
	logger         *slog.Logger
	pollInterval   time.Duration
	initialDelay   time.Duration
	batchSize      int
	publishTimeout time.Duration
}

// NewRelay creates an outbox relay from configuration
func NewRelay(
	cfg *config.OutboxConfig,
	db persistence.TxRunner,
	outboxRepo outbox.Repository,
	publisher producers.MessagePublisher,
	logger *slog.Logger,
) *Relay {
	return &Relay{
		db:             db,
		outboxRepo:     outboxRepo,
		publisher:      publisher,
		logger:         logger,
		pollInterval:   cfg.PollInterval,
		initialDelay:   cfg.InitialDelay,
		batchSize:      cfg.BatchSize,
		publishTimeout: cfg.PublishTimeout,
	}
}

// Start begins polling after the initial delay and runs until the
// context is canceled.
func (r *Relay) Start(ctx context.Context) {
	r.logger.Info("Starting outbox relay",
		"poll_interval", r.pollInterval.String(),
		"initial_delay", r.initialDelay.String(),
		"batch_size", r.batchSize,
	)

	select {
	case <-ctx.Done():
		return
	case <-time.After(r.initialDelay):
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Outbox relay stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := r.DrainPending(ctx); err != nil {
				r.logger.Error("Error draining pending outbox events", "error", err)
			}
		}
	}
}

// DrainPending publishes batches until a partial batch is claimed,
// emptying any backlog within a single tick.
func (r *Relay) DrainPending(ctx context.Context) error {
	for {
		claimed, err := r.publishOneBatch(ctx)
		if err != nil {
			return err
		}
		if claimed < r.batchSize {
			return nil
		}
	}
}

// publishOneBatch claims a batch inside one transaction and attempts to
// publish every claimed event. A publish failure is recorded on its row
// and never fails the batch: the transaction still commits the status
// updates of the other events.
func (r *Relay) publishOneBatch(ctx context.Context) (int, error) {
	var claimed int
	err := r.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := r.outboxRepo.WithTx(tx)

		events, err := repo.ClaimPendingBatch(ctx, r.batchSize)
		if err != nil {
			return fmt.Errorf("failed to claim pending outbox events: %w", err)
		}
		claimed = len(events)

		if claimed == 0 {
			return nil
		}

		r.logger.Debug("Claimed pending outbox events", "count", claimed)

		for _, event := range events {
			r.publishSingle(ctx, repo, event)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return claimed, nil
}

func (r *Relay) publishSingle(ctx context.Context, repo outbox.Repository, event *outbox.Event) {
	publishCtx, cancel := context.WithTimeout(ctx, r.publishTimeout)
	defer cancel()

	if err := r.publisher.Publish(publishCtx, event.AggregateID, event.Payload); err != nil {
		event.RegisterPublishFailure(err.Error())
		r.logger.Error("Outbox publish failed",
			"event_id", event.ID.String(),
			"aggregate_id", event.AggregateID,
			"attempts", event.AttemptCount,
			"error", err,
		)
		if recordErr := repo.RecordFailure(ctx, event); recordErr != nil {
			r.logger.Error("Failed to record outbox publish failure",
				"event_id", event.ID.String(),
				"error", recordErr,
			)
		}
		return
	}

	event.MarkProcessed()
	if err := repo.MarkProcessed(ctx, event); err != nil {
		// The row stays PENDING and the event will be republished;
		// consumers tolerate the duplicate.
		r.logger.Error("Failed to mark outbox event processed",
			"event_id", event.ID.String(),
			"error", err,
		)
		return
	}

	r.logger.Info("Published outbox event",
		"event_id", event.ID.String(),
		"aggregate_id", event.AggregateID,
		"event_type", event.EventType,
	)
}
