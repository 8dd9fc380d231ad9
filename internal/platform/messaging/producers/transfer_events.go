package producers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bank-transfer-engine/internal/config"
	"github.com/segmentio/kafka-go"
)

// TransferEventsProducer publishes committed-transfer events drained from
// the outbox. Writes are synchronous: the relay must observe per-message
// success before it can mark the row PROCESSED, so async completion
// callbacks are of no use here.
type TransferEventsProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewTransferEventsProducer creates the outbox relay producer and ensures the topic exists
func NewTransferEventsProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*TransferEventsProducer, error) {
	if cfg.TransferEventsTopic == "" {
		return nil, fmt.Errorf("kafka transfer events topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for transfer events producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.TransferEventsTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure transfer events topic %s exists: %w", cfg.TransferEventsTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.TransferEventsTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &TransferEventsProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.TransferEventsTopic,
	}, nil
}

// Publish writes one event and waits for the broker acknowledgment. The
// caller bounds the wait through ctx.
func (p *TransferEventsProducer) Publish(ctx context.Context, key string, value []byte) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish transfer event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish transfer event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published transfer event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *TransferEventsProducer) Close() error {
	p.logger.Info("Closing transfer events producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
