package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status defines event publishing states
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusProcessed Status = "PROCESSED"
)

const maxErrorLength = 2048

// Event stores a domain event for reliable publishing. It is written in
// the same local transaction as the business rows it describes, so it can
// never exist without its committed transfer and vice versa.
type Event struct {
	ID            uuid.UUID       `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	AttemptCount  int             `json:"attempt_count"`
	LastError     string          `json:"last_error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	PublishedAt   *time.Time      `json:"published_at,omitempty"`
}

// NewPending builds an unpublished event for the given aggregate
func NewPending(aggregateType, aggregateID, eventType string, payload json.RawMessage) *Event {
	return &Event{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		Status:        StatusPending,
		AttemptCount:  0,
		CreatedAt:     time.Now().UTC(),
	}
}

// MarkProcessed records a successful publish
func (e *Event) MarkProcessed() {
	e.Status = StatusProcessed
	e.AttemptCount++
	e.LastError = ""
	now := time.Now().UTC()
	e.PublishedAt = &now
}

// RegisterPublishFailure records a failed attempt; the event stays
// PENDING and is retried on a later tick.
func (e *Event) RegisterPublishFailure(errMessage string) {
	e.AttemptCount++
	if len(errMessage) > maxErrorLength {
		errMessage = errMessage[:maxErrorLength]
	}
	e.LastError = errMessage
}
