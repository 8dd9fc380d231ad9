package transfer

import (
	"time"

	"github.com/shopspring/decimal"
)

// CompletedEventType is the event_type recorded on outbox rows for
// committed transfers.
const CompletedEventType = "TransferCompletedEvent"

// CompletedEvent is the payload published to downstream consumers
// (fraud detection, notifications) once a transfer commits. Consumers
// must deduplicate on TransferID; delivery is at-least-once.
type CompletedEvent struct {
	TransferID     string          `json:"transferId"`
	IdempotencyKey string          `json:"idempotencyKey"`
	FromAccountID  int64           `json:"fromAccountId"`
	ToAccountID    int64           `json:"toAccountId"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	CommittedAt    time.Time       `json:"committedAt"`
}

// CompletedEventFrom builds the event payload for a committed transfer
func CompletedEventFrom(t *Transfer) *CompletedEvent {
	return &CompletedEvent{
		TransferID:     t.TransferID,
		IdempotencyKey: t.IdempotencyKey,
		FromAccountID:  t.FromAccountID,
		ToAccountID:    t.ToAccountID,
		Amount:         t.Amount,
		Currency:       t.Currency,
		CommittedAt:    t.CommittedAt,
	}
}
