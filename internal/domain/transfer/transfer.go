package transfer

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status defines committed transfer states. Only COMMITTED is produced
// today; the column exists so reversals can be added without a migration.
type Status string

const (
	StatusCommitted Status = "COMMITTED"
)

// Transfer is the committed record of a funds movement. Exactly one row
// exists per idempotency key; replays return this row instead of moving
// funds again.
type Transfer struct {
	TransferID     string          `json:"transfer_id"`
	FromAccountID  int64           `json:"from_account_id"`
	ToAccountID    int64           `json:"to_account_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Status         Status          `json:"status"`
	IdempotencyKey string          `json:"idempotency_key"`
	RequestedAt    time.Time       `json:"requested_at"`
	CommittedAt    time.Time       `json:"committed_at"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Committed builds the persisted record for a freshly executed command
func Committed(transferID string, cmd *Command) *Transfer {
	now := time.Now().UTC()
	return &Transfer{
		TransferID:     transferID,
		FromAccountID:  cmd.FromAccountID,
		ToAccountID:    cmd.ToAccountID,
		Amount:         cmd.Amount,
		Currency:       cmd.NormalizedCurrency(),
		Status:         StatusCommitted,
		IdempotencyKey: cmd.IdempotencyKey,
		RequestedAt:    cmd.EffectiveRequestedAt(),
		CommittedAt:    now,
		CreatedAt:      now,
	}
}

// Matches reports whether a replayed command carries the same business
// parameters as the transfer originally committed under its key.
func (t *Transfer) Matches(cmd *Command) bool {
	return t.FromAccountID == cmd.FromAccountID &&
		t.ToAccountID == cmd.ToAccountID &&
		t.Amount.Equal(cmd.Amount) &&
		t.Currency == cmd.NormalizedCurrency()
}

// Result is what the orchestrator hands back to callers. IdempotentReplay
// distinguishes a fresh commit from a replayed one so the HTTP layer can
// pick the right status code.
type Result struct {
	TransferID       string          `json:"transfer_id"`
	IdempotencyKey   string          `json:"idempotency_key"`
	FromAccountID    int64           `json:"from_account_id"`
	ToAccountID      int64           `json:"to_account_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Status           Status          `json:"status"`
	CommittedAt      time.Time       `json:"committed_at"`
	IdempotentReplay bool            `json:"idempotent_replay"`
}

// ResultFrom maps a committed transfer onto the caller-facing result
func ResultFrom(t *Transfer, replay bool) *Result {
	return &Result{
		TransferID:       t.TransferID,
		IdempotencyKey:   t.IdempotencyKey,
		FromAccountID:    t.FromAccountID,
		ToAccountID:      t.ToAccountID,
		Amount:           t.Amount,
		Currency:         t.Currency,
		Status:           t.Status,
		CommittedAt:      t.CommittedAt,
		IdempotentReplay: replay,
	}
}
