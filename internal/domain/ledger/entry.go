// Package ledger holds the double-entry bookkeeping rows: every movement
// of value is recorded as balanced DEBIT/CREDIT entries grouped by the
// transfer that caused them.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType distinguishes the two sides of a double-entry movement
type EntryType string

const (
	EntryTypeDebit  EntryType = "DEBIT"
	EntryTypeCredit EntryType = "CREDIT"
)

// Entry is one monetary movement against one account. For every committed
// transfer the sum of DEBIT amounts equals the sum of CREDIT amounts
// across its entries.
type Entry struct {
	ID         uuid.UUID       `json:"id"`
	TransferID string          `json:"transfer_id"`
	AccountID  int64           `json:"account_id"`
	Type       EntryType       `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Debit records value leaving an account
func Debit(transferID string, accountID int64, amount decimal.Decimal, currency string) *Entry {
	return newEntry(transferID, accountID, EntryTypeDebit, amount, currency)
}

// Credit records value entering an account
func Credit(transferID string, accountID int64, amount decimal.Decimal, currency string) *Entry {
	return newEntry(transferID, accountID, EntryTypeCredit, amount, currency)
}

func newEntry(transferID string, accountID int64, entryType EntryType, amount decimal.Decimal, currency string) *Entry {
	return &Entry{
		ID:         uuid.New(),
		TransferID: transferID,
		AccountID:  accountID,
		Type:       entryType,
		Amount:     amount,
		Currency:   currency,
		CreatedAt:  time.Now().UTC(),
	}
}
