package transfer

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Command carries a validated request to move funds between two accounts.
// UserID is the already-authenticated identity of the requester, supplied
// by the auth layer in front of this service.
type Command struct {
	UserID         string
	IdempotencyKey string
	FromAccountID  int64
	ToAccountID    int64
	Amount         decimal.Decimal
	Currency       string
	RequestedAt    time.Time
}

// Validate rejects malformed commands before any side effect
func (c *Command) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return ValidationError{Field: "user_id", Reason: "is required"}
	}
	if strings.TrimSpace(c.IdempotencyKey) == "" {
		return ValidationError{Field: "idempotency_key", Reason: "is required"}
	}
	if c.FromAccountID <= 0 || c.ToAccountID <= 0 {
		return ValidationError{Field: "account_id", Reason: "source and destination account ids are required"}
	}
	if c.FromAccountID == c.ToAccountID {
		return ValidationError{Field: "to_account_id", Reason: "source and destination accounts must differ"}
	}
	if c.Amount.Sign() <= 0 {
		return ValidationError{Field: "amount", Reason: "must be positive"}
	}
	// balances and ledger amounts are stored at scale 4; finer amounts
	// would silently round on write
	if !c.Amount.Equal(c.Amount.Round(4)) {
		return ValidationError{Field: "amount", Reason: "must not have more than 4 decimal places"}
	}
	if len(c.Currency) != 3 || strings.TrimSpace(c.Currency) != c.Currency {
		return ValidationError{Field: "currency", Reason: "must be ISO-4217 alpha-3"}
	}
	for _, r := range c.Currency {
		isUpper := r >= 'A' && r <= 'Z'
		isLower := r >= 'a' && r <= 'z'
		if !isUpper && !isLower {
			return ValidationError{Field: "currency", Reason: "must be ISO-4217 alpha-3"}
		}
	}
	return nil
}

// NormalizedCurrency returns the uppercase ISO-4217 code
func (c *Command) NormalizedCurrency() string {
	return strings.ToUpper(c.Currency)
}

// EffectiveRequestedAt defaults a missing request time to now
func (c *Command) EffectiveRequestedAt() time.Time {
	if c.RequestedAt.IsZero() {
		return time.Now().UTC()
	}
	return c.RequestedAt
}
