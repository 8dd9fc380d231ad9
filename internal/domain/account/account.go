package account

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInsufficientFunds = errors.New("insufficient funds for transfer amount and fee")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrCurrencyMismatch  = errors.New("account currency does not match requested currency")
	ErrAccountFrozen     = errors.New("source account is frozen")
)

// Status defines account lifecycle states
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusFrozen Status = "FROZEN"
)

// Account represents a bank account. Balance is a fixed-point decimal
// (NUMERIC(19,4) in the store); the currency is immutable once set.
type Account struct {
	ID        int64           `json:"id"`
	UserID    string          `json:"user_id"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Status    Status          `json:"status"`
	Version   int64           `json:"version"` // For optimistic locking
	UpdatedAt time.Time       `json:"updated_at"`
}

// Debit subtracts the specified amount from the account balance.
// The balance is never allowed to go negative.
func (a *Account) Debit(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if a.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}

	a.Balance = a.Balance.Sub(amount)
	a.Version++
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Credit adds the specified amount to the account balance
func (a *Account) Credit(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	a.Balance = a.Balance.Add(amount)
	a.Version++
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// EnsureCurrency verifies the account is denominated in the expected currency
func (a *Account) EnsureCurrency(expected string) error {
	if a.Currency != expected {
		return ErrCurrencyMismatch
	}
	return nil
}

// IsFrozen reports whether the account is blocked from acting as a transfer source
func (a *Account) IsFrozen() bool {
	return a.Status == StatusFrozen
}

// CanDebit checks if the account has sufficient funds for a debit
func (a *Account) CanDebit(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}
