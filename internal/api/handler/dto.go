package handler

import "github.com/shopspring/decimal"

// CreateTransferRequest represents a request to move funds between accounts
type CreateTransferRequest struct {
	FromAccountID int64  `json:"from_account_id" binding:"required,gt=0"`
	ToAccountID   int64  `json:"to_account_id" binding:"required,gt=0"`
	Amount        string `json:"amount" binding:"required"`
	Currency      string `json:"currency" binding:"required,len=3"`
}

// TransferResponse represents a committed transfer in API responses
type TransferResponse struct {
	TransferID     string          `json:"transfer_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	FromAccountID  int64           `json:"from_account_id"`
	ToAccountID    int64           `json:"to_account_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Status         string          `json:"status"`
	CommittedAt    string          `json:"committed_at"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        int64           `json:"id"`
	UserID    string          `json:"user_id"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Status    string          `json:"status"`
	UpdatedAt string          `json:"updated_at"`
}

// LedgerEntryResponse represents one ledger entry in API responses
type LedgerEntryResponse struct {
	ID         string          `json:"id"`
	TransferID string          `json:"transfer_id"`
	AccountID  int64           `json:"account_id"`
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	CreatedAt  string          `json:"created_at"`
}
