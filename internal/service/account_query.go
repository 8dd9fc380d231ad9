package service

import (
	"context"
	"log/slog"

	"github.com/bank-transfer-engine/internal/domain/account"
	"github.com/bank-transfer-engine/internal/domain/ledger"
	"github.com/bank-transfer-engine/internal/domain/transfer"
)

// AccountQueryService answers read-only account questions for the API
type AccountQueryService interface {
	GetUserAccounts(ctx context.Context, userID string) ([]*account.Account, error)
	GetAccountHistory(ctx context.Context, userID string, accountID int64) ([]*ledger.Entry, error)
}

// AccountQueryServiceImpl reads directly from the repositories, no locks
type AccountQueryServiceImpl struct {
	accountRepo account.Repository
	ledgerRepo  ledger.Repository
	logger      *slog.Logger
}

// NewAccountQueryService creates a new account query service
func NewAccountQueryService(accountRepo account.Repository, ledgerRepo ledger.Repository, logger *slog.Logger) AccountQueryService {
	return &AccountQueryServiceImpl{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		logger:      logger,
	}
}

// GetUserAccounts lists the accounts owned by the user
func (s *AccountQueryServiceImpl) GetUserAccounts(ctx context.Context, userID string) ([]*account.Account, error) {
	return s.accountRepo.ListByUserID(ctx, userID)
}

// GetAccountHistory returns the ledger entries of one account, newest
// first, after verifying the requester owns it.
func (s *AccountQueryServiceImpl) GetAccountHistory(ctx context.Context, userID string, accountID int64) ([]*ledger.Entry, error) {
	acc, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if acc.UserID != userID {
		return nil, transfer.ErrNotOwner
	}

	return s.ledgerRepo.ListByAccountID(ctx, accountID)
}
