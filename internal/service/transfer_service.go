// Package service contains the transfer orchestrator: the single
// workflow through which funds move between accounts.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bank-transfer-engine/internal/config"
	"github.com/bank-transfer-engine/internal/domain/account"
	"github.com/bank-transfer-engine/internal/domain/ledger"
	"github.com/bank-transfer-engine/internal/domain/outbox"
	"github.com/bank-transfer-engine/internal/domain/transfer"
	"github.com/bank-transfer-engine/internal/limit"
	"github.com/bank-transfer-engine/internal/lock"
	"github.com/bank-transfer-engine/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// aggregateType recorded on outbox rows for committed transfers
const transferAggregateType = "Transaction"

// TransferService executes validated transfer commands
type TransferService interface {
	Transfer(ctx context.Context, cmd *transfer.Command) (*transfer.Result, error)
}

// TransferServiceImpl is the transfer orchestrator. All balance
// mutations, ledger rows, the transfer record, and the outbox event are
// written in one local transaction, executed while holding the
// distributed locks for every involved account.
type TransferServiceImpl struct {
	db           persistence.TxRunner
	accountRepo  account.Repository
	transferRepo transfer.Repository
	ledgerRepo   ledger.Repository
	outboxRepo   outbox.Repository
	lockManager  lock.Manager
	limitCounter limit.Counter
	cfg          config.TransferConfig
	logger       *slog.Logger
}

// NewTransferService creates the transfer orchestrator
func NewTransferService(
	db persistence.TxRunner,
	accountRepo account.Repository,
	transferRepo transfer.Repository,
	ledgerRepo ledger.Repository,
	outboxRepo outbox.Repository,
	lockManager lock.Manager,
	limitCounter limit.Counter,
	cfg config.TransferConfig,
	logger *slog.Logger,
) TransferService {
	return &TransferServiceImpl{
		db:           db,
		accountRepo:  accountRepo,
		transferRepo: transferRepo,
		ledgerRepo:   ledgerRepo,
		outboxRepo:   outboxRepo,
		lockManager:  lockManager,
		limitCounter: limitCounter,
		cfg:          cfg,
		logger:       logger,
	}
}

// Transfer executes one transfer command end to end:
// validation, ownership check, daily limit, ordered lock acquisition,
// then a single database transaction covering the idempotency check,
// balance mutations, ledger entries, transfer record, and outbox event.
func (s *TransferServiceImpl) Transfer(ctx context.Context, cmd *transfer.Command) (*transfer.Result, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if err := s.verifySourceOwnership(ctx, cmd); err != nil {
		return nil, err
	}

	// Limit check runs before any lock is taken so an over-limit request
	// never contends for accounts at all.
	if _, err := s.limitCounter.CheckAndRecord(ctx, cmd.UserID, cmd.Amount); err != nil {
		return nil, err
	}

	locks, err := s.lockManager.AcquireOrdered(ctx, cmd.FromAccountID, cmd.ToAccountID, s.cfg.SystemAccountID)
	if err != nil {
		return nil, err
	}
	defer s.lockManager.ReleaseAll(ctx, locks)

	var result *transfer.Result
	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		result, txErr = s.executeInTx(ctx, tx, cmd)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	if result.IdempotentReplay {
		s.logger.Info("Transfer replayed idempotently",
			"transfer_id", result.TransferID,
			"idempotency_key", result.IdempotencyKey,
		)
	} else {
		s.logger.Info("Transfer committed",
			"transfer_id", result.TransferID,
			"from_account_id", result.FromAccountID,
			"to_account_id", result.ToAccountID,
			"amount", result.Amount.String(),
		)
	}

	return result, nil
}

func (s *TransferServiceImpl) executeInTx(ctx context.Context, tx pgx.Tx, cmd *transfer.Command) (*transfer.Result, error) {
	transferRepo := s.transferRepo.WithTx(tx)
	accountRepo := s.accountRepo.WithTx(tx)
	ledgerRepo := s.ledgerRepo.WithTx(tx)
	outboxRepo := s.outboxRepo.WithTx(tx)

	// The idempotency lookup happens after the locks are held so
	// concurrent replays of the same key serialize here.
	existing, err := transferRepo.GetByIdempotencyKeyForUpdate(ctx, cmd.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if !existing.Matches(cmd) {
			return nil, transfer.ErrIdempotencyConflict
		}
		return transfer.ResultFrom(existing, true), nil
	}

	source, err := accountRepo.GetForUpdate(ctx, cmd.FromAccountID)
	if err != nil {
		return nil, err
	}
	destination, err := accountRepo.GetForUpdate(ctx, cmd.ToAccountID)
	if err != nil {
		return nil, err
	}
	systemAccount, err := accountRepo.GetForUpdate(ctx, s.cfg.SystemAccountID)
	if err != nil {
		return nil, err
	}

	if s.cfg.EnforceFrozen && source.IsFrozen() {
		return nil, account.ErrAccountFrozen
	}

	currency := cmd.NormalizedCurrency()
	if err := source.EnsureCurrency(currency); err != nil {
		return nil, err
	}
	if err := destination.EnsureCurrency(currency); err != nil {
		return nil, err
	}
	if err := systemAccount.EnsureCurrency(currency); err != nil {
		return nil, err
	}

	// round to the ledger's scale so a sub-cent fee either becomes a
	// representable amount or drops to zero and is skipped entirely
	feeAmount := cmd.Amount.Mul(s.cfg.FeePercent).Round(4)
	totalDebit := cmd.Amount.Add(feeAmount)

	if !source.CanDebit(totalDebit) {
		return nil, account.ErrInsufficientFunds
	}

	if err := source.Debit(totalDebit); err != nil {
		return nil, err
	}
	if err := destination.Credit(cmd.Amount); err != nil {
		return nil, err
	}
	if feeAmount.Sign() > 0 {
		if err := systemAccount.Credit(feeAmount); err != nil {
			return nil, err
		}
	}

	if err := accountRepo.UpdateBalance(ctx, source); err != nil {
		return nil, err
	}
	if err := accountRepo.UpdateBalance(ctx, destination); err != nil {
		return nil, err
	}
	if feeAmount.Sign() > 0 {
		if err := accountRepo.UpdateBalance(ctx, systemAccount); err != nil {
			return nil, err
		}
	}

	transferID := uuid.NewString()
	committed := transfer.Committed(transferID, cmd)
	if err := transferRepo.Create(ctx, committed); err != nil {
		return nil, err
	}

	if err := s.writeLedgerEntries(ctx, ledgerRepo, committed, feeAmount); err != nil {
		return nil, err
	}

	if err := s.writeOutboxEvent(ctx, outboxRepo, committed); err != nil {
		return nil, err
	}

	return transfer.ResultFrom(committed, false), nil
}

// writeLedgerEntries records the double-entry movements: principal debit
// and credit, and when a fee applies, the fee debit against the source
// and the matching credit to the system account. Debits and credits
// balance per transfer id.
func (s *TransferServiceImpl) writeLedgerEntries(ctx context.Context, repo ledger.Repository, t *transfer.Transfer, feeAmount decimal.Decimal) error {
	entries := []*ledger.Entry{
		ledger.Debit(t.TransferID, t.FromAccountID, t.Amount, t.Currency),
		ledger.Credit(t.TransferID, t.ToAccountID, t.Amount, t.Currency),
	}

	if feeAmount.Sign() > 0 {
		entries = append(entries,
			ledger.Debit(t.TransferID, t.FromAccountID, feeAmount, t.Currency),
			ledger.Credit(t.TransferID, s.cfg.SystemAccountID, feeAmount, t.Currency),
		)
	}

	for _, entry := range entries {
		if err := repo.Create(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func (s *TransferServiceImpl) writeOutboxEvent(ctx context.Context, repo outbox.Repository, t *transfer.Transfer) error {
	event := transfer.CompletedEventFrom(t)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize outbox event payload: %w", err)
	}

	return repo.Create(ctx, outbox.NewPending(
		transferAggregateType,
		t.TransferID,
		transfer.CompletedEventType,
		payload,
	))
}

// verifySourceOwnership rejects commands whose source account does not
// belong to the requesting user. Advisory read, intentionally unlocked.
func (s *TransferServiceImpl) verifySourceOwnership(ctx context.Context, cmd *transfer.Command) error {
	ownerID, err := s.accountRepo.GetOwnerID(ctx, cmd.FromAccountID)
	if err != nil {
		return err
	}
	if ownerID != cmd.UserID {
		return transfer.ErrNotOwner
	}
	return nil
}
