// Package interest credits daily interest to active accounts. Each
// credit is an ordinary transfer from the system account, so it flows
// through the same locking, ledger, and outbox machinery as any other
// funds movement.
package interest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bank-transfer-engine/internal/config"
	"github.com/bank-transfer-engine/internal/domain/account"
	"github.com/bank-transfer-engine/internal/domain/transfer"
	"github.com/bank-transfer-engine/internal/service"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"
)

// SystemUserID is the identity interest transfers run under
const SystemUserID = "SYSTEM"

var daysInYear = decimal.NewFromInt(365)

// Accruer runs the periodic interest sweep
type Accruer struct {
	accountRepo     account.Repository
	transferService service.TransferService
	pool            *ants.Pool
	logger          *slog.Logger
	annualRate      decimal.Decimal
	systemAccountID int64
	sweepInterval   time.Duration
}

// NewAccruer creates the interest accrual sweep with a bounded worker
// pool so a large book does not serialize behind one goroutine.
func NewAccruer(
	cfg *config.InterestConfig,
	transferCfg *config.TransferConfig,
	accountRepo account.Repository,
	transferService service.TransferService,
	logger *slog.Logger,
) (*Accruer, error) {
	pool, err := ants.NewPool(cfg.WorkerPoolSize)
	if err != nil {
		return nil, err
	}

	return &Accruer{
		accountRepo:     accountRepo,
		transferService: transferService,
		pool:            pool,
		logger:          logger,
		annualRate:      cfg.AnnualRate,
		systemAccountID: transferCfg.SystemAccountID,
		sweepInterval:   cfg.SweepInterval,
	}, nil
}

// Start runs sweeps on the configured interval until ctx is canceled
func (a *Accruer) Start(ctx context.Context) {
	a.logger.Info("Starting interest accrual",
		"sweep_interval", a.sweepInterval.String(),
		"annual_rate", a.annualRate.String(),
	)

	ticker := time.NewTicker(a.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Interest accrual stopping due to context cancellation.")
			return
		case <-ticker.C:
			a.RunSweep(ctx)
		}
	}
}

// RunSweep credits one day of interest to every active account. Failures
// are per-account: one rejected transfer never aborts the sweep.
func (a *Accruer) RunSweep(ctx context.Context) {
	accounts, err := a.accountRepo.ListByStatus(ctx, account.StatusActive)
	if err != nil {
		a.logger.Error("Failed to list active accounts for interest sweep", "error", err)
		return
	}

	var wg sync.WaitGroup
	for _, acc := range accounts {
		if acc.ID == a.systemAccountID {
			continue
		}

		amount := DailyInterest(acc.Balance, a.annualRate)
		if amount.Sign() <= 0 {
			continue
		}

		acc := acc
		wg.Add(1)
		submitErr := a.pool.Submit(func() {
			defer wg.Done()
			a.creditInterest(ctx, acc, amount)
		})
		if submitErr != nil {
			wg.Done()
			a.logger.Error("Failed to submit interest credit to worker pool",
				"account_id", acc.ID,
				"error", submitErr,
			)
		}
	}
	wg.Wait()
}

func (a *Accruer) creditInterest(ctx context.Context, acc *account.Account, amount decimal.Decimal) {
	cmd := &transfer.Command{
		UserID:         SystemUserID,
		IdempotencyKey: uuid.NewString(),
		FromAccountID:  a.systemAccountID,
		ToAccountID:    acc.ID,
		Amount:         amount,
		Currency:       acc.Currency,
		RequestedAt:    time.Now().UTC(),
	}

	if _, err := a.transferService.Transfer(ctx, cmd); err != nil {
		a.logger.Error("Interest credit failed",
			"account_id", acc.ID,
			"amount", amount.String(),
			"error", err,
		)
	}
}

// Shutdown releases the worker pool
func (a *Accruer) Shutdown() {
	a.pool.Release()
}

// DailyInterest computes balance × annualRate ÷ 365 at ledger scale
func DailyInterest(balance, annualRate decimal.Decimal) decimal.Decimal {
	return balance.Mul(annualRate).Div(daysInYear).Round(4)
}
