package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/bank-transfer-engine/internal/api/middleware"
	"github.com/bank-transfer-engine/internal/domain/account"
	"github.com/bank-transfer-engine/internal/domain/transfer"
	"github.com/bank-transfer-engine/internal/limit"
	"github.com/bank-transfer-engine/internal/lock"
	"github.com/bank-transfer-engine/internal/service"
)

// IdempotencyKeyHeader must be supplied by the client on every transfer
// request so retries can be replayed instead of re-executed.
const IdempotencyKeyHeader = "Idempotency-Key"

// TransferHandler handles HTTP requests for transfer operations
type TransferHandler struct {
	transferService service.TransferService
	logger          *slog.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(logger *slog.Logger, transferService service.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
		logger:          logger,
	}
}

// Create executes a funds transfer. A replayed idempotency key returns
// the originally committed transfer with 200 instead of 201.
func (h *TransferHandler) Create(c *gin.Context) {
	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
	if idempotencyKey == "" {
		RespondBadRequest(c, "Missing "+IdempotencyKeyHeader+" header")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.logger.Error("Invalid transfer amount", "amount", req.Amount, "error", err)
		RespondBadRequest(c, "Invalid amount")
		return
	}

	cmd := &transfer.Command{
		UserID:         middleware.GetUserID(c),
		IdempotencyKey: idempotencyKey,
		FromAccountID:  req.FromAccountID,
		ToAccountID:    req.ToAccountID,
		Amount:         amount,
		Currency:       req.Currency,
		RequestedAt:    time.Now().UTC(),
	}

	result, err := h.transferService.Transfer(c.Request.Context(), cmd)
	if err != nil {
		h.respondTransferError(c, cmd, err)
		return
	}

	response := mapResultToResponse(result)
	if result.IdempotentReplay {
		RespondOK(c, response)
		return
	}
	RespondCreated(c, response)
}

// respondTransferError maps orchestrator errors onto HTTP statuses
func (h *TransferHandler) respondTransferError(c *gin.Context, cmd *transfer.Command, err error) {
	var validationErr transfer.ValidationError
	var notFoundErr account.ErrAccountNotFound
	var duplicateErr transfer.ErrDuplicateTransfer

	switch {
	case errors.As(err, &validationErr):
		RespondBadRequest(c, validationErr.Error())
	case errors.As(err, &notFoundErr):
		RespondNotFound(c, notFoundErr.Error())
	case errors.Is(err, transfer.ErrNotOwner):
		RespondForbidden(c, "NOT_OWNER", err.Error())
	case errors.Is(err, account.ErrAccountFrozen):
		RespondForbidden(c, "ACCOUNT_FROZEN", err.Error())
	case errors.Is(err, transfer.ErrIdempotencyConflict):
		RespondConflict(c, "IDEMPOTENCY_CONFLICT", err.Error())
	case errors.As(err, &duplicateErr):
		// unique-index backstop when two requests with the same key race
		// past the row lookup; the loser reports the same conflict
		RespondConflict(c, "IDEMPOTENCY_CONFLICT", duplicateErr.Error())
	case errors.Is(err, account.ErrInsufficientFunds):
		RespondUnprocessable(c, "INSUFFICIENT_FUNDS", err.Error())
	case errors.Is(err, account.ErrCurrencyMismatch):
		RespondUnprocessable(c, "CURRENCY_MISMATCH", err.Error())
	case errors.Is(err, limit.ErrLimitExceeded):
		RespondTooManyRequests(c, err.Error())
	case errors.Is(err, lock.ErrLockNotAcquired):
		RespondServiceUnavailable(c, "Accounts are busy, retry the request with the same "+IdempotencyKeyHeader)
	default:
		h.logger.Error("Transfer failed",
			"from_account_id", cmd.FromAccountID,
			"to_account_id", cmd.ToAccountID,
			"idempotency_key", cmd.IdempotencyKey,
			"error", err)
		RespondInternalError(c)
	}
}

// mapResultToResponse maps an orchestrator result to a transfer response DTO
func mapResultToResponse(result *transfer.Result) TransferResponse {
	return TransferResponse{
		TransferID:     result.TransferID,
		IdempotencyKey: result.IdempotencyKey,
		FromAccountID:  result.FromAccountID,
		ToAccountID:    result.ToAccountID,
		Amount:         result.Amount,
		Currency:       result.Currency,
		Status:         string(result.Status),
		CommittedAt:    result.CommittedAt.Format(time.RFC3339),
	}
}
