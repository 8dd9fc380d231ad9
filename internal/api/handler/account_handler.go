package handler

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bank-transfer-engine/internal/api/middleware"
	"github.com/bank-transfer-engine/internal/domain/account"
	"github.com/bank-transfer-engine/internal/domain/ledger"
	"github.com/bank-transfer-engine/internal/domain/transfer"
	"github.com/bank-transfer-engine/internal/service"
)

// AccountHandler handles HTTP requests for account queries
type AccountHandler struct {
	accountQueries service.AccountQueryService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountQueries service.AccountQueryService) *AccountHandler {
	return &AccountHandler{
		accountQueries: accountQueries,
		logger:         logger,
	}
}

// List returns the accounts owned by the authenticated user
func (h *AccountHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	accounts, err := h.accountQueries.GetUserAccounts(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list accounts", "user_id", userID, "error", err)
		RespondInternalError(c)
		return
	}

	response := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		response = append(response, mapAccountToResponse(acc))
	}

	RespondOK(c, response)
}

// GetHistory returns the ledger entries of one of the user's accounts,
// newest first. Accounts owned by other users come back as 404 so the
// endpoint does not leak which account ids exist.
func (h *AccountHandler) GetHistory(c *gin.Context) {
	idParam := c.Param("id")
	accountID, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || accountID <= 0 {
		h.logger.Error("Invalid account ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	userID := middleware.GetUserID(c)

	entries, err := h.accountQueries.GetAccountHistory(c.Request.Context(), userID, accountID)
	if err != nil {
		var notFoundErr account.ErrAccountNotFound
		switch {
		case errors.As(err, &notFoundErr), errors.Is(err, transfer.ErrNotOwner):
			RespondNotFound(c, "Account not found")
		default:
			h.logger.Error("Failed to get account history", "account_id", accountID, "error", err)
			RespondInternalError(c)
		}
		return
	}

	response := make([]LedgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, mapLedgerEntryToResponse(entry))
	}

	RespondOK(c, response)
}

// mapAccountToResponse maps a domain account to an account response DTO
func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID,
		UserID:    acc.UserID,
		Currency:  acc.Currency,
		Balance:   acc.Balance,
		Status:    string(acc.Status),
		UpdatedAt: acc.UpdatedAt.Format(time.RFC3339),
	}
}

// mapLedgerEntryToResponse maps a ledger entry to a response DTO
func mapLedgerEntryToResponse(entry *ledger.Entry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:         entry.ID.String(),
		TransferID: entry.TransferID,
		AccountID:  entry.AccountID,
		Type:       string(entry.Type),
		Amount:     entry.Amount,
		Currency:   entry.Currency,
		CreatedAt:  entry.CreatedAt.Format(time.RFC3339),
	}
}
