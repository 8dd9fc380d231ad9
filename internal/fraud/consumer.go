// Package fraud reacts to alerts from the downstream fraud-detection
// pipeline by freezing the flagged user's accounts. Frozen accounts can
// still receive funds but are rejected as transfer sources.
package fraud

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/bank-transfer-engine/internal/domain/account"
)

// Alert is the payload published on the fraud alerts topic
type Alert struct {
	UserID string `json:"userId"`
}

// AlertHandler freezes accounts in response to fraud alerts
type AlertHandler struct {
	accountRepo account.Repository
	logger      *slog.Logger
}

// NewAlertHandler creates a fraud alert handler
func NewAlertHandler(accountRepo account.Repository, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// HandleMessage processes one fraud alert. Malformed alerts are logged
// and dropped; returning an error would only make the broker redeliver
// a message that can never parse.
func (h *AlertHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var alert Alert
	if err := json.Unmarshal(value, &alert); err != nil {
		h.logger.Warn("Failed to parse fraud alert payload", "payload", string(value), "error", err)
		return nil
	}

	if alert.UserID == "" {
		h.logger.Warn("Received fraud alert without userId", "payload", string(value))
		return nil
	}

	frozen, err := h.accountRepo.FreezeByUserID(ctx, alert.UserID)
	if err != nil {
		return err // not committed, redelivered
	}

	h.logger.Info("Frozen accounts due to fraud alert",
		"user_id", alert.UserID,
		"accounts_frozen", frozen,
	)
	return nil
}
