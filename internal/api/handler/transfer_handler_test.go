package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bank-transfer-engine/internal/api/middleware"
	"github.com/bank-transfer-engine/internal/domain/account"
	"github.com/bank-transfer-engine/internal/domain/transfer"
	"github.com/bank-transfer-engine/internal/limit"
	"github.com/bank-transfer-engine/internal/lock"
)

type MockTransferService struct {
	mock.Mock
}

func (m *MockTransferService) Transfer(ctx context.Context, cmd *transfer.Command) (*transfer.Result, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.Result), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func transferRouter(handler *TransferHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/transfers", middleware.Identity(), handler.Create)
	return router
}

func performTransferRequest(router *gin.Engine, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	jsonBody, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, "/transfers", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func defaultHeaders() map[string]string {
	return map[string]string{
		middleware.UserIDHeader: "user-1",
		IdempotencyKeyHeader:    "key-1",
	}
}

func validTransferRequest() CreateTransferRequest {
	return CreateTransferRequest{
		FromAccountID: 1,
		ToAccountID:   2,
		Amount:        "100",
		Currency:      "USD",
	}
}

func TestTransferHandler_Create_Fresh(t *testing.T) {
	mockService := new(MockTransferService)
	handler := NewTransferHandler(testLogger(), mockService)
	router := transferRouter(handler)

	cmd := &transfer.Command{
		UserID:         "user-1",
		IdempotencyKey: "key-1",
		FromAccountID:  1,
		ToAccountID:    2,
		Amount:         decimal.RequireFromString("100"),
		Currency:       "USD",
	}
	result := transfer.ResultFrom(transfer.Committed("transfer-1", cmd), false)

	mockService.On("Transfer", mock.Anything, mock.MatchedBy(func(got *transfer.Command) bool {
		return got.UserID == "user-1" &&
			got.IdempotencyKey == "key-1" &&
			got.FromAccountID == 1 &&
			got.ToAccountID == 2 &&
			got.Amount.Equal(decimal.RequireFromString("100")) &&
			got.Currency == "USD"
	})).Return(result, nil)

	rr := performTransferRequest(router, validTransferRequest(), defaultHeaders())

	assert.Equal(t, http.StatusCreated, rr.Code)

	var response struct {
		Data TransferResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "transfer-1", response.Data.TransferID)
	assert.Equal(t, "COMMITTED", response.Data.Status)
	mockService.AssertExpectations(t)
}

func TestTransferHandler_Create_IdempotentReplay(t *testing.T) {
	mockService := new(MockTransferService)
	handler := NewTransferHandler(testLogger(), mockService)
	router := transferRouter(handler)

	cmd := &transfer.Command{
		UserID:         "user-1",
		IdempotencyKey: "key-1",
		FromAccountID:  1,
		ToAccountID:    2,
		Amount:         decimal.RequireFromString("100"),
		Currency:       "USD",
	}
	result := transfer.ResultFrom(transfer.Committed("transfer-1", cmd), true)

	mockService.On("Transfer", mock.Anything, mock.Anything).Return(result, nil)

	rr := performTransferRequest(router, validTransferRequest(), defaultHeaders())

	// A replay returns the original commit with 200 instead of 201.
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestTransferHandler_Create_MissingIdentity(t *testing.T) {
	mockService := new(MockTransferService)
	handler := NewTransferHandler(testLogger(), mockService)
	router := transferRouter(handler)

	rr := performTransferRequest(router, validTransferRequest(), map[string]string{
		IdempotencyKeyHeader: "key-1",
	})

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	mockService.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
}

func TestTransferHandler_Create_MissingIdempotencyKey(t *testing.T) {
	mockService := new(MockTransferService)
	handler := NewTransferHandler(testLogger(), mockService)
	router := transferRouter(handler)

	rr := performTransferRequest(router, validTransferRequest(), map[string]string{
		middleware.UserIDHeader: "user-1",
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	mockService.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
}

func TestTransferHandler_Create_InvalidAmount(t *testing.T) {
	mockService := new(MockTransferService)
	handler := NewTransferHandler(testLogger(), mockService)
	router := transferRouter(handler)

	reqBody := validTransferRequest()
	reqBody.Amount = "not-a-number"

	rr := performTransferRequest(router, reqBody, defaultHeaders())

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	mockService.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything)
}

func TestTransferHandler_Create_ErrorMapping(t *testing.T) {
	tests := []struct {
		name           string
		serviceError   error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "validation error",
			serviceError:   transfer.ValidationError{Field: "amount", Reason: "must be positive"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
		{
			name:           "account not found",
			serviceError:   account.ErrAccountNotFound{AccountID: 42},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NOT_FOUND",
		},
		{
			name:           "not owner",
			serviceError:   transfer.ErrNotOwner,
			expectedStatus: http.StatusForbidden,
			expectedCode:   "NOT_OWNER",
		},
		{
			name:           "frozen source account",
			serviceError:   account.ErrAccountFrozen,
			expectedStatus: http.StatusForbidden,
			expectedCode:   "ACCOUNT_FROZEN",
		},
		{
			name:           "idempotency conflict",
			serviceError:   transfer.ErrIdempotencyConflict,
			expectedStatus: http.StatusConflict,
			expectedCode:   "IDEMPOTENCY_CONFLICT",
		},
		{
			name:           "duplicate key lost the insert race",
			serviceError:   transfer.ErrDuplicateTransfer{IdempotencyKey: "key-1"},
			expectedStatus: http.StatusConflict,
			expectedCode:   "IDEMPOTENCY_CONFLICT",
		},
		{
			name:           "insufficient funds",
			serviceError:   account.ErrInsufficientFunds,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   "INSUFFICIENT_FUNDS",
		},
		{
			name:           "currency mismatch",
			serviceError:   account.ErrCurrencyMismatch,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   "CURRENCY_MISMATCH",
		},
		{
			name:           "daily limit exceeded",
			serviceError:   limit.ErrLimitExceeded,
			expectedStatus: http.StatusTooManyRequests,
			expectedCode:   "LIMIT_EXCEEDED",
		},
		{
			name:           "lock contention",
			serviceError:   lock.ErrLockNotAcquired,
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   "TRY_AGAIN_LATER",
		},
		{
			name:           "unexpected error",
			serviceError:   assert.AnError,
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "INTERNAL_SERVER_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTransferService)
			handler := NewTransferHandler(testLogger(), mockService)
			router := transferRouter(handler)

			mockService.On("Transfer", mock.Anything, mock.Anything).Return(nil, tt.serviceError)

			rr := performTransferRequest(router, validTransferRequest(), defaultHeaders())

			assert.Equal(t, tt.expectedStatus, rr.Code)

			var response Response
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
			require.NotNil(t, response.Error)
			assert.Equal(t, tt.expectedCode, response.Error.Code)
		})
	}
}
