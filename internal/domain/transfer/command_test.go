package transfer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validCommand() *Command {
	return &Command{
		UserID:         "user-1",
		IdempotencyKey: "key-1",
		FromAccountID:  1,
		ToAccountID:    2,
		Amount:         decimal.RequireFromString("100"),
		Currency:       "USD",
	}
}

func TestCommand_Validate(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(cmd *Command)
		expectedField string
	}{
		{
			name:   "valid command",
			mutate: func(cmd *Command) {},
		},
		{
			name:   "lowercase currency is accepted",
			mutate: func(cmd *Command) { cmd.Currency = "usd" },
		},
		{
			name:          "missing user id",
			mutate:        func(cmd *Command) { cmd.UserID = "  " },
			expectedField: "user_id",
		},
		{
			name:          "missing idempotency key",
			mutate:        func(cmd *Command) { cmd.IdempotencyKey = "" },
			expectedField: "idempotency_key",
		},
		{
			name:          "missing source account",
			mutate:        func(cmd *Command) { cmd.FromAccountID = 0 },
			expectedField: "account_id",
		},
		{
			name:          "negative destination account",
			mutate:        func(cmd *Command) { cmd.ToAccountID = -4 },
			expectedField: "account_id",
		},
		{
			name:          "same source and destination",
			mutate:        func(cmd *Command) { cmd.ToAccountID = cmd.FromAccountID },
			expectedField: "to_account_id",
		},
		{
			name:          "zero amount",
			mutate:        func(cmd *Command) { cmd.Amount = decimal.Zero },
			expectedField: "amount",
		},
		{
			name:          "negative amount",
			mutate:        func(cmd *Command) { cmd.Amount = decimal.RequireFromString("-10") },
			expectedField: "amount",
		},
		{
			name:   "amount at minimum representable scale",
			mutate: func(cmd *Command) { cmd.Amount = decimal.RequireFromString("0.0001") },
		},
		{
			name:   "trailing zeros beyond scale four are accepted",
			mutate: func(cmd *Command) { cmd.Amount = decimal.RequireFromString("10.120000") },
		},
		{
			name:          "amount finer than scale four",
			mutate:        func(cmd *Command) { cmd.Amount = decimal.RequireFromString("0.00001") },
			expectedField: "amount",
		},
		{
			name:          "sub-scale fraction on a large amount",
			mutate:        func(cmd *Command) { cmd.Amount = decimal.RequireFromString("100.12345") },
			expectedField: "amount",
		},
		{
			name:          "currency too short",
			mutate:        func(cmd *Command) { cmd.Currency = "US" },
			expectedField: "currency",
		},
		{
			name:          "currency with digits",
			mutate:        func(cmd *Command) { cmd.Currency = "U5D" },
			expectedField: "currency",
		},
		{
			name:          "currency with whitespace",
			mutate:        func(cmd *Command) { cmd.Currency = "US " },
			expectedField: "currency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := validCommand()
			tt.mutate(cmd)

			err := cmd.Validate()

			if tt.expectedField == "" {
				assert.NoError(t, err)
				return
			}

			var validationErr ValidationError
			assert.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.expectedField, validationErr.Field)
		})
	}
}

func TestCommand_NormalizedCurrency(t *testing.T) {
	cmd := validCommand()
	cmd.Currency = "usd"

	assert.Equal(t, "USD", cmd.NormalizedCurrency())
}
