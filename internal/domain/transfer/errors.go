package transfer

import "errors"

// Orchestrator-level errors, mapped onto HTTP statuses at the edge
var (
	ErrNotOwner            = errors.New("source account does not belong to authenticated user")
	ErrIdempotencyConflict = errors.New("idempotency key was already used with a different transfer payload")
)

// ValidationError reports a malformed command field
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return "invalid transfer command: " + e.Field + " " + e.Reason
}
