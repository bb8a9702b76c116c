package rounds

import (
	"errors"
	"fmt"
)

// Conflict errors: rejected with no side effects.
var (
	ErrRoundNotFound    = errors.New("round not found")
	ErrRoundNotActive   = errors.New("round not active")
	ErrAlreadyRevealed  = errors.New("tile already revealed")
	ErrNothingToCashOut = errors.New("nothing to cash out")
)

// ErrSettlementPending means the round reached a terminal state but its
// ledger credit has not landed yet. The outcome is final; the credit is
// retried until it succeeds.
var ErrSettlementPending = errors.New("settlement pending")

// ValidationError reports an input rejected before any state mutation; no
// ledger call is ever attempted for it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
