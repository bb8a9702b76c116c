// Package ledger is the atomic balance collaborator. Every implementation
// must make Debit and Credit idempotent per round ID so a settlement can be
// retried safely.
package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInsufficientFunds is returned by Debit when the balance cannot cover
// the amount. No state changes on rejection.
var ErrInsufficientFunds = errors.New("ledger: insufficient funds")

// Entry kinds recorded against a round.
const (
	EntryBet = "bet"
	EntryWin = "win"
)

// Ledger moves funds atomically. Debit takes the bet at round start; Credit
// pays the settlement. Applying the same (roundID, kind) twice is a no-op.
type Ledger interface {
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
	Debit(ctx context.Context, userID string, amount decimal.Decimal, roundID string) error
	Credit(ctx context.Context, userID string, amount decimal.Decimal, roundID string) error
}
