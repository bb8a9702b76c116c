package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryLedger is an in-memory Ledger used by tests and throwaway
// environments. FailCredits makes every Credit fail, for exercising the
// pending-credit settlement path.
type MemoryLedger struct {
	mu       sync.Mutex
	opening  decimal.Decimal
	balances map[string]decimal.Decimal
	applied  map[string]bool

	FailCredits bool
	Credits     int
}

// NewMemoryLedger creates a ledger with the given opening balance.
func NewMemoryLedger(openingBalance decimal.Decimal) *MemoryLedger {
	return &MemoryLedger{
		opening:  openingBalance,
		balances: make(map[string]decimal.Decimal),
		applied:  make(map[string]bool),
	}
}

func (l *MemoryLedger) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(userID), nil
}

func (l *MemoryLedger) Debit(ctx context.Context, userID string, amount decimal.Decimal, roundID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := roundID + ":" + EntryBet
	if l.applied[key] {
		return nil
	}

	next := l.balance(userID).Sub(amount)
	if next.IsNegative() {
		return ErrInsufficientFunds
	}

	l.applied[key] = true
	l.balances[userID] = next
	return nil
}

func (l *MemoryLedger) Credit(ctx context.Context, userID string, amount decimal.Decimal, roundID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.FailCredits {
		return errors.New("ledger: credit unavailable")
	}

	key := roundID + ":" + EntryWin
	if l.applied[key] {
		return nil
	}

	l.applied[key] = true
	l.Credits++
	l.balances[userID] = l.balance(userID).Add(amount)
	return nil
}

func (l *MemoryLedger) balance(userID string) decimal.Decimal {
	if b, ok := l.balances[userID]; ok {
		return b
	}
	l.balances[userID] = l.opening
	return l.opening
}
