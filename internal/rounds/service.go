// Package rounds holds the per-round session state machines for Mines and
// Keno: bet debit, one-shot outcome generation, incremental reveal, and
// exactly-once settlement against the ledger.
package rounds

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/jakefrenzel/CrownWynn/internal/ledger"
	"github.com/jakefrenzel/CrownWynn/internal/seeds"
	"github.com/jakefrenzel/CrownWynn/internal/store"
	"github.com/jakefrenzel/CrownWynn/internal/userlock"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	creditAttempts  = 4
	creditBaseDelay = 100 * time.Millisecond
)

// Config carries the betting limits and the Mines house edge.
type Config struct {
	MinBet    decimal.Decimal
	MaxBet    decimal.Decimal
	HouseEdge float64
}

// Service orchestrates rounds. All state transitions for a user serialize
// on the shared per-user lock; the outcome engine itself is pure and needs
// none.
type Service struct {
	db     store.DB
	ledger ledger.Ledger
	seeds  *seeds.Manager
	locks  *userlock.Registry
	cfg    Config
	logger *log.Logger
}

// NewService wires a round service.
func NewService(db store.DB, lg ledger.Ledger, sm *seeds.Manager, locks *userlock.Registry, cfg Config, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(os.Stdout, "[ROUNDS] ", log.LstdFlags)
	}
	return &Service{db: db, ledger: lg, seeds: sm, locks: locks, cfg: cfg, logger: logger}
}

// ActiveRound returns the user's active round, or nil when none exists.
func (s *Service) ActiveRound(ctx context.Context, userID string) (*store.Round, error) {
	round, err := s.db.ActiveRound(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return round, err
}

// History returns the user's most recent rounds, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]store.Round, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.db.ListRounds(ctx, userID, limit)
}

// GetRound returns a round owned by the user.
func (s *Service) GetRound(ctx context.Context, userID, roundID string) (*store.Round, error) {
	round, err := s.db.GetRound(ctx, roundID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRoundNotFound
	}
	if err != nil {
		return nil, err
	}
	if round.UserID != userID {
		return nil, ErrRoundNotFound
	}
	return round, nil
}

// validateBet enforces amount, format and limit rules before any state
// mutation.
func (s *Service) validateBet(bet decimal.Decimal) error {
	// compare values, not representations: "1.000" is a valid 2-decimal
	// amount even though its exponent is -3
	if !bet.Equal(bet.Truncate(2)) {
		return &ValidationError{Field: "bet_amount", Reason: "at most 2 decimal places"}
	}
	if bet.LessThan(s.cfg.MinBet) {
		return &ValidationError{Field: "bet_amount", Reason: fmt.Sprintf("must be at least %s", s.cfg.MinBet.StringFixed(2))}
	}
	if bet.GreaterThan(s.cfg.MaxBet) {
		return &ValidationError{Field: "bet_amount", Reason: fmt.Sprintf("cannot exceed %s", s.cfg.MaxBet.StringFixed(2))}
	}
	return nil
}

// ensureNoActiveRound rejects a new round while one is in flight. Callers
// hold the user lock.
func (s *Service) ensureNoActiveRound(ctx context.Context, userID string) error {
	_, err := s.db.ActiveRound(ctx, userID)
	if err == nil {
		return seeds.ErrRoundInProgress
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// settle drives a round through its terminal transition: stamp completion,
// advance the seed pair counters in the same store transaction, then credit
// the payout. A failed credit leaves the round terminal with its
// pending-credit flag set and surfaces ErrSettlementPending; the outcome is
// already final and must never be re-drawn.
func (s *Service) settle(ctx context.Context, round *store.Round, pair *store.SeedPair) error {
	now := time.Now().UTC()
	round.CompletedAt = &now
	round.PendingCredit = round.Payout.IsPositive()

	seeds.Consume(pair)
	if err := s.db.SettleRound(ctx, round, pair); err != nil {
		return fmt.Errorf("failed to persist settlement: %w", err)
	}

	if !round.PendingCredit {
		return nil
	}
	return s.credit(ctx, round)
}

// credit pays the round with retries and clears the pending flag.
func (s *Service) credit(ctx context.Context, round *store.Round) error {
	backoff := retry.WithMaxRetries(creditAttempts, retry.NewExponential(creditBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.ledger.Credit(ctx, round.UserID, round.Payout, round.ID); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		s.logger.Printf("credit_failed round_id=%s user_id=%s payout=%s err=%v",
			round.ID, round.UserID, round.Payout.StringFixed(2), err)
		return ErrSettlementPending
	}

	round.PendingCredit = false
	if err := s.db.UpdateRound(ctx, round); err != nil {
		return fmt.Errorf("failed to clear pending credit: %w", err)
	}
	return nil
}

// ResolvePendingCredits retries the ledger credit of settled rounds whose
// payout has not landed. Credits are idempotent per round, so sweeping a
// round that meanwhile succeeded is harmless. Returns the number of rounds
// resolved.
func (s *Service) ResolvePendingCredits(ctx context.Context) (int, error) {
	pending, err := s.db.PendingCreditRounds(ctx, 100)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for i := range pending {
		round := &pending[i]
		unlock := s.locks.Lock(round.UserID)
		err := s.credit(ctx, round)
		unlock()
		if err != nil {
			s.logger.Printf("pending_credit_unresolved round_id=%s err=%v", round.ID, err)
			continue
		}
		resolved++
	}
	return resolved, nil
}
