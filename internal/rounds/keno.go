package rounds

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jakefrenzel/CrownWynn/internal/games"
	"github.com/jakefrenzel/CrownWynn/internal/seeds"
	"github.com/jakefrenzel/CrownWynn/internal/store"
)

// StartKeno plays a whole Keno round in one shot: debit, ten-number draw,
// paytable lookup and settlement happen atomically, so the round is born
// terminal and the seeds are disclosed immediately.
func (s *Service) StartKeno(ctx context.Context, userID string, bet decimal.Decimal, selected []int) (*store.Round, error) {
	if err := validateKenoSelection(selected); err != nil {
		return nil, err
	}
	if err := s.validateBet(bet); err != nil {
		return nil, err
	}

	picks := append([]int(nil), selected...)
	sort.Ints(picks)

	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.ensureNoActiveRound(ctx, userID); err != nil {
		return nil, err
	}

	pair, err := s.seeds.ActivePair(ctx, userID)
	if err != nil {
		return nil, err
	}

	drawn, err := games.KenoDraw(pair.ServerSeed, pair.ClientSeed, pair.Nonce)
	if err != nil {
		return nil, err
	}

	roundID := uuid.New().String()
	if err := s.ledger.Debit(ctx, userID, bet, roundID); err != nil {
		return nil, err
	}

	matches := games.CountMatches(picks, drawn)
	multiplier := decimal.NewFromFloat(games.KenoMultiplier(len(picks), matches))
	payout := bet.Mul(multiplier).Round(2)
	now := time.Now().UTC()

	round := &store.Round{
		ID:              roundID,
		UserID:          userID,
		GameType:        store.GameKeno,
		Status:          store.StatusSettled,
		BetAmount:       bet,
		SelectedNumbers: picks,
		Outcome:         drawn,
		Matches:         matches,
		Multiplier:      multiplier,
		Payout:          payout,
		NetProfit:       payout.Sub(bet),
		ServerSeed:      pair.ServerSeed,
		ServerSeedHash:  pair.ServerSeedHash,
		ClientSeed:      pair.ClientSeed,
		Nonce:           pair.Nonce,
		PendingCredit:   payout.IsPositive(),
		CreatedAt:       now,
		CompletedAt:     &now,
	}

	// round insert and nonce consumption commit together: a failure here
	// leaves no disclosed outcome behind, so replaying the nonce is safe
	seeds.Consume(pair)
	if err := s.db.CreateSettledRound(ctx, round, pair); err != nil {
		if refundErr := s.ledger.Credit(ctx, userID, bet, roundID); refundErr != nil {
			s.logger.Printf("refund_failed round_id=%s user_id=%s err=%v", roundID, userID, refundErr)
		}
		return nil, fmt.Errorf("failed to create round: %w", err)
	}

	if round.PendingCredit {
		if err := s.credit(ctx, round); err != nil {
			return round, err
		}
	}
	return round, nil
}

func validateKenoSelection(selected []int) error {
	if len(selected) < games.KenoMinPicks || len(selected) > games.KenoMaxPicks {
		return &ValidationError{
			Field:  "selected_numbers",
			Reason: fmt.Sprintf("must select between %d and %d numbers", games.KenoMinPicks, games.KenoMaxPicks),
		}
	}

	seen := make(map[int]bool, len(selected))
	for _, n := range selected {
		if n < games.KenoMinNumber || n > games.KenoMaxNumber {
			return &ValidationError{
				Field:  "selected_numbers",
				Reason: fmt.Sprintf("numbers must be between %d and %d", games.KenoMinNumber, games.KenoMaxNumber),
			}
		}
		if seen[n] {
			return &ValidationError{Field: "selected_numbers", Reason: "duplicate numbers are not allowed"}
		}
		seen[n] = true
	}
	return nil
}
