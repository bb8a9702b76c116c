package rounds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jakefrenzel/CrownWynn/internal/games"
	"github.com/jakefrenzel/CrownWynn/internal/store"
)

// StartMines debits the bet and opens a Mines round. The full mine layout
// is drawn once here, stored on the round, and never regenerated: the
// outcome is fixed and hash-committed before the first reveal.
func (s *Service) StartMines(ctx context.Context, userID string, bet decimal.Decimal, minesCount int) (*store.Round, error) {
	if minesCount < games.MinesMinCount || minesCount > games.MinesMaxCount {
		return nil, &ValidationError{
			Field:  "mines_count",
			Reason: fmt.Sprintf("must be between %d and %d", games.MinesMinCount, games.MinesMaxCount),
		}
	}
	if err := s.validateBet(bet); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.ensureNoActiveRound(ctx, userID); err != nil {
		return nil, err
	}

	pair, err := s.seeds.ActivePair(ctx, userID)
	if err != nil {
		return nil, err
	}

	outcome, err := games.MinePositions(pair.ServerSeed, pair.ClientSeed, pair.Nonce, minesCount)
	if err != nil {
		return nil, err
	}

	roundID := uuid.New().String()
	if err := s.ledger.Debit(ctx, userID, bet, roundID); err != nil {
		return nil, err
	}

	round := &store.Round{
		ID:             roundID,
		UserID:         userID,
		GameType:       store.GameMines,
		Status:         store.StatusActive,
		BetAmount:      bet,
		MinesCount:     minesCount,
		Outcome:        outcome,
		Revealed:       []int{},
		Multiplier:     decimal.NewFromInt(1),
		ServerSeed:     pair.ServerSeed,
		ServerSeedHash: pair.ServerSeedHash,
		ClientSeed:     pair.ClientSeed,
		Nonce:          pair.Nonce,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.db.CreateRound(ctx, round); err != nil {
		// the bet is already taken; hand it back under the same round ID
		if refundErr := s.ledger.Credit(ctx, userID, bet, roundID); refundErr != nil {
			s.logger.Printf("refund_failed round_id=%s user_id=%s err=%v", roundID, userID, refundErr)
		}
		return nil, fmt.Errorf("failed to create round: %w", err)
	}

	return round, nil
}

// RevealTile reveals one tile of an active Mines round. Hitting a mine
// busts the round; revealing the last safe tile auto-wins it at the current
// multiplier.
func (s *Service) RevealTile(ctx context.Context, userID, roundID string, tile int) (*store.Round, error) {
	if tile < 0 || tile >= games.MinesTotalTiles {
		return nil, &ValidationError{
			Field:  "tile_position",
			Reason: fmt.Sprintf("must be between 0 and %d", games.MinesTotalTiles-1),
		}
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	round, err := s.GetRound(ctx, userID, roundID)
	if err != nil {
		return nil, err
	}
	if round.Status != store.StatusActive {
		return nil, ErrRoundNotActive
	}
	if containsInt(round.Revealed, tile) {
		return nil, ErrAlreadyRevealed
	}

	pair, err := s.seeds.ActivePair(ctx, userID)
	if err != nil {
		return nil, err
	}

	if containsInt(round.Outcome, tile) {
		round.Status = store.StatusBusted
		round.Payout = decimal.Zero
		round.NetProfit = round.BetAmount.Neg()
		if err := s.settle(ctx, round, pair); err != nil {
			return round, err
		}
		return round, nil
	}

	round.Revealed = append(round.Revealed, tile)
	revealed := len(round.Revealed)
	round.Multiplier = decimal.NewFromFloat(games.MinesMultiplier(revealed, round.MinesCount, s.cfg.HouseEdge))

	if revealed == games.MinesTotalTiles-round.MinesCount {
		// no safe tiles remain; forced cashout
		round.Status = store.StatusAutoWon
		round.Payout = round.BetAmount.Mul(round.Multiplier).Round(2)
		round.NetProfit = round.Payout.Sub(round.BetAmount)
		if err := s.settle(ctx, round, pair); err != nil {
			return round, err
		}
		return round, nil
	}

	if err := s.db.UpdateRound(ctx, round); err != nil {
		return nil, fmt.Errorf("failed to persist reveal: %w", err)
	}
	return round, nil
}

// Cashout settles an active Mines round at its current multiplier. At least
// one tile must have been revealed.
func (s *Service) Cashout(ctx context.Context, userID, roundID string) (*store.Round, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	round, err := s.GetRound(ctx, userID, roundID)
	if err != nil {
		return nil, err
	}
	if round.Status != store.StatusActive {
		return nil, ErrRoundNotActive
	}
	if len(round.Revealed) == 0 {
		return nil, ErrNothingToCashOut
	}

	pair, err := s.seeds.ActivePair(ctx, userID)
	if err != nil {
		return nil, err
	}

	round.Status = store.StatusCashedOut
	round.Payout = round.BetAmount.Mul(round.Multiplier).Round(2)
	round.NetProfit = round.Payout.Sub(round.BetAmount)
	if err := s.settle(ctx, round, pair); err != nil {
		return round, err
	}
	return round, nil
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
