package api

import (
	"time"

	"github.com/jakefrenzel/CrownWynn/internal/store"
)

// RoundView is the wire shape of a round. Seed material and the hidden
// outcome are only disclosed once the round is terminal, so an active Mines
// board never leaks its mine layout.
type RoundView struct {
	ID              string `json:"id"`
	GameType        string `json:"game_type"`
	Status          string `json:"status"`
	BetAmount       string `json:"bet_amount"`
	MinesCount      int    `json:"mines_count,omitempty"`
	SelectedNumbers []int  `json:"selected_numbers,omitempty"`
	Revealed        []int  `json:"revealed,omitempty"`
	Outcome         []int  `json:"outcome,omitempty"`
	Matches         int    `json:"matches,omitempty"`
	Multiplier      string `json:"multiplier"`
	Payout          string `json:"payout"`
	NetProfit       string `json:"net_profit"`
	ServerSeed      string `json:"server_seed,omitempty"`
	ServerSeedHash  string `json:"server_seed_hash"`
	ClientSeed      string `json:"client_seed"`
	Nonce           uint64 `json:"nonce"`
	PendingCredit   bool   `json:"pending_credit,omitempty"`
	CreatedAt       string `json:"created_at"`
	CompletedAt     string `json:"completed_at,omitempty"`
}

func viewRound(round *store.Round) RoundView {
	view := RoundView{
		ID:              round.ID,
		GameType:        round.GameType,
		Status:          round.Status,
		BetAmount:       round.BetAmount.StringFixed(2),
		MinesCount:      round.MinesCount,
		SelectedNumbers: round.SelectedNumbers,
		Revealed:        round.Revealed,
		Matches:         round.Matches,
		Multiplier:      round.Multiplier.String(),
		Payout:          round.Payout.StringFixed(2),
		NetProfit:       round.NetProfit.StringFixed(2),
		ServerSeedHash:  round.ServerSeedHash,
		ClientSeed:      round.ClientSeed,
		Nonce:           round.Nonce,
		PendingCredit:   round.PendingCredit,
		CreatedAt:       round.CreatedAt.UTC().Format(time.RFC3339),
	}
	if round.CompletedAt != nil {
		view.CompletedAt = round.CompletedAt.UTC().Format(time.RFC3339)
	}
	if store.Terminal(round.Status) {
		view.ServerSeed = round.ServerSeed
		view.Outcome = round.Outcome
	}
	return view
}

type startMinesRequest struct {
	Bet        string `json:"bet"`
	MinesCount int    `json:"mines_count"`
}

type revealRequest struct {
	RoundID string `json:"round_id"`
	Tile    int    `json:"tile"`
}

type cashoutRequest struct {
	RoundID string `json:"round_id"`
}

type startKenoRequest struct {
	Bet      string `json:"bet"`
	Selected []int  `json:"selected"`
}

type rerollRequest struct {
	ClientSeed string `json:"client_seed"`
}

type verifyRequest struct {
	Game       string `json:"game"`
	ServerSeed string `json:"server_seed"`
	ClientSeed string `json:"client_seed"`
	Nonce      uint64 `json:"nonce"`
	MinesCount int    `json:"mines_count,omitempty"`
}

type verifyResponse struct {
	Game           string `json:"game"`
	ServerSeedHash string `json:"server_seed_hash"`
	Outcome        []int  `json:"outcome"`
}

type balanceResponse struct {
	Balance string `json:"balance"`
}
