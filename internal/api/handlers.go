package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/jakefrenzel/CrownWynn/internal/engine"
	"github.com/jakefrenzel/CrownWynn/internal/games"
)

func (s *Server) handleStartMines(w http.ResponseWriter, r *http.Request) {
	var req startMinesRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	bet, err := decimal.NewFromString(req.Bet)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, errTypeValidation, "bet must be a decimal string")
		return
	}

	round, err := s.rounds.StartMines(r.Context(), userID(r), bet, req.MinesCount)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, viewRound(round))
}

func (s *Server) handleRevealTile(w http.ResponseWriter, r *http.Request) {
	var req revealRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	round, err := s.rounds.RevealTile(r.Context(), userID(r), req.RoundID, req.Tile)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewRound(round))
}

func (s *Server) handleCashout(w http.ResponseWriter, r *http.Request) {
	var req cashoutRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	round, err := s.rounds.Cashout(r.Context(), userID(r), req.RoundID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewRound(round))
}

func (s *Server) handleStartKeno(w http.ResponseWriter, r *http.Request) {
	var req startKenoRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	bet, err := decimal.NewFromString(req.Bet)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, errTypeValidation, "bet must be a decimal string")
		return
	}

	round, err := s.rounds.StartKeno(r.Context(), userID(r), bet, req.Selected)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, viewRound(round))
}

func (s *Server) handleActiveRound(w http.ResponseWriter, r *http.Request) {
	round, err := s.rounds.ActiveRound(r.Context(), userID(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if round == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"round": nil})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"round": viewRound(round)})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, r, http.StatusBadRequest, errTypeValidation, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	history, err := s.rounds.History(r.Context(), userID(r), limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	views := make([]RoundView, 0, len(history))
	for i := range history {
		views = append(views, viewRound(&history[i]))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"rounds": views})
}

func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	round, err := s.rounds.GetRound(r.Context(), userID(r), chi.URLParam(r, "roundID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewRound(round))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.ledger.Balance(r.Context(), userID(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, balanceResponse{Balance: balance.StringFixed(2)})
}

func (s *Server) handleSeedCommitment(w http.ResponseWriter, r *http.Request) {
	commitment, err := s.seeds.Commitment(r.Context(), userID(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, commitment)
}

func (s *Server) handleSeedReroll(w http.ResponseWriter, r *http.Request) {
	var req rerollRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	rotation, err := s.seeds.Reroll(r.Context(), userID(r), req.ClientSeed)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rotation)
}

// handleVerify recomputes an outcome from disclosed seed material so players
// can audit settled rounds.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	var outcome []int
	var err error
	switch req.Game {
	case "mines":
		if req.MinesCount < games.MinesMinCount || req.MinesCount > games.MinesMaxCount {
			s.writeError(w, r, http.StatusBadRequest, errTypeValidation, "mines_count must be between 1 and 24")
			return
		}
		outcome, err = games.MinePositions(req.ServerSeed, req.ClientSeed, req.Nonce, req.MinesCount)
	case "keno":
		outcome, err = games.KenoDraw(req.ServerSeed, req.ClientSeed, req.Nonce)
	default:
		s.writeError(w, r, http.StatusBadRequest, errTypeValidation, "game must be \"mines\" or \"keno\"")
		return
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, verifyResponse{
		Game:           req.Game,
		ServerSeedHash: engine.HashSeed(req.ServerSeed),
		Outcome:        outcome,
	})
}
