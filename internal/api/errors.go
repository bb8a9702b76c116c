package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jakefrenzel/CrownWynn/internal/engine"
	"github.com/jakefrenzel/CrownWynn/internal/ledger"
	"github.com/jakefrenzel/CrownWynn/internal/rounds"
	"github.com/jakefrenzel/CrownWynn/internal/seeds"
)

const (
	errTypeValidation        = "validation_error"
	errTypeInsufficientFunds = "insufficient_funds"
	errTypeConflict          = "conflict"
	errTypeNotFound          = "not_found"
	errTypeUnauthorized      = "unauthorized"
	errTypeSettlementPending = "settlement_pending"
	errTypeInternal          = "internal_error"
)

// apiError is the wire shape of every non-2xx response.
type apiError struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// writeDomainError maps domain errors onto HTTP statuses. Unknown errors are
// logged and reported as opaque 500s.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *rounds.ValidationError

	switch {
	case errors.As(err, &ve):
		s.writeError(w, r, http.StatusBadRequest, errTypeValidation, ve.Error())
	case errors.Is(err, seeds.ErrInvalidClientSeed),
		errors.Is(err, engine.ErrInvalidSeedMaterial),
		errors.Is(err, engine.ErrImpossibleDraw):
		s.writeError(w, r, http.StatusBadRequest, errTypeValidation, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		s.writeError(w, r, http.StatusBadRequest, errTypeInsufficientFunds, err.Error())
	case errors.Is(err, seeds.ErrRoundInProgress),
		errors.Is(err, rounds.ErrRoundNotActive),
		errors.Is(err, rounds.ErrAlreadyRevealed),
		errors.Is(err, rounds.ErrNothingToCashOut):
		s.writeError(w, r, http.StatusConflict, errTypeConflict, err.Error())
	case errors.Is(err, rounds.ErrRoundNotFound):
		s.writeError(w, r, http.StatusNotFound, errTypeNotFound, err.Error())
	case errors.Is(err, rounds.ErrSettlementPending):
		s.writeError(w, r, http.StatusServiceUnavailable, errTypeSettlementPending, err.Error())
	default:
		s.logger.Printf("internal error: %v (request_id=%s)", err, middleware.GetReqID(r.Context()))
		s.writeError(w, r, http.StatusInternalServerError, errTypeInternal, "internal server error")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, errType, message string) {
	s.writeJSON(w, status, apiError{
		Type:      errType,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}
