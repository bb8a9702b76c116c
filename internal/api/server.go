// Package api exposes the game service over HTTP. Callers are identified by
// a trusted X-User-ID header; authentication is expected to happen upstream.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jakefrenzel/CrownWynn/internal/ledger"
	"github.com/jakefrenzel/CrownWynn/internal/rounds"
	"github.com/jakefrenzel/CrownWynn/internal/seeds"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Server handles HTTP requests.
type Server struct {
	rounds *rounds.Service
	seeds  *seeds.Manager
	ledger ledger.Ledger
	logger *log.Logger
}

// NewServer creates a new API server. A nil logger falls back to stdout.
func NewServer(rs *rounds.Service, sm *seeds.Manager, lg ledger.Ledger, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(os.Stdout, "[API] ", log.LstdFlags)
	}
	return &Server{rounds: rs, seeds: sm, ledger: lg, logger: logger}
}

// Routes sets up the HTTP routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		// verification needs no identity: anyone holding disclosed seeds
		// can check an outcome
		r.Post("/verify", s.handleVerify)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)

			r.Post("/mines/start", s.handleStartMines)
			r.Post("/mines/reveal", s.handleRevealTile)
			r.Post("/mines/cashout", s.handleCashout)
			r.Post("/keno/start", s.handleStartKeno)

			r.Get("/rounds/active", s.handleActiveRound)
			r.Get("/rounds/history", s.handleHistory)
			r.Get("/rounds/{roundID}", s.handleGetRound)

			r.Get("/balance", s.handleBalance)
			r.Get("/seed", s.handleSeedCommitment)
			r.Post("/seed/reroll", s.handleSeedReroll)
		})
	})

	return r
}

// requireUser pulls the caller identity from the X-User-ID header.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			s.writeError(w, r, http.StatusUnauthorized, errTypeUnauthorized, "missing X-User-ID header")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Printf("panic: %v (request_id=%s)", rec, middleware.GetReqID(r.Context()))
				s.writeError(w, r, http.StatusInternalServerError, errTypeInternal, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, r, http.StatusBadRequest, errTypeValidation, "malformed JSON body")
		return false
	}
	return true
}
