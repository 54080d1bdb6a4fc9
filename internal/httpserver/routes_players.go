// internal/httpserver/routes_players.go
//
// HTTP routes for player management.
// Exposes three endpoints under /players:
//   - POST /players      → register a new player
//   - GET  /players      → list active players
//   - GET  /players/{id} → fetch a single player
//
// Inactive players stay resolvable by id but are excluded from the listing
// and rejected by the lobby when they try to join a session.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/gamelobby/go-server/internal/directory"
)

// mountPlayers registers all /players routes.
func (s *Server) mountPlayers(r chi.Router) {
	r.Route("/players", func(r chi.Router) {
		r.Post("/", s.handleRegisterPlayer)
		r.Get("/", s.handleListPlayers)
		r.Get("/{id}", s.handleGetPlayer)
	})
}

// registerPlayerReq is the payload for POST /players.
type registerPlayerReq struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// handleRegisterPlayer creates a new active player.
func (s *Server) handleRegisterPlayer(w http.ResponseWriter, r *http.Request) {
	var req registerPlayerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid_argument","message":"bad json"}`, http.StatusBadRequest)
		return
	}
	p, err := s.players.Register(r.Context(), req.DisplayName, req.Email)
	if err != nil {
		s.writePlayerErr(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(p)
}

// handleListPlayers returns all active players.
func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.players.ListActive(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list players")
		http.Error(w, `{"error":"internal","message":"list players failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(players)
}

// handleGetPlayer returns a single player by id, active or not.
func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	p, err := s.players.Resolve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writePlayerErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(p)
}

// writePlayerErr maps directory errors to HTTP statuses.
func (s *Server) writePlayerErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, directory.ErrInvalidPlayer):
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(errRes{Error: "invalid_argument", Message: err.Error()})
	case errors.Is(err, directory.ErrEmailTaken):
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(errRes{Error: "email_taken", Message: err.Error()})
	case errors.Is(err, directory.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(errRes{Error: "not_found", Message: err.Error()})
	default:
		log.Error().Err(err).Msg("player request failed")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(errRes{Error: "internal", Message: "something went wrong"})
	}
}
