// internal/httpserver/server.go
//
// HTTP server wiring for the game lobby backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Game endpoints: POST /games, GET /games/{id}, and the lifecycle verbs
//     POST /games/{id}/join, /games/{id}/start, /games/{id}/end.
//   - Player endpoints: mounted from routes_players.go.
//   - Mapping of error kinds to HTTP statuses (see writeErr).
//
// The handlers stay thin: decode, call the lobby manager, encode. All session
// rules live behind the manager; this layer only speaks HTTP.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/gamelobby/go-server/internal/directory"
	"github.com/gamelobby/go-server/internal/game"
	"github.com/gamelobby/go-server/internal/lobby"
)

// Server bundles the router, the lobby manager, and the player registry.
type Server struct {
	r       *chi.Mux
	lobby   *lobby.Manager
	players directory.Registry
	origin  string
}

// New constructs a Server, installs middleware, and registers routes.
// origin is the single CORS origin allowed to send credentialed requests.
func New(mgr *lobby.Manager, players directory.Registry, origin string) *Server {
	s := &Server{r: chi.NewRouter(), lobby: mgr, players: players, origin: origin}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(s.cors)                          // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"gamelobby-go","endpoints":["/health","POST /games","GET /games/{id}","POST /games/{id}/join","POST /games/{id}/start","POST /games/{id}/end","/players"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Game lifecycle
	s.r.Post("/games", s.handleCreateGame)
	s.r.Get("/games/{id}", s.handleGetGame)
	s.r.Post("/games/{id}/join", s.handleJoinGame)
	s.r.Post("/games/{id}/start", s.handleStartGame)
	s.r.Post("/games/{id}/end", s.handleEndGame)

	// Players
	s.mountPlayers(s.r)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", s.origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ GAMES --------------------------------------

// createGameReq is the payload for POST /games.
// playerId optionally seeds the roster with the creator.
type createGameReq struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"maxPlayers"`
	PlayerID   string `json:"playerId"`
}

// handleCreateGame creates a new session in the waiting state.
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid_argument","message":"bad json"}`, http.StatusBadRequest)
		return
	}
	sess, err := s.lobby.Create(r.Context(), req.Name, req.MaxPlayers, req.PlayerID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(sess)
}

// handleGetGame returns a session snapshot.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lobby.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(sess)
}

// joinGameReq is the payload for POST /games/{id}/join.
type joinGameReq struct {
	PlayerID string `json:"playerId"`
}

// handleJoinGame admits a player into the roster.
func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	var req joinGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid_argument","message":"bad json"}`, http.StatusBadRequest)
		return
	}
	if req.PlayerID == "" {
		http.Error(w, `{"error":"invalid_argument","message":"playerId is required"}`, http.StatusBadRequest)
		return
	}
	sess, err := s.lobby.Join(r.Context(), chi.URLParam(r, "id"), req.PlayerID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(sess)
}

// handleStartGame transitions a session to in_progress.
func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lobby.Start(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(sess)
}

// endGameReq is the payload for POST /games/{id}/end.
// Score is a pointer so a missing field is distinguishable from zero.
type endGameReq struct {
	Score *int `json:"score"`
}

// handleEndGame transitions a session to finished with its final score.
func (s *Server) handleEndGame(w http.ResponseWriter, r *http.Request) {
	var req endGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid_argument","message":"bad json"}`, http.StatusBadRequest)
		return
	}
	sess, err := s.lobby.End(r.Context(), chi.URLParam(r, "id"), req.Score)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(sess)
}

// ------------------------------ errors -------------------------------------

// errRes is the JSON error envelope: a stable kind tag plus a human message.
type errRes struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeErr maps an error's taxonomy kind to an HTTP status and writes the
// JSON error envelope. Internal/unavailable failures are logged; the rest are
// expected business outcomes and stay quiet.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, game.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrInvalidState),
		errors.Is(err, game.ErrAlreadyJoined),
		errors.Is(err, game.ErrFull),
		errors.Is(err, game.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, game.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errRes{Error: game.Kind(err), Message: err.Error()})
}
