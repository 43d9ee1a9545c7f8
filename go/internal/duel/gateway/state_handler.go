package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/eventduel/go/internal/duel/lifecycle"
	"github.com/mcdev12/eventduel/go/internal/models"
	"github.com/rs/zerolog/log"
)

// GameSessionsResponse is the full session list of a game plus the derived views.
type GameSessionsResponse struct {
	GameID   string           `json:"game_id"`
	Sessions []models.Session `json:"sessions"`
	Views    lifecycle.Views  `json:"views"`
}

// StateHandler handles HTTP requests for session state
type StateHandler struct {
	stateProvider StateProvider
}

// NewStateHandler creates a new state handler
func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
	}
}

// HandleGetGameSessions handles GET /api/games/{id}/sessions
func (h *StateHandler) HandleGetGameSessions(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid game ID format", http.StatusBadRequest)
		return
	}

	sessions, err := h.stateProvider.ListSessions(r.Context(), gameID)
	if err != nil {
		log.Error().Err(err).Str("game_id", gameID.String()).Msg("failed to list sessions")
		http.Error(w, "Failed to get sessions", http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}

	resp := GameSessionsResponse{
		GameID:   gameID.String(),
		Sessions: sessions,
		Views:    lifecycle.DeriveViews(sessions),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("failed to encode sessions response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/games/{id}/sessions", h.HandleGetGameSessions)
}
