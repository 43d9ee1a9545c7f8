package duelrpc

import (
	"github.com/mcdev12/eventduel/go/internal/models"
)

// CreateSessionRequest asks the store for a pending session on a game.
// GameConfig overrides the catalog timers when set.
type CreateSessionRequest struct {
	GameID     string             `json:"gameId"`
	GameConfig *models.GameConfig `json:"gameConfig,omitempty"`
}

// CreateSessionResponse returns the pending session. Created is false when
// an open session already existed and was returned unchanged.
type CreateSessionResponse struct {
	Session *models.Session `json:"session"`
	Created bool            `json:"created"`
}

type JoinSessionRequest struct {
	SessionID     string      `json:"sessionId"`
	Slot          models.Slot `json:"slot"`
	ParticipantID string      `json:"participantId"`
}

type ActivateSessionRequest struct {
	SessionID string `json:"sessionId"`
}

type EndSessionRequest struct {
	SessionID string           `json:"sessionId"`
	Reason    models.EndReason `json:"reason,omitempty"`
}

type SubmitProgressRequest struct {
	SessionID string               `json:"sessionId"`
	PlayerID  string               `json:"playerId"`
	Payload   models.ResultPayload `json:"payload"`
}

type SubmitProgressResponse struct{}

type SubmitFinalResultRequest struct {
	SessionID string               `json:"sessionId"`
	PlayerID  string               `json:"playerId"`
	Payload   models.ResultPayload `json:"payload"`
}

type GetSessionRequest struct {
	SessionID string `json:"sessionId"`
}

// SessionResponse wraps a single authoritative session snapshot.
type SessionResponse struct {
	Session *models.Session `json:"session"`
}

type ListSessionsRequest struct {
	GameID string `json:"gameId"`
}

type ListSessionsResponse struct {
	Sessions []models.Session `json:"sessions"`
}
