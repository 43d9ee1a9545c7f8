package gateway

import (
	"time"

	"github.com/mcdev12/eventduel/go/internal/models"
)

// MessageType identifies a message on the duel socket.
type MessageType string

const (
	// MessageTypeSessions carries the full session list for a game.
	MessageTypeSessions MessageType = "sessions"
	// MessageTypeRequestAllSessions asks the server to push a fresh list.
	MessageTypeRequestAllSessions MessageType = "requestAllSessions"
	// MessageTypeError reports a failure to build the list.
	MessageTypeError MessageType = "error"
)

// SessionsMessage is pushed to clients. Every push replaces the client's
// list entirely.
type SessionsMessage struct {
	Type      MessageType      `json:"type"`
	GameID    string           `json:"gameId"`
	Sessions  []models.Session `json:"sessions"`
	Timestamp time.Time        `json:"timestamp"`
	Error     string           `json:"error,omitempty"`
}

// ClientMessage is anything a client sends up the socket.
type ClientMessage struct {
	Type MessageType `json:"type"`
}
