package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/eventduel/go/internal/models"
)

// Event payload types shared between the session store, outbox, gateway and orchestrator.

// EventType names a session change.
type EventType string

const (
	EventTypeSessionCreated   EventType = "SessionCreated"
	EventTypePlayerJoined     EventType = "PlayerJoined"
	EventTypeSessionActivated EventType = "SessionActivated"
	EventTypeProgressRecorded EventType = "ProgressRecorded"
	EventTypeResultSubmitted  EventType = "ResultSubmitted"
	EventTypeSessionCompleted EventType = "SessionCompleted"
)

// SessionEventPayload is the payload carried by every session change.
// Receivers re-read the full list from the store; the payload only carries
// what the orchestrator needs to schedule deadlines.
type SessionEventPayload struct {
	SessionID   uuid.UUID            `json:"session_id"`
	GameID      uuid.UUID            `json:"game_id"`
	Status      models.SessionStatus `json:"status"`
	GameConfig  models.GameConfig    `json:"game_config"`
	ActivatedAt *time.Time           `json:"activated_at,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
	EndReason   models.EndReason     `json:"end_reason,omitempty"`
}

// NewSessionEventPayload builds a payload from the session snapshot.
func NewSessionEventPayload(s *models.Session) SessionEventPayload {
	return SessionEventPayload{
		SessionID:   s.ID,
		GameID:      s.GameID,
		Status:      s.Status,
		GameConfig:  s.GameConfig,
		ActivatedAt: s.ActivatedAt,
		CompletedAt: s.CompletedAt,
		EndReason:   s.EndReason,
	}
}

// DomainEvent is the wire envelope published on the message bus.
type DomainEvent struct {
	EventID   string          `json:"eventId"`
	EventType EventType       `json:"eventType"`
	GameID    string          `json:"gameId"`
	SessionID string          `json:"sessionId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// SubjectPrefix is the JetStream subject namespace for session events.
const SubjectPrefix = "duel.events"

// StreamName is the JetStream stream holding session events.
const StreamName = "DUEL_EVENTS"

// Subject returns the subject for a game's event of the given type.
func Subject(gameID uuid.UUID, eventType EventType) string {
	return SubjectPrefix + "." + gameID.String() + "." + string(eventType)
}
