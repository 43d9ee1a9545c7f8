package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/eventduel/go/internal/duel/events"
)

// ErrEventNotFound is returned when an outbox row is missing or already sent.
var ErrEventNotFound = errors.New("outbox event not found or already sent")

// OutboxEvent is one row of the duel outbox.
type OutboxEvent struct {
	ID        uuid.UUID        `json:"id"`
	GameID    uuid.UUID        `json:"game_id"`
	SessionID uuid.UUID        `json:"session_id"`
	EventType events.EventType `json:"event_type"`
	Payload   json.RawMessage  `json:"payload"`
	CreatedAt time.Time        `json:"created_at"`
	SentAt    *time.Time       `json:"sent_at,omitempty"`
}

// Envelope converts the row into the wire envelope published on the bus.
func (e OutboxEvent) Envelope() events.DomainEvent {
	return events.DomainEvent{
		EventID:   e.ID.String(),
		EventType: e.EventType,
		GameID:    e.GameID.String(),
		SessionID: e.SessionID.String(),
		Timestamp: e.CreatedAt,
		Payload:   e.Payload,
	}
}

// Publisher delivers outbox events to the message bus.
type Publisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}

// OutboxRepository defines what the app layer needs from the repository
type OutboxRepository interface {
	InsertOutboxEvent(ctx context.Context, event OutboxEvent) error
	FetchUnsentOutbox(ctx context.Context, limit int) ([]OutboxEvent, error)
	FetchOutboxByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error)
	MarkOutboxSent(ctx context.Context, id uuid.UUID) error
}
