package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/eventduel/go/internal/duel/duelrpc"
	"github.com/mcdev12/eventduel/go/internal/duel/events"
	"github.com/mcdev12/eventduel/go/internal/models"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// SessionEnder completes sessions. *session.App satisfies it in-process.
type SessionEnder interface {
	EndSession(ctx context.Context, sessionID uuid.UUID, reason models.EndReason) (*models.Session, error)
}

// ClientEnder ends sessions through the DuelService client.
type ClientEnder struct {
	client duelrpc.DuelServiceClient
}

func NewClientEnder(client duelrpc.DuelServiceClient) *ClientEnder {
	return &ClientEnder{client: client}
}

func (e *ClientEnder) EndSession(ctx context.Context, sessionID uuid.UUID, reason models.EndReason) (*models.Session, error) {
	resp, err := e.client.EndSession(ctx, connect.NewRequest(&duelrpc.EndSessionRequest{
		SessionID: sessionID.String(),
		Reason:    reason,
	}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Session, nil
}

// Config tunes the orchestrator.
type Config struct {
	// Grace is added to the match deadline so the host's own expiry
	// normally wins.
	Grace      time.Duration
	NumWorkers int
}

func DefaultConfig() Config {
	return Config{
		Grace:      2 * time.Second,
		NumWorkers: 4,
	}
}

// Orchestrator enforces the match deadline server-side. It ends every
// active session once countdown, match time and grace have elapsed, even
// when no host process is left to do it.
type Orchestrator struct {
	ender      SessionEnder
	clock      clockwork.Clock
	cfg        Config
	instanceID string

	workCh chan uuid.UUID

	activeTimers   map[uuid.UUID]*deadlineTimer
	activeTimersMu sync.Mutex

	// JetStream wiring, set by ConnectJetStream
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
}

// NewOrchestrator creates a new session orchestrator
func NewOrchestrator(ender SessionEnder, cfg Config) *Orchestrator {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 1
	}
	return &Orchestrator{
		ender:        ender,
		clock:        clockwork.NewRealClock(),
		cfg:          cfg,
		instanceID:   uuid.New().String()[:8],
		workCh:       make(chan uuid.UUID, cfg.NumWorkers*16),
		activeTimers: make(map[uuid.UUID]*deadlineTimer),
	}
}

// WithClock replaces the clock used for deadlines.
func (o *Orchestrator) WithClock(clock clockwork.Clock) *Orchestrator {
	o.clock = clock
	return o
}

// SessionChanged lets the orchestrator act as an in-process session notifier.
func (o *Orchestrator) SessionChanged(ctx context.Context, eventType events.EventType, s *models.Session) error {
	return o.handlePayload(eventType, events.NewSessionEventPayload(s))
}

// HandleDomainEvent routes a session event from the bus.
func (o *Orchestrator) HandleDomainEvent(ctx context.Context, eventType events.EventType, payload []byte) error {
	switch eventType {
	case events.EventTypeSessionActivated, events.EventTypeSessionCompleted:
	default:
		return nil
	}

	var p events.SessionEventPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", eventType, err)
	}
	return o.handlePayload(eventType, p)
}

func (o *Orchestrator) handlePayload(eventType events.EventType, p events.SessionEventPayload) error {
	switch eventType {
	case events.EventTypeSessionActivated:
		if p.ActivatedAt == nil {
			return fmt.Errorf("session %s activated without activation time", p.SessionID)
		}
		deadline := MatchDeadline(*p.ActivatedAt, p.GameConfig, o.cfg.Grace)
		o.scheduleDeadline(p.SessionID, deadline)

	case events.EventTypeSessionCompleted:
		o.cancelTimer(p.SessionID)
		log.Debug().
			Str("session_id", p.SessionID.String()).
			Str("end_reason", string(p.EndReason)).
			Msg("session completed, deadline cleared")
	}
	return nil
}

// MatchDeadline is when an active session must be over.
func MatchDeadline(activatedAt time.Time, cfg models.GameConfig, grace time.Duration) time.Time {
	return activatedAt.Add(cfg.CountdownDuration() + cfg.MatchDuration() + grace)
}

// PendingDeadlines reports how many sessions have a scheduled deadline.
func (o *Orchestrator) PendingDeadlines() int {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()
	return len(o.activeTimers)
}

// Close releases the NATS connection, if any.
func (o *Orchestrator) Close() error {
	if o.nc != nil {
		o.nc.Close()
	}
	return nil
}
