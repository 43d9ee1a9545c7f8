package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/eventduel/go/internal/duel/events"
	"github.com/mcdev12/eventduel/go/internal/duel/lifecycle"
	"github.com/mcdev12/eventduel/go/internal/models"
	"github.com/rs/zerolog/log"
)

// App is the authoritative session store logic. Every transition goes
// through Repository.UpdateSession so it runs against a locked snapshot.
type App struct {
	repo     Repository
	notifier Notifier
	catalog  GameCatalog
	clock    clockwork.Clock
}

// NewApp creates a new session App
func NewApp(repo Repository, notifier Notifier, catalog GameCatalog) *App {
	if catalog == nil {
		catalog = StaticCatalog{}
	}
	return &App{
		repo:     repo,
		notifier: notifier,
		catalog:  catalog,
		clock:    clockwork.NewRealClock(),
	}
}

// WithClock replaces the clock used for timestamps.
func (a *App) WithClock(clock clockwork.Clock) *App {
	a.clock = clock
	return a
}

// CreateSession opens a pending session for the game. When a pending or
// active session already exists it is returned unchanged and created is false.
func (a *App) CreateSession(ctx context.Context, gameID uuid.UUID, override *models.GameConfig) (*models.Session, bool, error) {
	if gameID == uuid.Nil {
		return nil, false, fmt.Errorf("game id is required: %w", ErrInvalidConfig)
	}

	existing, err := a.repo.GetOpenSession(ctx, gameID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up open session: %w", err)
	}

	cfg := a.catalog.GameConfig(gameID)
	if override != nil {
		cfg = *override
	}
	if err := validateGameConfig(cfg); err != nil {
		return nil, false, err
	}

	now := a.clock.Now().UTC()
	s := &models.Session{
		ID:         uuid.New(),
		GameID:     gameID,
		Status:     models.SessionStatusPending,
		GameConfig: cfg,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := a.repo.CreateSession(ctx, s); err != nil {
		if errors.Is(err, ErrSessionExists) {
			// another create won the race for this game
			existing, getErr := a.repo.GetOpenSession(ctx, gameID)
			if getErr != nil {
				return nil, false, fmt.Errorf("failed to load concurrent session: %w", getErr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().
		Str("session_id", s.ID.String()).
		Str("game_id", gameID.String()).
		Int("countdown_timer", cfg.CountdownTimer).
		Int("game_session_timer", cfg.GameSessionTimer).
		Msg("duel session created")

	a.notify(ctx, events.EventTypeSessionCreated, s)
	return s, true, nil
}

// JoinSession places participantID into slot on a pending session.
func (a *App) JoinSession(ctx context.Context, sessionID uuid.UUID, slot models.Slot, participantID uuid.UUID) (*models.Session, error) {
	if !slot.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	if participantID == uuid.Nil {
		return nil, fmt.Errorf("participant id is required: %w", ErrInvalidPayload)
	}

	s, changed, err := a.repo.UpdateSession(ctx, sessionID, func(s *models.Session) (bool, error) {
		if s.Status != models.SessionStatusPending {
			return false, fmt.Errorf("%w: status is %s", ErrNotJoinable, s.Status)
		}
		target := s.Players.Get(slot)
		if target.Holds(participantID) {
			return false, nil
		}
		if target.Occupied() {
			return false, fmt.Errorf("%w: %s", ErrSlotTaken, slot)
		}
		if other, held := s.Players.SlotOf(participantID); held {
			return false, fmt.Errorf("%w: %s", ErrAlreadyJoined, other)
		}

		now := a.clock.Now().UTC()
		id := participantID
		target.ParticipantID = &id
		target.JoinedAt = &now
		s.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to join session: %w", err)
	}

	if changed {
		log.Info().
			Str("session_id", sessionID.String()).
			Str("slot", string(slot)).
			Str("participant_id", participantID.String()).
			Msg("player joined duel session")
		a.notify(ctx, events.EventTypePlayerJoined, s)
	}
	return s, nil
}

// ActivateSession moves a full pending session to active.
func (a *App) ActivateSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	s, changed, err := a.repo.UpdateSession(ctx, sessionID, func(s *models.Session) (bool, error) {
		switch {
		case s.Status == models.SessionStatusActive:
			return false, nil
		case s.Status == models.SessionStatusPending && !s.Players.BothOccupied():
			return false, ErrNotReady
		}
		if err := lifecycle.ValidateTransition(s.Status, models.SessionStatusActive); err != nil {
			return false, err
		}

		now := a.clock.Now().UTC()
		s.Status = models.SessionStatusActive
		s.ActivatedAt = &now
		s.UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to activate session: %w", err)
	}

	if changed {
		log.Info().
			Str("session_id", sessionID.String()).
			Time("activated_at", *s.ActivatedAt).
			Msg("duel session activated")
		a.notify(ctx, events.EventTypeSessionActivated, s)
	}
	return s, nil
}

// EndSession completes an active session. Ending a completed session is a no-op.
func (a *App) EndSession(ctx context.Context, sessionID uuid.UUID, reason models.EndReason) (*models.Session, error) {
	if reason == "" {
		reason = models.EndReasonHostEnded
	}

	s, changed, err := a.repo.UpdateSession(ctx, sessionID, func(s *models.Session) (bool, error) {
		if s.Status == models.SessionStatusCompleted {
			return false, nil
		}
		if err := lifecycle.ValidateTransition(s.Status, models.SessionStatusCompleted); err != nil {
			return false, err
		}
		a.complete(s, reason)
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to end session: %w", err)
	}

	if changed {
		a.logCompleted(s)
		a.notify(ctx, events.EventTypeSessionCompleted, s)
	}
	return s, nil
}

// SubmitProgress records an intermediate score. Stale or late updates are
// ignored rather than rejected.
func (a *App) SubmitProgress(ctx context.Context, sessionID, playerID uuid.UUID, payload models.ResultPayload) error {
	if err := validatePayload(payload); err != nil {
		return err
	}

	s, changed, err := a.repo.UpdateSession(ctx, sessionID, func(s *models.Session) (bool, error) {
		slot, ok := s.Players.SlotOf(playerID)
		if !ok {
			return false, ErrNotParticipant
		}
		switch s.Status {
		case models.SessionStatusCompleted:
			return false, nil
		case models.SessionStatusPending:
			return false, ErrNotActive
		}

		p := s.Players.Get(slot)
		if p.FinalSubmitted || payload.AttemptedQuestions < p.AttemptedQuestions {
			return false, nil
		}
		p.Score = payload.Score
		p.AttemptedQuestions = payload.AttemptedQuestions
		p.TimeTakenSec = payload.TimeTakenSec
		s.UpdatedAt = a.clock.Now().UTC()
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("failed to submit progress: %w", err)
	}

	if changed {
		a.notify(ctx, events.EventTypeProgressRecorded, s)
	}
	return nil
}

// SubmitFinalResult records a player's final result once. When both players
// have submitted, the session completes.
func (a *App) SubmitFinalResult(ctx context.Context, sessionID, playerID uuid.UUID, payload models.ResultPayload) (*models.Session, error) {
	if err := validatePayload(payload); err != nil {
		return nil, err
	}

	s, changed, err := a.repo.UpdateSession(ctx, sessionID, func(s *models.Session) (bool, error) {
		slot, ok := s.Players.SlotOf(playerID)
		if !ok {
			return false, ErrNotParticipant
		}
		switch s.Status {
		case models.SessionStatusCompleted:
			return false, nil
		case models.SessionStatusPending:
			return false, ErrNotActive
		}

		p := s.Players.Get(slot)
		if p.FinalSubmitted {
			return false, nil
		}
		p.Score = payload.Score
		p.AttemptedQuestions = max(p.AttemptedQuestions, payload.AttemptedQuestions)
		p.TimeTakenSec = payload.TimeTakenSec
		p.FinalSubmitted = true
		s.UpdatedAt = a.clock.Now().UTC()

		if lifecycle.AllFinalSubmitted(s.Players) {
			a.complete(s, models.EndReasonAllFinished)
		}
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit final result: %w", err)
	}

	if changed {
		log.Info().
			Str("session_id", sessionID.String()).
			Str("player_id", playerID.String()).
			Int("score", payload.Score).
			Int("attempted_questions", payload.AttemptedQuestions).
			Msg("final result recorded")

		if s.Status == models.SessionStatusCompleted {
			a.logCompleted(s)
			a.notify(ctx, events.EventTypeSessionCompleted, s)
		} else {
			a.notify(ctx, events.EventTypeResultSubmitted, s)
		}
	}
	return s, nil
}

// GetSession retrieves a session by ID
func (a *App) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// ListSessions returns every session of a game, oldest first.
func (a *App) ListSessions(ctx context.Context, gameID uuid.UUID) ([]models.Session, error) {
	sessions, err := a.repo.ListSessions(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func (a *App) complete(s *models.Session, reason models.EndReason) {
	now := a.clock.Now().UTC()
	s.Status = models.SessionStatusCompleted
	s.CompletedAt = &now
	s.UpdatedAt = now
	s.EndReason = reason
	s.Winner = lifecycle.DetermineWinner(s.Players)
}

func (a *App) logCompleted(s *models.Session) {
	evt := log.Info().
		Str("session_id", s.ID.String()).
		Str("end_reason", string(s.EndReason)).
		Int("p1_score", s.Players.P1.Score).
		Int("p2_score", s.Players.P2.Score)
	if s.Winner != nil {
		evt = evt.Str("winner", s.Winner.String())
	} else {
		evt = evt.Bool("tie", true)
	}
	evt.Msg("duel session completed")
}

// notify publishes a change. Failures are logged, not returned.
func (a *App) notify(ctx context.Context, eventType events.EventType, s *models.Session) {
	if a.notifier == nil {
		return
	}
	if err := a.notifier.SessionChanged(ctx, eventType, s); err != nil {
		log.Error().
			Err(err).
			Str("session_id", s.ID.String()).
			Str("event_type", string(eventType)).
			Msg("failed to notify session change")
	}
}

func validateGameConfig(cfg models.GameConfig) error {
	if cfg.CountdownTimer < 0 {
		return fmt.Errorf("%w: countdown timer must not be negative", ErrInvalidConfig)
	}
	if cfg.GameSessionTimer <= 0 {
		return fmt.Errorf("%w: game session timer must be positive", ErrInvalidConfig)
	}
	return nil
}

func validatePayload(p models.ResultPayload) error {
	if p.Score < 0 || p.AttemptedQuestions < 0 || p.TimeTakenSec < 0 {
		return fmt.Errorf("%w: values must not be negative", ErrInvalidPayload)
	}
	return nil
}
