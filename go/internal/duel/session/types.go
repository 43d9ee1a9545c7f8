package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcdev12/eventduel/go/internal/duel/events"
	"github.com/mcdev12/eventduel/go/internal/models"
)

// MutateFunc applies a change to a locked session. It reports whether the
// session was modified; unmodified sessions are not written back.
type MutateFunc func(s *models.Session) (bool, error)

// Repository defines what the session app needs from storage.
type Repository interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetOpenSession(ctx context.Context, gameID uuid.UUID) (*models.Session, error)
	ListSessions(ctx context.Context, gameID uuid.UUID) ([]models.Session, error)
	UpdateSession(ctx context.Context, id uuid.UUID, fn MutateFunc) (*models.Session, bool, error)
}

// Notifier is told about every session change that was written.
type Notifier interface {
	SessionChanged(ctx context.Context, eventType events.EventType, s *models.Session) error
}

// Notifiers fans a change out to several notifiers.
type Notifiers []Notifier

func (n Notifiers) SessionChanged(ctx context.Context, eventType events.EventType, s *models.Session) error {
	var firstErr error
	for _, notifier := range n {
		if err := notifier.SessionChanged(ctx, eventType, s); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// GameCatalog supplies the timer configuration for a game.
type GameCatalog interface {
	GameConfig(gameID uuid.UUID) models.GameConfig
}

// StaticCatalog is a fixed per-game configuration table with a default.
type StaticCatalog struct {
	Default models.GameConfig
	Games   map[uuid.UUID]models.GameConfig
}

// DefaultGameConfig is used when no catalog entry exists.
var DefaultGameConfig = models.GameConfig{CountdownTimer: 5, GameSessionTimer: 60}

func (c StaticCatalog) GameConfig(gameID uuid.UUID) models.GameConfig {
	if cfg, ok := c.Games[gameID]; ok {
		return cfg
	}
	if c.Default == (models.GameConfig{}) {
		return DefaultGameConfig
	}
	return c.Default
}
