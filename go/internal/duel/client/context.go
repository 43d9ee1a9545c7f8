package client

import (
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/eventduel/go/internal/duel/lifecycle"
	"github.com/mcdev12/eventduel/go/internal/models"
)

// SessionContext holds one process's latest view of a game. Each host or
// player owns its own instance; nothing is shared between processes.
type SessionContext struct {
	mu       sync.RWMutex
	gameID   uuid.UUID
	sessions []models.Session
	views    lifecycle.Views
}

func NewSessionContext(gameID uuid.UUID) *SessionContext {
	return &SessionContext{gameID: gameID}
}

// Apply replaces the session list with a pushed snapshot and re-derives the views.
func (c *SessionContext) Apply(sessions []models.Session) lifecycle.Views {
	list := make([]models.Session, len(sessions))
	for i := range sessions {
		list[i] = *sessions[i].Clone()
	}
	views := lifecycle.DeriveViews(list)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = list
	c.views = views
	return views
}

func (c *SessionContext) GameID() uuid.UUID {
	return c.gameID
}

// Views returns the views derived from the latest push.
func (c *SessionContext) Views() lifecycle.Views {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lifecycle.Views{
		Pending:       c.views.Pending.Clone(),
		Active:        c.views.Active.Clone(),
		LastCompleted: c.views.LastCompleted.Clone(),
	}
}

// Session returns a copy of the session with id, or nil when the latest
// push did not include it.
func (c *SessionContext) Session(id uuid.UUID) *models.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lifecycle.Find(c.sessions, id)
}

// Sessions returns a copy of the latest list.
func (c *SessionContext) Sessions() []models.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Session, len(c.sessions))
	for i := range c.sessions {
		out[i] = *c.sessions[i].Clone()
	}
	return out
}

// Open returns the pending or active session, preferring the active one.
func (c *SessionContext) Open() *models.Session {
	v := c.Views()
	if v.Active != nil {
		return v.Active
	}
	return v.Pending
}
