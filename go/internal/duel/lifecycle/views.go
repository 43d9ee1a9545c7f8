package lifecycle

import (
	"github.com/google/uuid"
	"github.com/mcdev12/eventduel/go/internal/models"
)

// Views is the reduction of a game's session list to the three sessions a
// host or player view cares about.
type Views struct {
	Pending       *models.Session `json:"pending"`
	Active        *models.Session `json:"active"`
	LastCompleted *models.Session `json:"lastCompleted"`
}

// DeriveViews reduces a full session list to its pending, active, and most
// recently updated completed session. It keeps no state between calls.
func DeriveViews(sessions []models.Session) Views {
	var v Views
	for i := range sessions {
		s := &sessions[i]
		switch s.Status {
		case models.SessionStatusPending:
			if v.Pending == nil {
				v.Pending = s.Clone()
			}
		case models.SessionStatusActive:
			if v.Active == nil {
				v.Active = s.Clone()
			}
		case models.SessionStatusCompleted:
			if v.LastCompleted == nil || s.UpdatedAt.After(v.LastCompleted.UpdatedAt) {
				v.LastCompleted = s.Clone()
			}
		}
	}
	return v
}

// Find returns the session with id from the list, or nil.
func Find(sessions []models.Session, id uuid.UUID) *models.Session {
	for i := range sessions {
		if sessions[i].ID == id {
			return sessions[i].Clone()
		}
	}
	return nil
}
