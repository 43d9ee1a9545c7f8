// Package lifecycle holds the duel session state machine rules shared by the
// session store and client processes.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/eventduel/go/internal/models"
)

// ErrInvalidTransition is returned for any transition outside
// pending -> active -> completed.
var ErrInvalidTransition = errors.New("invalid status transition")

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to models.SessionStatus) bool {
	switch from {
	case models.SessionStatusPending:
		return to == models.SessionStatusActive
	case models.SessionStatusActive:
		return to == models.SessionStatusCompleted
	default:
		return false
	}
}

// ValidateTransition wraps CanTransition with a descriptive error.
func ValidateTransition(from, to models.SessionStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// CanActivate reports whether a session may move to active right now.
func CanActivate(s *models.Session) bool {
	return s != nil &&
		s.Status == models.SessionStatusPending &&
		s.Players.BothOccupied()
}

// DetermineWinner returns the participant with the strictly higher score.
// Equal scores are a tie and return nil; attempted questions are not used
// as a tie-break.
func DetermineWinner(players models.Players) *uuid.UUID {
	p1, p2 := players.P1, players.P2
	switch {
	case p1.Score > p2.Score && p1.ParticipantID != nil:
		id := *p1.ParticipantID
		return &id
	case p2.Score > p1.Score && p2.ParticipantID != nil:
		id := *p2.ParticipantID
		return &id
	default:
		return nil
	}
}

// AllFinalSubmitted reports whether both occupied slots have sent their final result.
func AllFinalSubmitted(players models.Players) bool {
	return players.BothOccupied() && players.P1.FinalSubmitted && players.P2.FinalSubmitted
}
