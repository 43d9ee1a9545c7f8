package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus defines the lifecycle status of a duel session.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// Slot identifies one of the two fixed participant positions.
type Slot string

const (
	SlotP1 Slot = "p1"
	SlotP2 Slot = "p2"
)

// Slots lists both slots in seating order.
var Slots = []Slot{SlotP1, SlotP2}

// Valid reports whether s names a known slot.
func (s Slot) Valid() bool {
	return s == SlotP1 || s == SlotP2
}

// EndReason records why a session was completed.
type EndReason string

const (
	EndReasonTimerExpired EndReason = "timer_expired"
	EndReasonHostEnded    EndReason = "host_ended"
	EndReasonAllFinished  EndReason = "all_finished"
)

// GameConfig is the timer snapshot taken when a session is created.
type GameConfig struct {
	CountdownTimer   int `json:"countdownTimer" yaml:"countdown_timer"`
	GameSessionTimer int `json:"gameSessionTimer" yaml:"game_session_timer"`
}

// CountdownDuration returns the pre-match delay.
func (c GameConfig) CountdownDuration() time.Duration {
	return time.Duration(c.CountdownTimer) * time.Second
}

// MatchDuration returns the match length.
func (c GameConfig) MatchDuration() time.Duration {
	return time.Duration(c.GameSessionTimer) * time.Second
}

// PlayerSlot holds one participant position and its counters.
type PlayerSlot struct {
	ParticipantID      *uuid.UUID `json:"participantId"`
	Score              int        `json:"score"`
	AttemptedQuestions int        `json:"attemptedQuestions"`
	TimeTakenSec       int        `json:"timeTakenSec"`
	FinalSubmitted     bool       `json:"finalSubmitted"`
	JoinedAt           *time.Time `json:"joinedAt,omitempty"`
}

// Occupied reports whether a participant has joined the slot.
func (p PlayerSlot) Occupied() bool {
	return p.ParticipantID != nil
}

// Holds reports whether the slot is occupied by participantID.
func (p PlayerSlot) Holds(participantID uuid.UUID) bool {
	return p.ParticipantID != nil && *p.ParticipantID == participantID
}

// Players is the fixed pair of slots.
type Players struct {
	P1 PlayerSlot `json:"p1"`
	P2 PlayerSlot `json:"p2"`
}

// Get returns a pointer to the named slot, or nil for an unknown slot.
func (p *Players) Get(slot Slot) *PlayerSlot {
	switch slot {
	case SlotP1:
		return &p.P1
	case SlotP2:
		return &p.P2
	default:
		return nil
	}
}

// SlotOf returns the slot held by participantID.
func (p *Players) SlotOf(participantID uuid.UUID) (Slot, bool) {
	switch {
	case p.P1.Holds(participantID):
		return SlotP1, true
	case p.P2.Holds(participantID):
		return SlotP2, true
	default:
		return "", false
	}
}

// BothOccupied reports whether both slots are filled.
func (p Players) BothOccupied() bool {
	return p.P1.Occupied() && p.P2.Occupied()
}

// Session is a single two-player duel.
type Session struct {
	ID          uuid.UUID     `json:"id"`
	GameID      uuid.UUID     `json:"gameId"`
	Status      SessionStatus `json:"status"`
	Players     Players       `json:"players"`
	GameConfig  GameConfig    `json:"gameConfig"`
	Winner      *uuid.UUID    `json:"winner,omitempty"`
	EndReason   EndReason     `json:"endReason,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	ActivatedAt *time.Time    `json:"activatedAt,omitempty"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Players.P1 = cloneSlot(s.Players.P1)
	c.Players.P2 = cloneSlot(s.Players.P2)
	c.Winner = cloneUUID(s.Winner)
	c.ActivatedAt = cloneTime(s.ActivatedAt)
	c.CompletedAt = cloneTime(s.CompletedAt)
	return &c
}

func cloneSlot(p PlayerSlot) PlayerSlot {
	p.ParticipantID = cloneUUID(p.ParticipantID)
	p.JoinedAt = cloneTime(p.JoinedAt)
	return p
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// ResultPayload carries a player's progress or final result.
type ResultPayload struct {
	Score              int `json:"score"`
	AttemptedQuestions int `json:"attemptedQuestions"`
	TimeTakenSec       int `json:"timeTakenSec"`
}

// Outcome is a participant's view of a session result.
type Outcome string

const (
	OutcomeUndecided Outcome = "undecided"
	OutcomeWin       Outcome = "win"
	OutcomeLose      Outcome = "lose"
	OutcomeTie       Outcome = "tie"
)

// OutcomeFor reports the result from participantID's point of view.
// A completed session without a winner is a tie.
func (s *Session) OutcomeFor(participantID uuid.UUID) Outcome {
	if s.Status != SessionStatusCompleted {
		return OutcomeUndecided
	}
	if s.Winner == nil {
		return OutcomeTie
	}
	if *s.Winner == participantID {
		return OutcomeWin
	}
	return OutcomeLose
}
