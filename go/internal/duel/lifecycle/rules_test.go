package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/mcdev12/eventduel/go/internal/models"
)

func TestCanTransition(t *testing.T) {
	statuses := []models.SessionStatus{
		models.SessionStatusPending,
		models.SessionStatusActive,
		models.SessionStatusCompleted,
	}
	allowed := map[[2]models.SessionStatus]bool{
		{models.SessionStatusPending, models.SessionStatusActive}:   true,
		{models.SessionStatusActive, models.SessionStatusCompleted}: true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			want := allowed[[2]models.SessionStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
			err := ValidateTransition(from, to)
			if want && err != nil {
				t.Fatalf("ValidateTransition(%s, %s): unexpected error %v", from, to, err)
			}
			if !want && !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("ValidateTransition(%s, %s): expected ErrInvalidTransition, got %v", from, to, err)
			}
		}
	}
}

func TestCanActivate(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	tests := []struct {
		name    string
		session *models.Session
		want    bool
	}{
		{name: "nil", session: nil, want: false},
		{name: "empty slots", session: &models.Session{Status: models.SessionStatusPending}, want: false},
		{
			name: "one slot",
			session: &models.Session{
				Status:  models.SessionStatusPending,
				Players: models.Players{P1: models.PlayerSlot{ParticipantID: &p1}},
			},
			want: false,
		},
		{
			name: "both slots",
			session: &models.Session{
				Status: models.SessionStatusPending,
				Players: models.Players{
					P1: models.PlayerSlot{ParticipantID: &p1},
					P2: models.PlayerSlot{ParticipantID: &p2},
				},
			},
			want: true,
		},
		{
			name: "already active",
			session: &models.Session{
				Status: models.SessionStatusActive,
				Players: models.Players{
					P1: models.PlayerSlot{ParticipantID: &p1},
					P2: models.PlayerSlot{ParticipantID: &p2},
				},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanActivate(tt.session); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDetermineWinner(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	players := func(s1, s2 int) models.Players {
		return models.Players{
			P1: models.PlayerSlot{ParticipantID: &p1, Score: s1, AttemptedQuestions: 7},
			P2: models.PlayerSlot{ParticipantID: &p2, Score: s2, AttemptedQuestions: 3},
		}
	}

	winner := DetermineWinner(players(5, 3))
	if winner == nil || *winner != p1 {
		t.Fatalf("expected p1 to win 5-3, got %v", winner)
	}

	winner = DetermineWinner(players(2, 9))
	if winner == nil || *winner != p2 {
		t.Fatalf("expected p2 to win 2-9, got %v", winner)
	}

	if winner := DetermineWinner(players(4, 4)); winner != nil {
		t.Fatalf("expected tie for 4-4, got winner %v", *winner)
	}
}

func TestOutcomeDistinguishesTieFromUndecided(t *testing.T) {
	p1 := uuid.New()
	s := &models.Session{Status: models.SessionStatusActive}
	if got := s.OutcomeFor(p1); got != models.OutcomeUndecided {
		t.Fatalf("expected undecided while active, got %s", got)
	}
	s.Status = models.SessionStatusCompleted
	if got := s.OutcomeFor(p1); got != models.OutcomeTie {
		t.Fatalf("expected tie for completed session without winner, got %s", got)
	}
	s.Winner = &p1
	if got := s.OutcomeFor(p1); got != models.OutcomeWin {
		t.Fatalf("expected win, got %s", got)
	}
	if got := s.OutcomeFor(uuid.New()); got != models.OutcomeLose {
		t.Fatalf("expected lose, got %s", got)
	}
}

func TestDeriveViews(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pending := models.Session{ID: uuid.New(), Status: models.SessionStatusPending, UpdatedAt: base}
	active := models.Session{ID: uuid.New(), Status: models.SessionStatusActive, UpdatedAt: base}
	older := models.Session{ID: uuid.New(), Status: models.SessionStatusCompleted, UpdatedAt: base.Add(-time.Hour)}
	newest := models.Session{ID: uuid.New(), Status: models.SessionStatusCompleted, UpdatedAt: base.Add(time.Minute)}
	middle := models.Session{ID: uuid.New(), Status: models.SessionStatusCompleted, UpdatedAt: base}

	views := DeriveViews([]models.Session{older, pending, newest, active, middle})
	if views.Pending == nil || views.Pending.ID != pending.ID {
		t.Fatalf("expected pending view %s, got %+v", pending.ID, views.Pending)
	}
	if views.Active == nil || views.Active.ID != active.ID {
		t.Fatalf("expected active view %s, got %+v", active.ID, views.Active)
	}
	if views.LastCompleted == nil || views.LastCompleted.ID != newest.ID {
		t.Fatalf("expected most recent completed %s, got %+v", newest.ID, views.LastCompleted)
	}

	if diff := cmp.Diff(Views{}, DeriveViews(nil)); diff != "" {
		t.Fatalf("empty list should derive empty views (-want +got):\n%s", diff)
	}
}

func TestDeriveViewsAcrossPushes(t *testing.T) {
	id := uuid.New()
	first := []models.Session{{ID: id, Status: models.SessionStatusPending}}
	second := []models.Session{{ID: id, Status: models.SessionStatusActive}}

	views := DeriveViews(first)
	if views.Pending == nil || views.Active != nil {
		t.Fatalf("after first push expected pending only, got %+v", views)
	}

	views = DeriveViews(second)
	if views.Pending != nil {
		t.Fatalf("after second push expected no pending session, got %+v", views.Pending)
	}
	if views.Active == nil || views.Active.ID != id {
		t.Fatalf("after second push expected active session %s, got %+v", id, views.Active)
	}
}

func TestDeriveViewsDoesNotAlias(t *testing.T) {
	p1 := uuid.New()
	list := []models.Session{{
		ID:      uuid.New(),
		Status:  models.SessionStatusPending,
		Players: models.Players{P1: models.PlayerSlot{ParticipantID: &p1}},
	}}
	views := DeriveViews(list)
	views.Pending.Players.P1.Score = 42
	*views.Pending.Players.P1.ParticipantID = uuid.New()

	if list[0].Players.P1.Score != 0 || *list[0].Players.P1.ParticipantID != p1 {
		t.Fatalf("derived view aliases the pushed list")
	}
}

func TestFind(t *testing.T) {
	id := uuid.New()
	list := []models.Session{{ID: uuid.New()}, {ID: id, Status: models.SessionStatusActive}}
	if got := Find(list, id); got == nil || got.Status != models.SessionStatusActive {
		t.Fatalf("expected to find active session, got %+v", got)
	}
	if got := Find(list, uuid.New()); got != nil {
		t.Fatalf("expected nil for unknown id, got %+v", got)
	}
}
