package session

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mcdev12/eventduel/go/internal/models"
	"github.com/mcdev12/eventduel/go/internal/sqlutil"
)

// sessionRow feeds column values to scanSession in sessionColumns order.
type sessionRow struct {
	values []any
	err    error
}

func (r sessionRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(r.values))
	}
	for i, d := range dest {
		switch d := d.(type) {
		case *uuid.UUID:
			*d = r.values[i].(uuid.UUID)
		case *string:
			*d = r.values[i].(string)
		case *[]byte:
			if v, ok := r.values[i].([]byte); ok {
				*d = v
			} else {
				*d = nil
			}
		case *uuid.NullUUID:
			*d = r.values[i].(uuid.NullUUID)
		case *time.Time:
			*d = r.values[i].(time.Time)
		case **time.Time:
			*d = r.values[i].(*time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

// rowFor encodes s the way CreateSession writes it.
func rowFor(t *testing.T, s *models.Session) sessionRow {
	t.Helper()
	cfg, players, result, err := encodeSession(s)
	if err != nil {
		t.Fatalf("encodeSession: %v", err)
	}
	var resultCol any
	if result.Valid {
		resultCol = []byte(result.RawMessage)
	}
	return sessionRow{values: []any{
		s.ID, s.GameID, string(s.Status), cfg, players, sqlutil.ToNullUUID(s.Winner), resultCol,
		s.CreatedAt, s.ActivatedAt, s.CompletedAt, s.UpdatedAt,
	}}
}

func TestSessionRoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	activated := created.Add(time.Minute)
	completed := activated.Add(40 * time.Second)
	alice, bob := uuid.New(), uuid.New()

	tests := []struct {
		name    string
		session *models.Session
	}{
		{
			name: "pending with one player",
			session: &models.Session{
				ID:         uuid.New(),
				GameID:     uuid.New(),
				Status:     models.SessionStatusPending,
				GameConfig: models.GameConfig{CountdownTimer: 3, GameSessionTimer: 30},
				Players: models.Players{
					P1: models.PlayerSlot{ParticipantID: &alice, JoinedAt: &created},
				},
				CreatedAt: created,
				UpdatedAt: created,
			},
		},
		{
			name: "active with progress",
			session: &models.Session{
				ID:         uuid.New(),
				GameID:     uuid.New(),
				Status:     models.SessionStatusActive,
				GameConfig: models.GameConfig{CountdownTimer: 3, GameSessionTimer: 30},
				Players: models.Players{
					P1: models.PlayerSlot{ParticipantID: &alice, Score: 20, AttemptedQuestions: 3, TimeTakenSec: 12, JoinedAt: &created},
					P2: models.PlayerSlot{ParticipantID: &bob, Score: 10, AttemptedQuestions: 2, TimeTakenSec: 9, JoinedAt: &created},
				},
				CreatedAt:   created,
				ActivatedAt: &activated,
				UpdatedAt:   activated,
			},
		},
		{
			name: "completed with winner",
			session: &models.Session{
				ID:         uuid.New(),
				GameID:     uuid.New(),
				Status:     models.SessionStatusCompleted,
				GameConfig: models.GameConfig{CountdownTimer: 3, GameSessionTimer: 30},
				Players: models.Players{
					P1: models.PlayerSlot{ParticipantID: &alice, Score: 30, AttemptedQuestions: 3, FinalSubmitted: true, JoinedAt: &created},
					P2: models.PlayerSlot{ParticipantID: &bob, Score: 10, AttemptedQuestions: 3, FinalSubmitted: true, JoinedAt: &created},
				},
				Winner:      &alice,
				EndReason:   models.EndReasonAllFinished,
				CreatedAt:   created,
				ActivatedAt: &activated,
				CompletedAt: &completed,
				UpdatedAt:   completed,
			},
		},
		{
			name: "completed as a tie",
			session: &models.Session{
				ID:          uuid.New(),
				GameID:      uuid.New(),
				Status:      models.SessionStatusCompleted,
				GameConfig:  models.GameConfig{CountdownTimer: 0, GameSessionTimer: 10},
				EndReason:   models.EndReasonTimerExpired,
				CreatedAt:   created,
				ActivatedAt: &activated,
				CompletedAt: &completed,
				UpdatedAt:   completed,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scanSession(rowFor(t, tt.session))
			if err != nil {
				t.Fatalf("scanSession: %v", err)
			}
			if diff := cmp.Diff(tt.session, got); diff != "" {
				t.Errorf("session mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeSessionStoresResultOnlyWhenCompleted(t *testing.T) {
	s := &models.Session{ID: uuid.New(), Status: models.SessionStatusActive, EndReason: models.EndReasonHostEnded}
	_, _, result, err := encodeSession(s)
	if err != nil {
		t.Fatalf("encodeSession: %v", err)
	}
	if result.Valid {
		t.Fatalf("expected no result for an active session, got %s", result.RawMessage)
	}

	s.Status = models.SessionStatusCompleted
	_, _, result, err = encodeSession(s)
	if err != nil {
		t.Fatalf("encodeSession: %v", err)
	}
	if !result.Valid {
		t.Fatal("expected a result for a completed session")
	}
}

func TestScanSessionErrors(t *testing.T) {
	if _, err := scanSession(sessionRow{err: pgx.ErrNoRows}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	s := &models.Session{ID: uuid.New(), Status: models.SessionStatusPending}
	row := rowFor(t, s)
	row.values[3] = []byte("{not json")
	if _, err := scanSession(row); err == nil {
		t.Fatal("expected an error for a corrupt game config")
	}
}

func TestInsertError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "ok", err: nil, want: nil},
		{name: "duplicate", err: fmt.Errorf("exec: %w", &pgconn.PgError{Code: uniqueViolation}), want: ErrSessionExists},
		{name: "other constraint", err: &pgconn.PgError{Code: "23503"}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := insertError(tt.err)
			switch {
			case tt.err == nil:
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
			case tt.want != nil:
				if !errors.Is(got, tt.want) {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			default:
				if got == nil || errors.Is(got, ErrSessionExists) {
					t.Fatalf("expected a wrapped insert error, got %v", got)
				}
			}
		})
	}
}
