package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/eventduel/go/internal/duel/events"
	"github.com/mcdev12/eventduel/go/internal/duel/session"
	"github.com/mcdev12/eventduel/go/internal/models"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// appStore adapts an in-process session App to StoreClient.
type appStore struct {
	app *session.App
}

func (s appStore) CreateSession(ctx context.Context, gameID uuid.UUID) (*models.Session, error) {
	created, _, err := s.app.CreateSession(ctx, gameID, nil)
	return created, err
}

func (s appStore) JoinSession(ctx context.Context, sessionID uuid.UUID, slot models.Slot, participantID uuid.UUID) (*models.Session, error) {
	return s.app.JoinSession(ctx, sessionID, slot, participantID)
}

func (s appStore) ActivateSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	return s.app.ActivateSession(ctx, sessionID)
}

func (s appStore) EndSession(ctx context.Context, sessionID uuid.UUID, reason models.EndReason) (*models.Session, error) {
	return s.app.EndSession(ctx, sessionID, reason)
}

func (s appStore) SubmitProgress(ctx context.Context, sessionID, playerID uuid.UUID, payload models.ResultPayload) error {
	return s.app.SubmitProgress(ctx, sessionID, playerID, payload)
}

func (s appStore) SubmitFinalResult(ctx context.Context, sessionID, playerID uuid.UUID, payload models.ResultPayload) (*models.Session, error) {
	return s.app.SubmitFinalResult(ctx, sessionID, playerID, payload)
}

func (s appStore) ListSessions(ctx context.Context, gameID uuid.UUID) ([]models.Session, error) {
	return s.app.ListSessions(ctx, gameID)
}

// lossyProgressStore drops every progress update, so only final results
// reach the store.
type lossyProgressStore struct {
	appStore
}

func (s lossyProgressStore) SubmitProgress(ctx context.Context, sessionID, playerID uuid.UUID, payload models.ResultPayload) error {
	return connect.NewError(connect.CodeUnavailable, errors.New("progress dropped"))
}

// countingRefresher records how often a process asked for a fresh list.
type countingRefresher struct {
	calls atomic.Int32
}

func (r *countingRefresher) RequestAllSessions(ctx context.Context) error {
	r.calls.Add(1)
	return nil
}

// feed pushes the full session list to every subscriber on each change,
// keeping only the newest unread list per subscriber.
type feed struct {
	mu   sync.Mutex
	app  *session.App
	subs []chan []models.Session
}

func (f *feed) subscribe() <-chan []models.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan []models.Session, 1)
	f.subs = append(f.subs, ch)
	return ch
}

func (f *feed) SessionChanged(ctx context.Context, eventType events.EventType, s *models.Session) error {
	list, err := f.app.ListSessions(ctx, s.GameID)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		pushLatest(ch, list)
	}
	return nil
}

func pushLatest(ch chan []models.Session, list []models.Session) {
	for {
		select {
		case ch <- list:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func newStoreWithFeed(cfg models.GameConfig) (*session.App, *feed) {
	f := &feed{}
	app := session.NewApp(session.NewMemoryRepository(), f, session.StaticCatalog{Default: cfg})
	f.app = app
	return app, f
}

// fakeStore fails or counts calls as configured.
type fakeStore struct {
	finalCalls    atomic.Int32
	progressCalls atomic.Int32
	finalErr      func(call int32) error
	progressErr   error
	// finalStatus, when set, is the status of the session returned by
	// SubmitFinalResult.
	finalStatus models.SessionStatus

	mu        sync.Mutex
	lastFinal models.ResultPayload
}

func (s *fakeStore) final() models.ResultPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFinal
}

func (s *fakeStore) CreateSession(ctx context.Context, gameID uuid.UUID) (*models.Session, error) {
	return &models.Session{ID: uuid.New(), GameID: gameID, Status: models.SessionStatusPending}, nil
}

func (s *fakeStore) JoinSession(ctx context.Context, sessionID uuid.UUID, slot models.Slot, participantID uuid.UUID) (*models.Session, error) {
	return &models.Session{ID: sessionID, Status: models.SessionStatusPending}, nil
}

func (s *fakeStore) ActivateSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	return &models.Session{ID: sessionID, Status: models.SessionStatusActive}, nil
}

func (s *fakeStore) EndSession(ctx context.Context, sessionID uuid.UUID, reason models.EndReason) (*models.Session, error) {
	return &models.Session{ID: sessionID, Status: models.SessionStatusCompleted, EndReason: reason}, nil
}

func (s *fakeStore) SubmitProgress(ctx context.Context, sessionID, playerID uuid.UUID, payload models.ResultPayload) error {
	s.progressCalls.Add(1)
	return s.progressErr
}

func (s *fakeStore) SubmitFinalResult(ctx context.Context, sessionID, playerID uuid.UUID, payload models.ResultPayload) (*models.Session, error) {
	call := s.finalCalls.Add(1)
	if s.finalErr != nil {
		if err := s.finalErr(call); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	s.lastFinal = payload
	s.mu.Unlock()

	status := s.finalStatus
	if status == "" {
		status = models.SessionStatusActive
	}
	return &models.Session{ID: sessionID, Status: status}, nil
}

func (s *fakeStore) ListSessions(ctx context.Context, gameID uuid.UUID) ([]models.Session, error) {
	return nil, nil
}

func unavailable(call int32) error {
	return connect.NewError(connect.CodeUnavailable, context.DeadlineExceeded)
}

func fastSubmitter() SubmitterConfig {
	return SubmitterConfig{MaxTries: 4, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
