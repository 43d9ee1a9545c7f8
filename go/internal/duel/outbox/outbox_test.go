package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/eventduel/go/internal/duel/events"
	"github.com/mcdev12/eventduel/go/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type memoryOutbox struct {
	mu     sync.Mutex
	events map[uuid.UUID]*OutboxEvent
	order  []uuid.UUID
}

func newMemoryOutbox() *memoryOutbox {
	return &memoryOutbox{events: make(map[uuid.UUID]*OutboxEvent)}
}

func (m *memoryOutbox) InsertOutboxEvent(ctx context.Context, event OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.ID] = &event
	m.order = append(m.order, event.ID)
	return nil
}

func (m *memoryOutbox) FetchUnsentOutbox(ctx context.Context, limit int) ([]OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []OutboxEvent
	for _, id := range m.order {
		if e := m.events[id]; e.SentAt == nil && len(out) < limit {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memoryOutbox) FetchOutboxByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok || e.SentAt != nil {
		return nil, ErrEventNotFound
	}
	c := *e
	return &c, nil
}

func (m *memoryOutbox) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.events[id].SentAt = &now
	return nil
}

type flakyPublisher struct {
	mu        sync.Mutex
	failures  int
	published []OutboxEvent
	attempts  int
}

func (p *flakyPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if p.failures > 0 {
		p.failures--
		return errors.New("nats unavailable")
	}
	p.published = append(p.published, event)
	return nil
}

func testRelayConfig() RelayConfig {
	return RelayConfig{MaxRetries: 3, RetryDelay: time.Millisecond, BatchSize: 10}
}

func sampleSession() *models.Session {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.Session{
		ID:          uuid.New(),
		GameID:      uuid.New(),
		Status:      models.SessionStatusActive,
		GameConfig:  models.GameConfig{CountdownTimer: 5, GameSessionTimer: 60},
		ActivatedAt: &now,
	}
}

func TestSessionChangedInsertsEvent(t *testing.T) {
	repo := newMemoryOutbox()
	app := NewApp(repo)
	s := sampleSession()

	if err := app.SessionChanged(context.Background(), events.EventTypeSessionActivated, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	unsent, _ := app.FetchUnsentEvents(context.Background(), 10)
	if len(unsent) != 1 {
		t.Fatalf("expected one event, got %d", len(unsent))
	}
	e := unsent[0]
	if e.GameID != s.GameID || e.SessionID != s.ID || e.EventType != events.EventTypeSessionActivated {
		t.Fatalf("unexpected event: %+v", e)
	}

	var payload events.SessionEventPayload
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.ActivatedAt == nil || !payload.ActivatedAt.Equal(*s.ActivatedAt) {
		t.Fatalf("payload lost activation time: %+v", payload)
	}
	if payload.GameConfig.GameSessionTimer != 60 {
		t.Fatalf("payload lost game config: %+v", payload)
	}

	env := e.Envelope()
	if env.EventID != e.ID.String() || env.GameID != s.GameID.String() {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestFetchUnsentRejectsBadLimit(t *testing.T) {
	app := NewApp(newMemoryOutbox())
	if _, err := app.FetchUnsentEvents(context.Background(), 0); err == nil {
		t.Fatalf("expected error for zero limit")
	}
}

func TestRelayRetriesThenMarksSent(t *testing.T) {
	repo := newMemoryOutbox()
	app := NewApp(repo)
	_ = app.SessionChanged(context.Background(), events.EventTypeSessionCreated, sampleSession())
	id := repo.order[0]

	reg := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(reg)
	pub := &flakyPublisher{failures: 2}
	relay := NewRelay(app, pub, metrics, testRelayConfig())

	if err := relay.RelayByID(context.Background(), id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pub.attempts != 3 || len(pub.published) != 1 {
		t.Fatalf("expected 3 attempts and 1 publish, got %d/%d", pub.attempts, len(pub.published))
	}
	if _, err := app.GetEventByID(context.Background(), id); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("event should be marked sent, got %v", err)
	}

	eventType := string(events.EventTypeSessionCreated)
	if got := testutil.ToFloat64(metrics.eventCounter.WithLabelValues(eventType, "failure")); got != 2 {
		t.Fatalf("expected 2 failures recorded, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.eventCounter.WithLabelValues(eventType, "success")); got != 1 {
		t.Fatalf("expected 1 success recorded, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.publishAttempts.WithLabelValues(eventType, "3", "success")); got != 1 {
		t.Fatalf("expected success on attempt 3, got %v", got)
	}
}

func TestRelayGivesUp(t *testing.T) {
	repo := newMemoryOutbox()
	app := NewApp(repo)
	_ = app.SessionChanged(context.Background(), events.EventTypeSessionCreated, sampleSession())
	id := repo.order[0]

	pub := &flakyPublisher{failures: 100}
	relay := NewRelay(app, pub, nil, testRelayConfig())

	if err := relay.RelayByID(context.Background(), id); err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if pub.attempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", pub.attempts)
	}
	if _, err := app.GetEventByID(context.Background(), id); err != nil {
		t.Fatalf("failed event must stay unsent, got %v", err)
	}
}

func TestProcessUnsent(t *testing.T) {
	repo := newMemoryOutbox()
	app := NewApp(repo)
	for i := 0; i < 3; i++ {
		_ = app.SessionChanged(context.Background(), events.EventTypeProgressRecorded, sampleSession())
	}

	reg := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(reg)
	pub := &flakyPublisher{}
	relay := NewRelay(app, pub, metrics, testRelayConfig())

	n, err := relay.ProcessUnsent(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 || len(pub.published) != 3 {
		t.Fatalf("expected 3 relayed, got %d (published %d)", n, len(pub.published))
	}
	if got := testutil.ToFloat64(metrics.outboxLag); got != 3 {
		t.Fatalf("expected lag 3, got %v", got)
	}

	n, _ = relay.ProcessUnsent(context.Background())
	if n != 0 {
		t.Fatalf("second sweep should find nothing, got %d", n)
	}
}

type stubListener struct {
	processed uint64
	last      time.Time
	running   bool
}

func (s stubListener) Stats() (uint64, time.Time) { return s.processed, s.last }
func (s stubListener) Running() bool              { return s.running }

func TestHealthChecker(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ok := func(ctx context.Context) error { return nil }

	tests := []struct {
		name        string
		deps        HealthDeps
		wantHealthy bool
	}{
		{
			name: "healthy",
			deps: HealthDeps{
				PingDB:        ok,
				CountPending:  func(ctx context.Context) (int, error) { return 0, nil },
				NATSConnected: func() bool { return true },
				Listener:      stubListener{running: true},
			},
			wantHealthy: true,
		},
		{
			name: "database down",
			deps: HealthDeps{
				PingDB:        func(ctx context.Context) error { return errors.New("refused") },
				CountPending:  func(ctx context.Context) (int, error) { return 0, nil },
				NATSConnected: func() bool { return true },
				Listener:      stubListener{running: true},
			},
		},
		{
			name: "stalled with backlog",
			deps: HealthDeps{
				PingDB:        ok,
				CountPending:  func(ctx context.Context) (int, error) { return 5, nil },
				NATSConnected: func() bool { return true },
				Listener:      stubListener{running: true, processed: 9, last: clock.Now().Add(-10 * time.Minute)},
			},
		},
		{
			name: "listener stopped",
			deps: HealthDeps{
				PingDB:        ok,
				CountPending:  func(ctx context.Context) (int, error) { return 0, nil },
				NATSConnected: func() bool { return true },
				Listener:      stubListener{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker(tt.deps, time.Minute, clock)
			status := h.Check(context.Background())
			if status.Healthy != tt.wantHealthy {
				t.Fatalf("expected healthy=%v, got %+v", tt.wantHealthy, status)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			wantCode := http.StatusOK
			if !tt.wantHealthy {
				wantCode = http.StatusServiceUnavailable
			}
			if rec.Code != wantCode {
				t.Fatalf("expected status %d, got %d", wantCode, rec.Code)
			}
		})
	}
}
