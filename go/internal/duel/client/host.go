package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/eventduel/go/internal/duel/lifecycle"
	"github.com/mcdev12/eventduel/go/internal/models"
	"github.com/rs/zerolog/log"
)

// DefaultEndGrace is how long the host waits for final results after its
// match clock expires before it ends the session itself.
const DefaultEndGrace = 2 * time.Second

// HostConfig configures a host process.
type HostConfig struct {
	GameID uuid.UUID
	// AutoActivate activates the pending session as soon as a push shows
	// both slots filled.
	AutoActivate bool
	// EndGrace delays the expiry end so players' final results land first.
	// The store completes the session on its own once both finals are in.
	EndGrace time.Duration
}

// HostStatus is a snapshot of the host's display.
type HostStatus struct {
	Views          lifecycle.Views
	Phase          Phase
	Countdown      int
	MatchRemaining int
}

// Host drives a game's sessions: it creates, activates and ends them, and
// ends the active session when its own match clock expires.
type Host struct {
	loop
	cfg       HostConfig
	store     StoreClient
	clock     clockwork.Clock
	sc        *SessionContext
	refresher Refresher

	// owned by the loop
	timer        *Coordinator
	timerSession uuid.UUID
	endTimer     clockwork.Timer
	endSession   uuid.UUID

	mu     sync.RWMutex
	status HostStatus
}

func NewHost(cfg HostConfig, store StoreClient) *Host {
	if cfg.EndGrace <= 0 {
		cfg.EndGrace = DefaultEndGrace
	}
	return &Host{
		loop:  newLoop(),
		cfg:   cfg,
		store: store,
		clock: clockwork.NewRealClock(),
		sc:    NewSessionContext(cfg.GameID),
	}
}

// WithClock replaces the clock driving the local timers.
func (h *Host) WithClock(clock clockwork.Clock) *Host {
	h.clock = clock
	return h
}

// WithRefresher lets the host ask its feed for a fresh list after it
// changes a session.
func (h *Host) WithRefresher(r Refresher) *Host {
	h.refresher = r
	return h
}

func (h *Host) Context() *SessionContext {
	return h.sc
}

func (h *Host) Status() HostStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Run is the host's event loop.
func (h *Host) Run(ctx context.Context, updates <-chan []models.Session) error {
	defer h.stopTimer()
	defer h.cancelEnd()

	for {
		var ticks <-chan Tick
		if h.timer != nil {
			ticks = h.timer.Ticks()
		}
		var endC <-chan time.Time
		if h.endTimer != nil {
			endC = h.endTimer.Chan()
		}

		select {
		case <-ctx.Done():
			return nil
		case list, ok := <-updates:
			if !ok {
				return nil
			}
			h.onPush(ctx, list)
		case t, ok := <-ticks:
			if !ok {
				h.stopTimer()
				continue
			}
			h.onTick(ctx, t)
		case <-endC:
			h.onEndGrace(ctx)
		case cmd := <-h.commands:
			cmd.done <- cmd.run(ctx)
		}
	}
}

// CreateSession opens a pending session unless the latest push already
// shows a pending or active one, in which case that one is returned.
func (h *Host) CreateSession(ctx context.Context) (*models.Session, error) {
	var out *models.Session
	err := h.do(ctx, func(ctx context.Context) error {
		if open := h.sc.Open(); open != nil {
			out = open
			return nil
		}
		s, err := h.store.CreateSession(ctx, h.cfg.GameID)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		refresh(ctx, h.refresher)
		out = s
		return nil
	})
	return out, err
}

// Activate starts the pending session. It is a no-op returning nil unless
// the latest push shows a pending session with both slots filled.
func (h *Host) Activate(ctx context.Context) (*models.Session, error) {
	var out *models.Session
	err := h.do(ctx, func(ctx context.Context) error {
		s, err := h.activate(ctx)
		out = s
		return err
	})
	return out, err
}

// End force-completes the active session. It is a no-op returning nil when
// no session is active.
func (h *Host) End(ctx context.Context) (*models.Session, error) {
	var out *models.Session
	err := h.do(ctx, func(ctx context.Context) error {
		active := h.sc.Views().Active
		if active == nil {
			return nil
		}
		s, err := h.store.EndSession(ctx, active.ID, models.EndReasonHostEnded)
		if err != nil {
			return fmt.Errorf("failed to end session: %w", err)
		}
		out = s
		return nil
	})
	return out, err
}

func (h *Host) activate(ctx context.Context) (*models.Session, error) {
	pending := h.sc.Views().Pending
	if !lifecycle.CanActivate(pending) {
		return nil, nil
	}
	s, err := h.store.ActivateSession(ctx, pending.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to activate session: %w", err)
	}
	log.Info().Str("session_id", s.ID.String()).Msg("host activated session")
	refresh(ctx, h.refresher)
	return s, nil
}

func (h *Host) onPush(ctx context.Context, list []models.Session) {
	views := h.sc.Apply(list)
	h.setStatus(func(st *HostStatus) { st.Views = views })

	if h.endSession != uuid.Nil && (views.Active == nil || views.Active.ID != h.endSession) {
		log.Info().Str("session_id", h.endSession.String()).Msg("session completed before the host ended it")
		h.cancelEnd()
	}

	switch {
	case views.Active != nil && h.timerSession != views.Active.ID:
		h.stopTimer()
		h.timer = StartCoordinator(ctx, h.clock, views.Active.GameConfig)
		h.timerSession = views.Active.ID
	case views.Active == nil && h.timerSession != uuid.Nil:
		h.stopTimer()
		h.timerSession = uuid.Nil
		h.setStatus(func(st *HostStatus) {
			st.Phase = ""
			st.Countdown = 0
			st.MatchRemaining = 0
		})
	}

	if h.cfg.AutoActivate && lifecycle.CanActivate(views.Pending) {
		if _, err := h.activate(ctx); err != nil {
			log.Error().Err(err).Msg("auto-activation failed")
		}
	}
}

func (h *Host) onTick(ctx context.Context, t Tick) {
	h.setStatus(func(st *HostStatus) {
		st.Phase = t.Phase
		switch t.Phase {
		case PhaseCountdown:
			st.Countdown = t.Remaining
		case PhaseMatch:
			st.Countdown = 0
			st.MatchRemaining = t.Remaining
		case PhaseExpired:
			st.MatchRemaining = 0
		}
	})

	if t.Phase != PhaseExpired || h.timerSession == uuid.Nil {
		return
	}
	h.cancelEnd()
	h.endSession = h.timerSession
	h.endTimer = h.clock.NewTimer(h.cfg.EndGrace)
	log.Info().
		Str("session_id", h.endSession.String()).
		Dur("grace", h.cfg.EndGrace).
		Msg("match time expired, waiting for final results")
}

// onEndGrace ends a session whose finals did not all arrive in time.
func (h *Host) onEndGrace(ctx context.Context) {
	sessionID := h.endSession
	h.endTimer = nil
	h.endSession = uuid.Nil

	s, err := h.store.EndSession(ctx, sessionID, models.EndReasonTimerExpired)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to end expired session")
		return
	}
	log.Info().
		Str("session_id", sessionID.String()).
		Str("end_reason", string(s.EndReason)).
		Msg("expired session ended")
}

func (h *Host) cancelEnd() {
	if h.endTimer != nil {
		h.endTimer.Stop()
		h.endTimer = nil
	}
	h.endSession = uuid.Nil
}

func (h *Host) stopTimer() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

func (h *Host) setStatus(fn func(*HostStatus)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.status)
}
