package orchestrator

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type deadlineTimer struct {
	timer    clockwork.Timer // nil when the deadline had already passed
	deadline time.Time
	cancel   chan struct{}
}

// scheduleDeadline arms a one-shot timer that hands the session to the
// workers when it fires. A deadline already in the past is handed over at
// once. Scheduling the same deadline twice is a no-op.
func (o *Orchestrator) scheduleDeadline(sessionID uuid.UUID, deadline time.Time) {
	dt := &deadlineTimer{
		deadline: deadline,
		cancel:   make(chan struct{}),
	}
	duration := deadline.Sub(o.clock.Now())
	if duration > 0 {
		dt.timer = o.clock.NewTimer(duration)
	}
	if !o.replaceTimer(sessionID, dt) {
		if dt.timer != nil {
			stopAndDrainTimer(dt.timer)
		}
		return
	}

	go o.awaitDeadline(sessionID, dt)

	if dt.timer == nil {
		log.Info().
			Str("session_id", sessionID.String()).
			Time("deadline", deadline).
			Msg("deadline already passed, ending session")
		return
	}
	log.Debug().
		Str("session_id", sessionID.String()).
		Time("deadline", deadline).
		Dur("duration", duration).
		Msg("scheduled match deadline")
}

// awaitDeadline waits for dt to fire, then blocks until a worker takes the
// session. Only cancellation of dt, on completion or shutdown, gives up.
func (o *Orchestrator) awaitDeadline(sessionID uuid.UUID, dt *deadlineTimer) {
	if dt.timer != nil {
		select {
		case <-dt.timer.Chan():
		case <-dt.cancel:
			return
		}
	}

	select {
	case o.workCh <- sessionID:
		log.Debug().Str("session_id", sessionID.String()).Msg("deadline reached - enqueued for processing")
	case <-dt.cancel:
		return
	}
	o.removeTimer(sessionID, dt)
}

// replaceTimer installs dt, cancelling any earlier timer for the session.
// It returns false when an identical deadline is already armed.
func (o *Orchestrator) replaceTimer(sessionID uuid.UUID, dt *deadlineTimer) bool {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()

	if existing, ok := o.activeTimers[sessionID]; ok {
		if existing.deadline.Equal(dt.deadline) {
			return false
		}
		existing.stop()
		log.Debug().Str("session_id", sessionID.String()).Msg("replaced existing timer")
	}
	o.activeTimers[sessionID] = dt
	return true
}

// cancelTimer cancels and removes the session's timer, if any.
func (o *Orchestrator) cancelTimer(sessionID uuid.UUID) {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()

	if dt, ok := o.activeTimers[sessionID]; ok {
		dt.stop()
		delete(o.activeTimers, sessionID)
		log.Debug().Str("session_id", sessionID.String()).Msg("cancelled existing timer")
	}
}

// removeTimer forgets a fired timer unless it was already replaced.
func (o *Orchestrator) removeTimer(sessionID uuid.UUID, dt *deadlineTimer) {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()
	if o.activeTimers[sessionID] == dt {
		delete(o.activeTimers, sessionID)
	}
}

func (o *Orchestrator) cancelAllTimers() {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()
	for id, dt := range o.activeTimers {
		dt.stop()
		delete(o.activeTimers, id)
	}
}

func (dt *deadlineTimer) stop() {
	if dt.timer != nil {
		stopAndDrainTimer(dt.timer)
	}
	close(dt.cancel)
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
