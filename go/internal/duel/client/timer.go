package client

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/eventduel/go/internal/models"
)

// Phase is the stage a local match clock is in.
type Phase string

const (
	PhaseCountdown Phase = "countdown"
	PhaseMatch     Phase = "match"
	PhaseExpired   Phase = "expired"
)

// Tick is one reading of the local clocks.
type Tick struct {
	Phase     Phase
	Remaining int
}

// Coordinator runs the local pre-match countdown followed by the match
// timer, one tick per second. Every process starts its own coordinator on
// observing the session go active; the store stays authoritative for the
// outcome.
//
// The sequence for countdown N and match M is Countdown N..0, Match M..0,
// Expired. Match M is emitted in the same second as Countdown 0, and Expired
// in the same second as Match 0. The tick channel is closed when the
// coordinator stops.
type Coordinator struct {
	clock  clockwork.Clock
	cfg    models.GameConfig
	ticks  chan Tick
	cancel context.CancelFunc
	done   chan struct{}
}

// StartCoordinator starts the clocks for cfg. Cancelling ctx stops them.
func StartCoordinator(ctx context.Context, clock clockwork.Clock, cfg models.GameConfig) *Coordinator {
	ctx, cancel := context.WithCancel(ctx)
	c := &Coordinator{
		clock:  clock,
		cfg:    cfg,
		ticks:  make(chan Tick, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.run(ctx)
	return c
}

// Ticks delivers clock readings until the coordinator stops.
func (c *Coordinator) Ticks() <-chan Tick {
	return c.ticks
}

// Stop cancels the clocks and waits for the ticking goroutine to exit.
// It is safe to call more than once.
func (c *Coordinator) Stop() {
	c.cancel()
	<-c.done
}

// Done is closed once the ticking goroutine has exited.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.done)
	defer close(c.ticks)

	ticker := c.clock.NewTicker(time.Second)
	defer ticker.Stop()

	phase, remaining := PhaseCountdown, max(c.cfg.CountdownTimer, 0)
	for {
		if !c.emit(ctx, Tick{Phase: phase, Remaining: remaining}) {
			return
		}
		if remaining == 0 {
			if phase == PhaseCountdown {
				phase, remaining = PhaseMatch, max(c.cfg.GameSessionTimer, 0)
				continue
			}
			c.emit(ctx, Tick{Phase: PhaseExpired})
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
		remaining--
	}
}

func (c *Coordinator) emit(ctx context.Context, t Tick) bool {
	select {
	case c.ticks <- t:
		return true
	case <-ctx.Done():
		return false
	}
}
