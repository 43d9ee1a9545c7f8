package client

import (
	"context"

	"github.com/rs/zerolog/log"
)

// command is work executed on a process's event loop goroutine.
type command struct {
	run  func(ctx context.Context) error
	done chan error
}

// loop serializes commands with pushes and timer ticks.
type loop struct {
	commands chan command
}

func newLoop() loop {
	return loop{commands: make(chan command)}
}

// do runs fn on the loop and waits for it. It blocks until the loop picks
// the command up or ctx ends.
func (l loop) do(ctx context.Context, fn func(ctx context.Context) error) error {
	cmd := command{run: fn, done: make(chan error, 1)}
	select {
	case l.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Refresher asks the feed for a fresh list. *Subscription implements it.
type Refresher interface {
	RequestAllSessions(ctx context.Context) error
}

// refresh nudges the feed. Failures are logged and dropped.
func refresh(ctx context.Context, r Refresher) {
	if r == nil {
		return
	}
	if err := r.RequestAllSessions(ctx); err != nil {
		log.Debug().Err(err).Msg("failed to request a fresh session list")
	}
}
