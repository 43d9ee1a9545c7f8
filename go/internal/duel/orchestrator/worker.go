package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/eventduel/go/internal/models"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

const eventChannelBufferSize = 100

// Run starts the worker pool and, when connected to JetStream, consumes
// session events. It blocks until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	log.Info().
		Str("instance", o.instanceID).
		Int("workers", o.cfg.NumWorkers).
		Bool("jetstream", o.consumer != nil).
		Msg("match orchestrator started")

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)

	for i := 0; i < o.cfg.NumWorkers; i++ {
		wg.Add(1)
		go o.worker(workerCtx, &wg, i)
	}

	defer func() {
		log.Info().Str("instance", o.instanceID).Msg("shutting down workers")
		cancelWorkers()
		wg.Wait()
		o.cancelAllTimers()
		log.Info().Str("instance", o.instanceID).Msg("all workers shut down")
	}()

	if o.consumer == nil {
		<-ctx.Done()
		return nil
	}
	return o.consume(ctx)
}

func (o *Orchestrator) consume(ctx context.Context) error {
	eventCh := make(chan jetstream.Msg, eventChannelBufferSize)

	consumeCtx, err := o.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case eventCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start JetStream consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("instance", o.instanceID).Msg("orchestrator shutdown requested")
			return nil
		case msg := <-eventCh:
			if err := o.processEvent(ctx, msg); err != nil {
				log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to process event")
				if termErr := msg.Term(); termErr != nil {
					log.Error().Err(termErr).Msg("failed to TERM message")
				}
				continue
			}
			if ackErr := msg.Ack(); ackErr != nil {
				log.Error().Err(ackErr).Msg("failed to ACK message")
			}
		}
	}
}

// worker ends sessions whose deadline fired.
func (o *Orchestrator) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case sessionID := <-o.workCh:
			log.Info().
				Str("session_id", sessionID.String()).
				Str("instance", o.instanceID).
				Int("worker_id", workerID).
				Msg("worker handling match deadline")

			if err := o.handleDeadline(ctx, sessionID); err != nil {
				log.Error().
					Err(err).
					Str("session_id", sessionID.String()).
					Int("worker_id", workerID).
					Msg("failed to end expired session")
			}
		}
	}
}

func (o *Orchestrator) handleDeadline(ctx context.Context, sessionID uuid.UUID) error {
	s, err := o.ender.EndSession(ctx, sessionID, models.EndReasonTimerExpired)
	if err != nil {
		return fmt.Errorf("failed to end session %s: %w", sessionID, err)
	}
	if s != nil {
		log.Info().
			Str("session_id", sessionID.String()).
			Str("end_reason", string(s.EndReason)).
			Msg("match deadline enforced")
	}
	return nil
}
