package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RelayStore is what the relay needs from the outbox app.
type RelayStore interface {
	GetEventByID(ctx context.Context, eventID uuid.UUID) (*OutboxEvent, error)
	FetchUnsentEvents(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkEventSent(ctx context.Context, eventID uuid.UUID) error
}

type RelayConfig struct {
	MaxRetries uint
	RetryDelay time.Duration
	BatchSize  int
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		MaxRetries: 5,
		RetryDelay: 200 * time.Millisecond,
		BatchSize:  100,
	}
}

// Relay moves outbox rows onto the message bus and marks them sent.
type Relay struct {
	store     RelayStore
	publisher Publisher
	metrics   MetricsCollector
	cfg       RelayConfig
}

func NewRelay(store RelayStore, publisher Publisher, metrics MetricsCollector, cfg RelayConfig) *Relay {
	if metrics == nil {
		metrics = NoOpMetricsCollector{}
	}
	return &Relay{
		store:     store,
		publisher: NewMetricPublisher(publisher, metrics),
		metrics:   metrics,
		cfg:       cfg,
	}
}

// RelayByID publishes a single outbox row, typically named by a notification.
func (r *Relay) RelayByID(ctx context.Context, id uuid.UUID) error {
	event, err := r.store.GetEventByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch outbox event: %w", err)
	}

	if err := r.publishWithRetry(ctx, *event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if err := r.store.MarkEventSent(ctx, id); err != nil {
		return err
	}

	log.Debug().Str("event_id", id.String()).Msg("published and marked event as sent")
	return nil
}

// ProcessUnsent sweeps rows a notification may have missed. It returns the
// number of events relayed.
func (r *Relay) ProcessUnsent(ctx context.Context) (int, error) {
	start := time.Now()
	unsent, err := r.store.FetchUnsentEvents(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	r.metrics.RecordOutboxLag(len(unsent))

	relayed := 0
	for _, event := range unsent {
		if err := r.publishWithRetry(ctx, event); err != nil {
			log.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to publish event")
			continue
		}
		if err := r.store.MarkEventSent(ctx, event.ID); err != nil {
			log.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to mark outbox event as sent")
			continue
		}
		relayed++
	}

	r.metrics.RecordBatchProcessed(relayed, time.Since(start))
	if len(unsent) > 0 {
		log.Info().
			Int("relayed", relayed).
			Int("total", len(unsent)).
			Msg("processed unsent outbox events")
	}
	return relayed, nil
}

// publishWithRetry publishes with exponential backoff, giving up after
// MaxRetries additional attempts.
func (r *Relay) publishWithRetry(ctx context.Context, event OutboxEvent) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.RetryDelay

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := r.publisher.Publish(ctx, event)
		r.metrics.RecordPublishAttempt(string(event.EventType), attempt, err == nil)
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.cfg.MaxRetries+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().
				Err(err).
				Int("attempt", attempt).
				Dur("retry_in", next).
				Str("event_id", event.ID.String()).
				Msg("failed to publish, retrying")
		}),
	)
	if err != nil {
		return fmt.Errorf("publish failed after %d attempts: %w", attempt, err)
	}

	if attempt > 1 {
		log.Info().
			Int("attempt", attempt).
			Str("event_id", event.ID.String()).
			Msg("publish succeeded after retry")
	}
	return nil
}
