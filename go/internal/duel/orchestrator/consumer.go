package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/eventduel/go/internal/duel/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// ConsumerConfig configures the orchestrator's durable JetStream consumer.
type ConsumerConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
	ReconnectWait time.Duration
}

func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		URL:           nats.DefaultURL,
		StreamName:    events.StreamName,
		ConsumerName:  "duel-orchestrator",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
		ReconnectWait: 2 * time.Second,
	}
}

// ConnectJetStream attaches the orchestrator to the session event stream.
// The consumer replays the whole stream so deadlines survive a restart.
func (o *Orchestrator) ConnectJetStream(ctx context.Context, cfg ConsumerConfig) error {
	nc, js, err := events.Connect(events.BusConfig{
		URL:           cfg.URL,
		ClientName:    "eventduel-orchestrator",
		MaxReconnects: -1,
		ReconnectWait: cfg.ReconnectWait,
	})
	if err != nil {
		return err
	}

	stream, err := js.Stream(ctx, cfg.StreamName)
	if err != nil {
		nc.Close()
		return fmt.Errorf("get stream: %w", err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:        cfg.ConsumerName,
		Durable:     cfg.ConsumerName,
		Description: "Duel orchestrator match deadline consumer",
		FilterSubjects: []string{
			events.SubjectPrefix + ".*." + string(events.EventTypeSessionActivated),
			events.SubjectPrefix + ".*." + string(events.EventTypeSessionCompleted),
		},
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    cfg.MaxDeliver,
		AckWait:       cfg.AckWait,
		MaxAckPending: cfg.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		nc.Close()
		return fmt.Errorf("create consumer: %w", err)
	}

	log.Info().
		Str("consumer", cfg.ConsumerName).
		Str("stream", cfg.StreamName).
		Msg("JetStream consumer ready for orchestrator")

	o.nc = nc
	o.js = js
	o.consumer = consumer
	return nil
}

// processEvent decodes a bus message and feeds it to HandleDomainEvent.
func (o *Orchestrator) processEvent(ctx context.Context, msg jetstream.Msg) error {
	var envelope events.DomainEvent
	if err := json.Unmarshal(msg.Data(), &envelope); err != nil {
		return fmt.Errorf("unmarshal event envelope: %w", err)
	}

	log.Debug().
		Str("subject", msg.Subject()).
		Str("session_id", envelope.SessionID).
		Str("event_type", string(envelope.EventType)).
		Msg("processing orchestrator event")

	return o.HandleDomainEvent(ctx, envelope.EventType, envelope.Payload)
}
