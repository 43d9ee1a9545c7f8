package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/eventduel/go/internal/duel/gateway"
	"github.com/mcdev12/eventduel/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrSubscriptionClosed is returned by requests on a closed subscription.
var ErrSubscriptionClosed = errors.New("subscription closed")

// ChannelConfig configures the event channel client.
type ChannelConfig struct {
	// BaseURL is the gateway root, e.g. ws://localhost:8080.
	BaseURL          string
	UserID           string
	HandshakeTimeout time.Duration
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
}

func DefaultChannelConfig(baseURL string) ChannelConfig {
	return ChannelConfig{
		BaseURL:          baseURL,
		UserID:           "anonymous",
		HandshakeTimeout: 10 * time.Second,
		ReconnectInitial: 500 * time.Millisecond,
		ReconnectMax:     10 * time.Second,
	}
}

// Channel subscribes to session list pushes over the gateway WebSocket.
type Channel struct {
	cfg    ChannelConfig
	dialer *websocket.Dialer
}

func NewChannel(cfg ChannelConfig) *Channel {
	return &Channel{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

// Subscription is a live, self-reconnecting feed of one game's session list.
// Every value on Sessions is a full replacement of the previous one; when
// the reader falls behind only the newest list is kept.
type Subscription struct {
	gameID   uuid.UUID
	sessions chan []models.Session
	requests chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

// Subscribe connects to the game's feed and keeps reconnecting with backoff
// until ctx is cancelled or Close is called.
func (c *Channel) Subscribe(ctx context.Context, gameID uuid.UUID) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		gameID:   gameID,
		sessions: make(chan []models.Session, 1),
		requests: make(chan struct{}, 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go c.run(ctx, sub)
	return sub
}

// Sessions delivers pushed lists. It is closed when the subscription ends.
func (s *Subscription) Sessions() <-chan []models.Session {
	return s.sessions
}

// RequestAllSessions asks the gateway to push a fresh list. Requests made
// while disconnected are sent once the connection is back.
func (s *Subscription) RequestAllSessions(ctx context.Context) error {
	select {
	case <-s.done:
		return ErrSubscriptionClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case s.requests <- struct{}{}:
	default:
		// one request is already queued
	}
	return nil
}

var _ Refresher = (*Subscription)(nil)

// Close ends the subscription and waits for its goroutines.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

func (c *Channel) endpoint(gameID uuid.UUID) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid gateway url: %w", err)
	}
	u = u.JoinPath("/ws/duel")
	q := u.Query()
	q.Set("game_id", gameID.String())
	q.Set("user_id", c.cfg.UserID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Channel) run(ctx context.Context, sub *Subscription) {
	defer close(sub.done)
	defer close(sub.sessions)

	endpoint, err := c.endpoint(sub.gameID)
	if err != nil {
		log.Error().Err(err).Msg("cannot subscribe to session feed")
		return
	}

	for {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = c.cfg.ReconnectInitial
		b.MaxInterval = c.cfg.ReconnectMax

		conn, err := backoff.Retry(ctx, func() (*websocket.Conn, error) {
			conn, _, err := c.dialer.DialContext(ctx, endpoint, nil)
			return conn, err
		},
			backoff.WithBackOff(b),
			backoff.WithMaxElapsedTime(0),
			backoff.WithNotify(func(err error, next time.Duration) {
				log.Warn().
					Err(err).
					Str("game_id", sub.gameID.String()).
					Dur("retry_in", next).
					Msg("session feed dial failed")
			}),
		)
		if err != nil {
			return
		}

		log.Debug().Str("game_id", sub.gameID.String()).Msg("session feed connected")
		c.serve(ctx, sub, conn)
		if ctx.Err() != nil {
			return
		}
		log.Info().Str("game_id", sub.gameID.String()).Msg("session feed disconnected, reconnecting")
	}
}

// serve pumps one connection until it fails or ctx ends.
func (c *Channel) serve(ctx context.Context, sub *Subscription, conn *websocket.Conn) {
	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			var msg gateway.SessionsMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				log.Warn().Err(err).Msg("dropping malformed session push")
				continue
			}
			switch msg.Type {
			case gateway.MessageTypeSessions:
				sub.deliver(msg.Sessions)
			case gateway.MessageTypeError:
				log.Warn().Str("game_id", msg.GameID).Str("error", msg.Error).Msg("gateway reported error")
			}
		}
	}()

	defer func() {
		_ = conn.Close()
		<-readErr
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case err := <-readErr:
			readErr <- err
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("session feed read failed")
			}
			return
		case <-sub.requests:
			req := gateway.ClientMessage{Type: gateway.MessageTypeRequestAllSessions}
			if err := conn.WriteJSON(req); err != nil {
				log.Debug().Err(err).Msg("failed to request sessions")
				return
			}
		}
	}
}

// deliver replaces any unread list with the newest one.
func (s *Subscription) deliver(list []models.Session) {
	for {
		select {
		case s.sessions <- list:
			return
		default:
		}
		select {
		case <-s.sessions:
		default:
		}
	}
}
