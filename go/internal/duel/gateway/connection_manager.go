package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/eventduel/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ConnectionManager manages duel WebSocket connections grouped by game.
type ConnectionManager struct {
	gameConnections map[uuid.UUID]map[*Connection]bool
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	provider StateProvider
	metrics  *Metrics
	clock    clockwork.Clock

	pushes chan push
}

// push asks the Start goroutine for a list push. A nil conn means every
// connection on the game.
type push struct {
	gameID uuid.UUID
	conn   *Connection
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      string
	UserID  string
	GameID  uuid.UUID
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	SnapshotTimeout time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		SnapshotTimeout: 5 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, provider StateProvider, metrics *Metrics) *ConnectionManager {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &ConnectionManager{
		gameConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		provider:    provider,
		metrics:     metrics,
		clock:       clockwork.NewRealClock(),
		pushes:      make(chan push, 1000),
	}
}

// Start processes queued pushes until ctx is cancelled. Every push is built
// and queued here, so a connection receives lists in the order they were read.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case p := <-cm.pushes:
			if p.conn != nil {
				cm.pushSnapshot(ctx, p.conn)
				continue
			}
			cm.handleBroadcast(ctx, p.gameID)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and pushes the
// current session list to it.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID string, gameID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		GameID:      gameID,
		Conn:        conn,
		Send:        make(chan []byte, 64),
		Manager:     cm,
		ConnectedAt: cm.clock.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID).
		Str("game_id", gameID.String()).
		Msg("WebSocket connection established")

	cm.RequestSnapshot(connection)
	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.gameConnections[conn.GameID] == nil {
		cm.gameConnections[conn.GameID] = make(map[*Connection]bool)
	}
	cm.gameConnections[conn.GameID][conn] = true
	cm.metrics.connections.Inc()

	log.Debug().
		Str("connection_id", conn.ID).
		Str("game_id", conn.GameID.String()).
		Int("total_connections", len(cm.gameConnections[conn.GameID])).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.gameConnections[conn.GameID]
	if !exists {
		return
	}
	if _, exists := connections[conn]; !exists {
		return
	}

	delete(connections, conn)
	close(conn.Send)
	cm.metrics.connections.Dec()
	if len(connections) == 0 {
		delete(cm.gameConnections, conn.GameID)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Str("game_id", conn.GameID.String()).
		Msg("connection unregistered")
}

// BroadcastToGame queues a full session list push to every connection on the game.
func (cm *ConnectionManager) BroadcastToGame(gameID uuid.UUID) {
	cm.enqueue(push{gameID: gameID})
}

// RequestSnapshot queues a full session list push to a single connection.
func (cm *ConnectionManager) RequestSnapshot(conn *Connection) {
	cm.enqueue(push{gameID: conn.GameID, conn: conn})
}

func (cm *ConnectionManager) enqueue(p push) {
	select {
	case cm.pushes <- p:
	default:
		cm.metrics.dropped.Inc()
		log.Warn().Str("game_id", p.gameID.String()).Msg("push queue full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(ctx context.Context, gameID uuid.UUID) {
	cm.mu.RLock()
	count := len(cm.gameConnections[gameID])
	cm.mu.RUnlock()
	if count == 0 {
		return
	}

	data := cm.snapshot(ctx, gameID)
	if data == nil {
		return
	}

	cm.mu.RLock()
	var slow []*Connection
	sent := 0
	for conn := range cm.gameConnections[gameID] {
		if cm.trySendLocked(conn, data) {
			sent++
		} else {
			slow = append(slow, conn)
		}
	}
	cm.mu.RUnlock()

	cm.dropSlow(slow)
	cm.metrics.broadcasts.Inc()

	log.Debug().
		Str("game_id", gameID.String()).
		Int("connections", sent).
		Msg("session list broadcasted")
}

// pushSnapshot sends the current list to a single connection.
func (cm *ConnectionManager) pushSnapshot(ctx context.Context, conn *Connection) {
	data := cm.snapshot(ctx, conn.GameID)
	if data == nil {
		return
	}

	cm.mu.RLock()
	registered := cm.gameConnections[conn.GameID][conn]
	ok := !registered || cm.trySendLocked(conn, data)
	cm.mu.RUnlock()

	if !ok {
		cm.dropSlow([]*Connection{conn})
	}
}

// snapshot builds the encoded session list message for a game. Failures are
// encoded as an error message so clients can retry.
func (cm *ConnectionManager) snapshot(ctx context.Context, gameID uuid.UUID) []byte {
	ctx, cancel := context.WithTimeout(ctx, cm.config.SnapshotTimeout)
	defer cancel()

	msg := SessionsMessage{
		Type:      MessageTypeSessions,
		GameID:    gameID.String(),
		Timestamp: cm.clock.Now().UTC(),
	}
	sessions, err := cm.provider.ListSessions(ctx, gameID)
	if err != nil {
		log.Error().Err(err).Str("game_id", gameID.String()).Msg("failed to load session list")
		msg.Type = MessageTypeError
		msg.Error = "failed to load sessions"
	}
	msg.Sessions = sessions
	if msg.Sessions == nil {
		msg.Sessions = []models.Session{}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal session list")
		return nil
	}
	return data
}

// trySendLocked queues data without blocking. Callers hold cm.mu.
func (cm *ConnectionManager) trySendLocked(conn *Connection, data []byte) bool {
	select {
	case conn.Send <- data:
		cm.metrics.messages.Inc()
		return true
	default:
		return false
	}
}

func (cm *ConnectionManager) dropSlow(conns []*Connection) {
	for _, conn := range conns {
		cm.metrics.dropped.Inc()
		log.Warn().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}
}

// ConnectionStats summarises open connections.
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveGames      int            `json:"active_games"`
	GameConnections  map[string]int `json:"game_connections"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveGames:     len(cm.gameConnections),
		GameConnections: make(map[string]int, len(cm.gameConnections)),
	}
	for gameID, connections := range cm.gameConnections {
		stats.TotalConnections += len(connections)
		stats.GameConnections[gameID.String()] = len(connections)
	}
	return stats
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		c.handleClientMessage(message)
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage processes messages received from the client
func (c *Connection) handleClientMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Debug().
			Err(err).
			Str("connection_id", c.ID).
			Msg("ignoring malformed client message")
		return
	}

	switch msg.Type {
	case MessageTypeRequestAllSessions:
		c.Manager.RequestSnapshot(c)
	default:
		log.Debug().
			Str("connection_id", c.ID).
			Str("type", string(msg.Type)).
			Msg("ignoring unknown client message")
	}
}
