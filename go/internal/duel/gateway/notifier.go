package gateway

import (
	"context"

	"github.com/mcdev12/eventduel/go/internal/duel/events"
	"github.com/mcdev12/eventduel/go/internal/models"
)

// LocalNotifier broadcasts session changes straight to the connection
// manager when the store and gateway share a process.
type LocalNotifier struct {
	cm *ConnectionManager
}

func NewLocalNotifier(cm *ConnectionManager) *LocalNotifier {
	return &LocalNotifier{cm: cm}
}

func (n *LocalNotifier) SessionChanged(ctx context.Context, eventType events.EventType, s *models.Session) error {
	n.cm.BroadcastToGame(s.GameID)
	return nil
}
