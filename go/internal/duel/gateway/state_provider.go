package gateway

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/eventduel/go/internal/duel/duelrpc"
	"github.com/mcdev12/eventduel/go/internal/models"
)

// StateProvider returns the authoritative session list of a game.
// *session.App satisfies it when the gateway runs in the store process.
type StateProvider interface {
	ListSessions(ctx context.Context, gameID uuid.UUID) ([]models.Session, error)
}

// ClientStateProvider reads sessions through the DuelService client.
type ClientStateProvider struct {
	client duelrpc.DuelServiceClient
}

func NewClientStateProvider(client duelrpc.DuelServiceClient) *ClientStateProvider {
	return &ClientStateProvider{client: client}
}

func (p *ClientStateProvider) ListSessions(ctx context.Context, gameID uuid.UUID) ([]models.Session, error) {
	resp, err := p.client.ListSessions(ctx, connect.NewRequest(&duelrpc.ListSessionsRequest{GameID: gameID.String()}))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return resp.Msg.Sessions, nil
}
