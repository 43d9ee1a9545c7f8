package client

import (
	"context"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/eventduel/go/internal/duel/duelrpc"
	"github.com/mcdev12/eventduel/go/internal/models"
)

// StoreClient is the slice of the session store a host or player process uses.
type StoreClient interface {
	CreateSession(ctx context.Context, gameID uuid.UUID) (*models.Session, error)
	JoinSession(ctx context.Context, sessionID uuid.UUID, slot models.Slot, participantID uuid.UUID) (*models.Session, error)
	ActivateSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	EndSession(ctx context.Context, sessionID uuid.UUID, reason models.EndReason) (*models.Session, error)
	SubmitProgress(ctx context.Context, sessionID, playerID uuid.UUID, payload models.ResultPayload) error
	SubmitFinalResult(ctx context.Context, sessionID, playerID uuid.UUID, payload models.ResultPayload) (*models.Session, error)
	ListSessions(ctx context.Context, gameID uuid.UUID) ([]models.Session, error)
}

// ConnectStore talks to the store over the DuelService Connect API.
type ConnectStore struct {
	client duelrpc.DuelServiceClient
}

var _ StoreClient = (*ConnectStore)(nil)

func NewConnectStore(client duelrpc.DuelServiceClient) *ConnectStore {
	return &ConnectStore{client: client}
}

func (s *ConnectStore) CreateSession(ctx context.Context, gameID uuid.UUID) (*models.Session, error) {
	resp, err := s.client.CreateSession(ctx, connect.NewRequest(&duelrpc.CreateSessionRequest{
		GameID: gameID.String(),
	}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Session, nil
}

func (s *ConnectStore) JoinSession(ctx context.Context, sessionID uuid.UUID, slot models.Slot, participantID uuid.UUID) (*models.Session, error) {
	resp, err := s.client.JoinSession(ctx, connect.NewRequest(&duelrpc.JoinSessionRequest{
		SessionID:     sessionID.String(),
		Slot:          slot,
		ParticipantID: participantID.String(),
	}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Session, nil
}

func (s *ConnectStore) ActivateSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	resp, err := s.client.ActivateSession(ctx, connect.NewRequest(&duelrpc.ActivateSessionRequest{
		SessionID: sessionID.String(),
	}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Session, nil
}

func (s *ConnectStore) EndSession(ctx context.Context, sessionID uuid.UUID, reason models.EndReason) (*models.Session, error) {
	resp, err := s.client.EndSession(ctx, connect.NewRequest(&duelrpc.EndSessionRequest{
		SessionID: sessionID.String(),
		Reason:    reason,
	}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Session, nil
}

func (s *ConnectStore) SubmitProgress(ctx context.Context, sessionID, playerID uuid.UUID, payload models.ResultPayload) error {
	_, err := s.client.SubmitProgress(ctx, connect.NewRequest(&duelrpc.SubmitProgressRequest{
		SessionID: sessionID.String(),
		PlayerID:  playerID.String(),
		Payload:   payload,
	}))
	return err
}

func (s *ConnectStore) SubmitFinalResult(ctx context.Context, sessionID, playerID uuid.UUID, payload models.ResultPayload) (*models.Session, error) {
	resp, err := s.client.SubmitFinalResult(ctx, connect.NewRequest(&duelrpc.SubmitFinalResultRequest{
		SessionID: sessionID.String(),
		PlayerID:  playerID.String(),
		Payload:   payload,
	}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Session, nil
}

func (s *ConnectStore) ListSessions(ctx context.Context, gameID uuid.UUID) ([]models.Session, error) {
	resp, err := s.client.ListSessions(ctx, connect.NewRequest(&duelrpc.ListSessionsRequest{
		GameID: gameID.String(),
	}))
	if err != nil {
		return nil, err
	}
	return resp.Msg.Sessions, nil
}
