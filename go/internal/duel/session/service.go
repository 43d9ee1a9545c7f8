package session

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/eventduel/go/internal/duel/duelrpc"
	"github.com/mcdev12/eventduel/go/internal/models"
)

// SessionApp defines what the service layer needs from the session application
type SessionApp interface {
	CreateSession(ctx context.Context, gameID uuid.UUID, override *models.GameConfig) (*models.Session, bool, error)
	JoinSession(ctx context.Context, sessionID uuid.UUID, slot models.Slot, participantID uuid.UUID) (*models.Session, error)
	ActivateSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	EndSession(ctx context.Context, sessionID uuid.UUID, reason models.EndReason) (*models.Session, error)
	SubmitProgress(ctx context.Context, sessionID, playerID uuid.UUID, payload models.ResultPayload) error
	SubmitFinalResult(ctx context.Context, sessionID, playerID uuid.UUID, payload models.ResultPayload) (*models.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ListSessions(ctx context.Context, gameID uuid.UUID) ([]models.Session, error)
}

// Service implements the DuelService Connect interface
type Service struct {
	app SessionApp
}

// NewService creates a new duel session service
func NewService(app SessionApp) *Service {
	return &Service{app: app}
}

// Verify that Service implements the DuelServiceHandler interface
var _ duelrpc.DuelServiceHandler = (*Service)(nil)

func (s *Service) CreateSession(ctx context.Context, req *connect.Request[duelrpc.CreateSessionRequest]) (*connect.Response[duelrpc.CreateSessionResponse], error) {
	gameID, err := parseID("game_id", req.Msg.GameID)
	if err != nil {
		return nil, err
	}

	session, created, err := s.app.CreateSession(ctx, gameID, req.Msg.GameConfig)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&duelrpc.CreateSessionResponse{Session: session, Created: created}), nil
}

func (s *Service) JoinSession(ctx context.Context, req *connect.Request[duelrpc.JoinSessionRequest]) (*connect.Response[duelrpc.SessionResponse], error) {
	sessionID, err := parseID("session_id", req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	participantID, err := parseID("participant_id", req.Msg.ParticipantID)
	if err != nil {
		return nil, err
	}

	session, err := s.app.JoinSession(ctx, sessionID, req.Msg.Slot, participantID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&duelrpc.SessionResponse{Session: session}), nil
}

func (s *Service) ActivateSession(ctx context.Context, req *connect.Request[duelrpc.ActivateSessionRequest]) (*connect.Response[duelrpc.SessionResponse], error) {
	sessionID, err := parseID("session_id", req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	session, err := s.app.ActivateSession(ctx, sessionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&duelrpc.SessionResponse{Session: session}), nil
}

func (s *Service) EndSession(ctx context.Context, req *connect.Request[duelrpc.EndSessionRequest]) (*connect.Response[duelrpc.SessionResponse], error) {
	sessionID, err := parseID("session_id", req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	session, err := s.app.EndSession(ctx, sessionID, req.Msg.Reason)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&duelrpc.SessionResponse{Session: session}), nil
}

func (s *Service) SubmitProgress(ctx context.Context, req *connect.Request[duelrpc.SubmitProgressRequest]) (*connect.Response[duelrpc.SubmitProgressResponse], error) {
	sessionID, err := parseID("session_id", req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	playerID, err := parseID("player_id", req.Msg.PlayerID)
	if err != nil {
		return nil, err
	}

	if err := s.app.SubmitProgress(ctx, sessionID, playerID, req.Msg.Payload); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&duelrpc.SubmitProgressResponse{}), nil
}

func (s *Service) SubmitFinalResult(ctx context.Context, req *connect.Request[duelrpc.SubmitFinalResultRequest]) (*connect.Response[duelrpc.SessionResponse], error) {
	sessionID, err := parseID("session_id", req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	playerID, err := parseID("player_id", req.Msg.PlayerID)
	if err != nil {
		return nil, err
	}

	session, err := s.app.SubmitFinalResult(ctx, sessionID, playerID, req.Msg.Payload)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&duelrpc.SessionResponse{Session: session}), nil
}

func (s *Service) GetSession(ctx context.Context, req *connect.Request[duelrpc.GetSessionRequest]) (*connect.Response[duelrpc.SessionResponse], error) {
	sessionID, err := parseID("session_id", req.Msg.SessionID)
	if err != nil {
		return nil, err
	}

	session, err := s.app.GetSession(ctx, sessionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&duelrpc.SessionResponse{Session: session}), nil
}

func (s *Service) ListSessions(ctx context.Context, req *connect.Request[duelrpc.ListSessionsRequest]) (*connect.Response[duelrpc.ListSessionsResponse], error) {
	gameID, err := parseID("game_id", req.Msg.GameID)
	if err != nil {
		return nil, err
	}

	sessions, err := s.app.ListSessions(ctx, gameID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return connect.NewResponse(&duelrpc.ListSessionsResponse{Sessions: sessions}), nil
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid %s: %w", field, err))
	}
	return id, nil
}
