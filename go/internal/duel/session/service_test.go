package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/eventduel/go/internal/duel/duelrpc"
	"github.com/mcdev12/eventduel/go/internal/models"
)

func newTestServer(t *testing.T) duelrpc.DuelServiceClient {
	t.Helper()
	app := NewApp(NewMemoryRepository(), nil, StaticCatalog{})
	mux := http.NewServeMux()
	path, handler := duelrpc.NewDuelServiceHandler(NewService(app))
	mux.Handle(path, handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return duelrpc.NewDuelServiceClient(server.Client(), server.URL)
}

func TestServiceRoundTrip(t *testing.T) {
	client := newTestServer(t)
	ctx := context.Background()
	gameID := uuid.New().String()
	p1, p2 := uuid.New().String(), uuid.New().String()

	created, err := client.CreateSession(ctx, connect.NewRequest(&duelrpc.CreateSessionRequest{GameID: gameID}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created.Msg.Created || created.Msg.Session.Status != models.SessionStatusPending {
		t.Fatalf("unexpected create response: %+v", created.Msg)
	}
	sessionID := created.Msg.Session.ID.String()

	for slot, who := range map[models.Slot]string{models.SlotP1: p1, models.SlotP2: p2} {
		_, err := client.JoinSession(ctx, connect.NewRequest(&duelrpc.JoinSessionRequest{
			SessionID: sessionID, Slot: slot, ParticipantID: who,
		}))
		if err != nil {
			t.Fatalf("join %s: %v", slot, err)
		}
	}

	activated, err := client.ActivateSession(ctx, connect.NewRequest(&duelrpc.ActivateSessionRequest{SessionID: sessionID}))
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if activated.Msg.Session.Status != models.SessionStatusActive {
		t.Fatalf("expected active, got %s", activated.Msg.Session.Status)
	}

	_, err = client.SubmitProgress(ctx, connect.NewRequest(&duelrpc.SubmitProgressRequest{
		SessionID: sessionID, PlayerID: p1, Payload: models.ResultPayload{Score: 2, AttemptedQuestions: 2},
	}))
	if err != nil {
		t.Fatalf("progress: %v", err)
	}

	ended, err := client.EndSession(ctx, connect.NewRequest(&duelrpc.EndSessionRequest{SessionID: sessionID}))
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	s := ended.Msg.Session
	if s.Status != models.SessionStatusCompleted || s.EndReason != models.EndReasonHostEnded {
		t.Fatalf("unexpected end response: %+v", s)
	}
	if s.Winner == nil || s.Winner.String() != p1 {
		t.Fatalf("expected p1 to win, got %v", s.Winner)
	}

	list, err := client.ListSessions(ctx, connect.NewRequest(&duelrpc.ListSessionsRequest{GameID: gameID}))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Msg.Sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(list.Msg.Sessions))
	}
}

func TestServiceErrorCodes(t *testing.T) {
	client := newTestServer(t)
	ctx := context.Background()

	created, err := client.CreateSession(ctx, connect.NewRequest(&duelrpc.CreateSessionRequest{GameID: uuid.New().String()}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sessionID := created.Msg.Session.ID.String()

	tests := []struct {
		name string
		call func() error
		want connect.Code
	}{
		{
			name: "malformed id",
			call: func() error {
				_, err := client.GetSession(ctx, connect.NewRequest(&duelrpc.GetSessionRequest{SessionID: "nope"}))
				return err
			},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "unknown session",
			call: func() error {
				_, err := client.GetSession(ctx, connect.NewRequest(&duelrpc.GetSessionRequest{SessionID: uuid.New().String()}))
				return err
			},
			want: connect.CodeNotFound,
		},
		{
			name: "activate with empty slots",
			call: func() error {
				_, err := client.ActivateSession(ctx, connect.NewRequest(&duelrpc.ActivateSessionRequest{SessionID: sessionID}))
				return err
			},
			want: connect.CodeFailedPrecondition,
		},
		{
			name: "end pending session",
			call: func() error {
				_, err := client.EndSession(ctx, connect.NewRequest(&duelrpc.EndSessionRequest{SessionID: sessionID}))
				return err
			},
			want: connect.CodeFailedPrecondition,
		},
		{
			name: "invalid slot",
			call: func() error {
				_, err := client.JoinSession(ctx, connect.NewRequest(&duelrpc.JoinSessionRequest{
					SessionID: sessionID, Slot: "p9", ParticipantID: uuid.New().String(),
				}))
				return err
			},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "non participant final",
			call: func() error {
				_, err := client.SubmitFinalResult(ctx, connect.NewRequest(&duelrpc.SubmitFinalResultRequest{
					SessionID: sessionID, PlayerID: uuid.New().String(),
				}))
				return err
			},
			want: connect.CodePermissionDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := connect.CodeOf(err); got != tt.want {
				t.Fatalf("expected code %s, got %s (%v)", tt.want, got, err)
			}
		})
	}
}
