// Package duelrpc holds the Connect bindings for the duel session store:
// procedure names, the handler and client constructors.
package duelrpc

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// DuelServiceName is the fully-qualified name of the DuelService.
const DuelServiceName = "eventduel.duel.v1.DuelService"

const (
	DuelServiceCreateSessionProcedure     = "/eventduel.duel.v1.DuelService/CreateSession"
	DuelServiceJoinSessionProcedure       = "/eventduel.duel.v1.DuelService/JoinSession"
	DuelServiceActivateSessionProcedure   = "/eventduel.duel.v1.DuelService/ActivateSession"
	DuelServiceEndSessionProcedure        = "/eventduel.duel.v1.DuelService/EndSession"
	DuelServiceSubmitProgressProcedure    = "/eventduel.duel.v1.DuelService/SubmitProgress"
	DuelServiceSubmitFinalResultProcedure = "/eventduel.duel.v1.DuelService/SubmitFinalResult"
	DuelServiceGetSessionProcedure        = "/eventduel.duel.v1.DuelService/GetSession"
	DuelServiceListSessionsProcedure      = "/eventduel.duel.v1.DuelService/ListSessions"
)

// DuelServiceClient is the client API for the DuelService.
type DuelServiceClient interface {
	CreateSession(context.Context, *connect.Request[CreateSessionRequest]) (*connect.Response[CreateSessionResponse], error)
	JoinSession(context.Context, *connect.Request[JoinSessionRequest]) (*connect.Response[SessionResponse], error)
	ActivateSession(context.Context, *connect.Request[ActivateSessionRequest]) (*connect.Response[SessionResponse], error)
	EndSession(context.Context, *connect.Request[EndSessionRequest]) (*connect.Response[SessionResponse], error)
	SubmitProgress(context.Context, *connect.Request[SubmitProgressRequest]) (*connect.Response[SubmitProgressResponse], error)
	SubmitFinalResult(context.Context, *connect.Request[SubmitFinalResultRequest]) (*connect.Response[SessionResponse], error)
	GetSession(context.Context, *connect.Request[GetSessionRequest]) (*connect.Response[SessionResponse], error)
	ListSessions(context.Context, *connect.Request[ListSessionsRequest]) (*connect.Response[ListSessionsResponse], error)
}

// DuelServiceHandler is the server API for the DuelService.
type DuelServiceHandler interface {
	CreateSession(context.Context, *connect.Request[CreateSessionRequest]) (*connect.Response[CreateSessionResponse], error)
	JoinSession(context.Context, *connect.Request[JoinSessionRequest]) (*connect.Response[SessionResponse], error)
	ActivateSession(context.Context, *connect.Request[ActivateSessionRequest]) (*connect.Response[SessionResponse], error)
	EndSession(context.Context, *connect.Request[EndSessionRequest]) (*connect.Response[SessionResponse], error)
	SubmitProgress(context.Context, *connect.Request[SubmitProgressRequest]) (*connect.Response[SubmitProgressResponse], error)
	SubmitFinalResult(context.Context, *connect.Request[SubmitFinalResultRequest]) (*connect.Response[SessionResponse], error)
	GetSession(context.Context, *connect.Request[GetSessionRequest]) (*connect.Response[SessionResponse], error)
	ListSessions(context.Context, *connect.Request[ListSessionsRequest]) (*connect.Response[ListSessionsResponse], error)
}

// NewDuelServiceClient constructs a client for the DuelService at baseURL.
func NewDuelServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) DuelServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &duelServiceClient{
		createSession:     connect.NewClient[CreateSessionRequest, CreateSessionResponse](httpClient, baseURL+DuelServiceCreateSessionProcedure, opts...),
		joinSession:       connect.NewClient[JoinSessionRequest, SessionResponse](httpClient, baseURL+DuelServiceJoinSessionProcedure, opts...),
		activateSession:   connect.NewClient[ActivateSessionRequest, SessionResponse](httpClient, baseURL+DuelServiceActivateSessionProcedure, opts...),
		endSession:        connect.NewClient[EndSessionRequest, SessionResponse](httpClient, baseURL+DuelServiceEndSessionProcedure, opts...),
		submitProgress:    connect.NewClient[SubmitProgressRequest, SubmitProgressResponse](httpClient, baseURL+DuelServiceSubmitProgressProcedure, opts...),
		submitFinalResult: connect.NewClient[SubmitFinalResultRequest, SessionResponse](httpClient, baseURL+DuelServiceSubmitFinalResultProcedure, opts...),
		getSession:        connect.NewClient[GetSessionRequest, SessionResponse](httpClient, baseURL+DuelServiceGetSessionProcedure, opts...),
		listSessions:      connect.NewClient[ListSessionsRequest, ListSessionsResponse](httpClient, baseURL+DuelServiceListSessionsProcedure, opts...),
	}
}

type duelServiceClient struct {
	createSession     *connect.Client[CreateSessionRequest, CreateSessionResponse]
	joinSession       *connect.Client[JoinSessionRequest, SessionResponse]
	activateSession   *connect.Client[ActivateSessionRequest, SessionResponse]
	endSession        *connect.Client[EndSessionRequest, SessionResponse]
	submitProgress    *connect.Client[SubmitProgressRequest, SubmitProgressResponse]
	submitFinalResult *connect.Client[SubmitFinalResultRequest, SessionResponse]
	getSession        *connect.Client[GetSessionRequest, SessionResponse]
	listSessions      *connect.Client[ListSessionsRequest, ListSessionsResponse]
}

func (c *duelServiceClient) CreateSession(ctx context.Context, req *connect.Request[CreateSessionRequest]) (*connect.Response[CreateSessionResponse], error) {
	return c.createSession.CallUnary(ctx, req)
}

func (c *duelServiceClient) JoinSession(ctx context.Context, req *connect.Request[JoinSessionRequest]) (*connect.Response[SessionResponse], error) {
	return c.joinSession.CallUnary(ctx, req)
}

func (c *duelServiceClient) ActivateSession(ctx context.Context, req *connect.Request[ActivateSessionRequest]) (*connect.Response[SessionResponse], error) {
	return c.activateSession.CallUnary(ctx, req)
}

func (c *duelServiceClient) EndSession(ctx context.Context, req *connect.Request[EndSessionRequest]) (*connect.Response[SessionResponse], error) {
	return c.endSession.CallUnary(ctx, req)
}

func (c *duelServiceClient) SubmitProgress(ctx context.Context, req *connect.Request[SubmitProgressRequest]) (*connect.Response[SubmitProgressResponse], error) {
	return c.submitProgress.CallUnary(ctx, req)
}

func (c *duelServiceClient) SubmitFinalResult(ctx context.Context, req *connect.Request[SubmitFinalResultRequest]) (*connect.Response[SessionResponse], error) {
	return c.submitFinalResult.CallUnary(ctx, req)
}

func (c *duelServiceClient) GetSession(ctx context.Context, req *connect.Request[GetSessionRequest]) (*connect.Response[SessionResponse], error) {
	return c.getSession.CallUnary(ctx, req)
}

func (c *duelServiceClient) ListSessions(ctx context.Context, req *connect.Request[ListSessionsRequest]) (*connect.Response[ListSessionsResponse], error) {
	return c.listSessions.CallUnary(ctx, req)
}

// NewDuelServiceHandler builds an HTTP handler serving every DuelService
// procedure. It returns the path prefix to mount the handler on.
func NewDuelServiceHandler(svc DuelServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(DuelServiceCreateSessionProcedure, connect.NewUnaryHandler(DuelServiceCreateSessionProcedure, svc.CreateSession, opts...))
	mux.Handle(DuelServiceJoinSessionProcedure, connect.NewUnaryHandler(DuelServiceJoinSessionProcedure, svc.JoinSession, opts...))
	mux.Handle(DuelServiceActivateSessionProcedure, connect.NewUnaryHandler(DuelServiceActivateSessionProcedure, svc.ActivateSession, opts...))
	mux.Handle(DuelServiceEndSessionProcedure, connect.NewUnaryHandler(DuelServiceEndSessionProcedure, svc.EndSession, opts...))
	mux.Handle(DuelServiceSubmitProgressProcedure, connect.NewUnaryHandler(DuelServiceSubmitProgressProcedure, svc.SubmitProgress, opts...))
	mux.Handle(DuelServiceSubmitFinalResultProcedure, connect.NewUnaryHandler(DuelServiceSubmitFinalResultProcedure, svc.SubmitFinalResult, opts...))
	mux.Handle(DuelServiceGetSessionProcedure, connect.NewUnaryHandler(DuelServiceGetSessionProcedure, svc.GetSession, opts...))
	mux.Handle(DuelServiceListSessionsProcedure, connect.NewUnaryHandler(DuelServiceListSessionsProcedure, svc.ListSessions, opts...))

	return "/" + DuelServiceName + "/", mux
}
