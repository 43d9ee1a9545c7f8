package session

import (
	"errors"

	"connectrpc.com/connect"
	"github.com/mcdev12/eventduel/go/internal/duel/lifecycle"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrSessionExists  = errors.New("an open session already exists for this game")
	ErrInvalidSlot    = errors.New("invalid slot")
	ErrSlotTaken      = errors.New("slot already taken")
	ErrAlreadyJoined  = errors.New("participant already holds the other slot")
	ErrNotJoinable    = errors.New("session is not accepting players")
	ErrNotReady       = errors.New("both slots must be filled before activation")
	ErrNotActive      = errors.New("session is not active")
	ErrNotParticipant = errors.New("player is not a participant of this session")
	ErrInvalidPayload = errors.New("invalid result payload")
	ErrInvalidConfig  = errors.New("invalid game config")
)

// connectCode maps store errors onto Connect status codes.
func connectCode(err error) connect.Code {
	switch {
	case errors.Is(err, ErrNotFound):
		return connect.CodeNotFound
	case errors.Is(err, ErrInvalidSlot),
		errors.Is(err, ErrInvalidPayload),
		errors.Is(err, ErrInvalidConfig):
		return connect.CodeInvalidArgument
	case errors.Is(err, ErrSlotTaken),
		errors.Is(err, ErrAlreadyJoined),
		errors.Is(err, ErrSessionExists):
		return connect.CodeAlreadyExists
	case errors.Is(err, ErrNotParticipant):
		return connect.CodePermissionDenied
	case errors.Is(err, ErrNotJoinable),
		errors.Is(err, ErrNotReady),
		errors.Is(err, ErrNotActive),
		errors.Is(err, lifecycle.ErrInvalidTransition):
		return connect.CodeFailedPrecondition
	default:
		return connect.CodeInternal
	}
}

func toConnectError(err error) error {
	return connect.NewError(connectCode(err), err)
}
