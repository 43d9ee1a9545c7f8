package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/eventduel/go/internal/models"
	"github.com/rs/zerolog/log"
)

var (
	// ErrAlreadySubmitted is returned when a final result was already sent
	// for the session. The caller treats it as success.
	ErrAlreadySubmitted = errors.New("final result already submitted")
	// ErrFinalNotRecorded is returned when the store accepted the call but
	// the session had already completed without this player's final.
	ErrFinalNotRecorded = errors.New("session completed before the final result was recorded")
)

// SubmitterConfig bounds the final submission retry.
type SubmitterConfig struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultSubmitterConfig() SubmitterConfig {
	return SubmitterConfig{
		MaxTries:        4,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// Submitter sends one player's progress and final result to the store.
// Progress is best-effort. The final result is sent at most once per
// session and retried with backoff.
type Submitter struct {
	store    StoreClient
	identity IdentityStore
	cfg      SubmitterConfig

	mu        sync.Mutex
	submitted map[uuid.UUID]struct{}
}

func NewSubmitter(store StoreClient, identity IdentityStore, cfg SubmitterConfig) *Submitter {
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 1
	}
	return &Submitter{
		store:     store,
		identity:  identity,
		cfg:       cfg,
		submitted: make(map[uuid.UUID]struct{}),
	}
}

// SubmitProgress reports an intermediate score. Failures are logged and dropped.
func (s *Submitter) SubmitProgress(ctx context.Context, payload models.ResultPayload) {
	id, err := s.identity.Load()
	if err != nil {
		log.Debug().Err(err).Msg("skipping progress submission")
		return
	}
	if err := s.store.SubmitProgress(ctx, id.SessionID, id.PlayerID, payload); err != nil {
		log.Debug().
			Err(err).
			Str("session_id", id.SessionID.String()).
			Str("player_id", id.PlayerID.String()).
			Msg("progress submission failed")
	}
}

// SubmitFinal sends the final result. The first caller for a session wins
// the guard; later callers get ErrAlreadySubmitted without touching the
// network. A missing identity skips the submission with ErrMissingIdentity.
// On success the stored identity is cleared.
func (s *Submitter) SubmitFinal(ctx context.Context, payload models.ResultPayload) (*models.Session, error) {
	id, err := s.identity.Load()
	if err != nil {
		log.Warn().Err(err).Msg("skipping final submission")
		if errors.Is(err, ErrMissingIdentity) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMissingIdentity, err)
	}

	if !s.claim(id.SessionID) {
		return nil, ErrAlreadySubmitted
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialInterval
	if s.cfg.MaxInterval > 0 {
		b.MaxInterval = s.cfg.MaxInterval
	}

	session, err := backoff.Retry(ctx, func() (*models.Session, error) {
		session, err := s.store.SubmitFinalResult(ctx, id.SessionID, id.PlayerID, payload)
		if err != nil && isPermanent(err) {
			return nil, backoff.Permanent(err)
		}
		return session, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.cfg.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().
				Err(err).
				Str("session_id", id.SessionID.String()).
				Dur("retry_in", next).
				Msg("final submission failed, retrying")
		}),
	)
	if err != nil {
		log.Error().
			Err(err).
			Str("session_id", id.SessionID.String()).
			Str("player_id", id.PlayerID.String()).
			Msg("final submission gave up")
		return nil, fmt.Errorf("failed to submit final result: %w", err)
	}

	if err := s.identity.Clear(); err != nil {
		log.Warn().Err(err).Msg("failed to clear identity after final submission")
	}

	if !finalRecorded(session, id.PlayerID) {
		log.Warn().
			Str("session_id", id.SessionID.String()).
			Str("player_id", id.PlayerID.String()).
			Int("score", payload.Score).
			Str("end_reason", string(session.EndReason)).
			Msg("final result arrived after the session completed")
		return session, ErrFinalNotRecorded
	}

	log.Info().
		Str("session_id", id.SessionID.String()).
		Str("player_id", id.PlayerID.String()).
		Int("score", payload.Score).
		Msg("final result submitted")
	return session, nil
}

// Submitted reports whether a final result was already claimed for the session.
func (s *Submitter) Submitted(sessionID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.submitted[sessionID]
	return ok
}

func (s *Submitter) claim(sessionID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submitted[sessionID]; ok {
		return false
	}
	s.submitted[sessionID] = struct{}{}
	return true
}

// finalRecorded reports whether the store's answer shows the player's final.
// A session still in play, or no session at all, counts as recorded.
func finalRecorded(s *models.Session, playerID uuid.UUID) bool {
	if s == nil || s.Status != models.SessionStatusCompleted {
		return true
	}
	slot, ok := s.Players.SlotOf(playerID)
	return ok && s.Players.Get(slot).FinalSubmitted
}

func isPermanent(err error) bool {
	switch connect.CodeOf(err) {
	case connect.CodeInvalidArgument, connect.CodeFailedPrecondition,
		connect.CodeNotFound, connect.CodePermissionDenied:
		return true
	}
	return false
}
