package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/eventduel/go/internal/duel/lifecycle"
	"github.com/mcdev12/eventduel/go/internal/models"
	"github.com/rs/zerolog/log"
)

// DisplayState is what a player's screen shows.
type DisplayState string

const (
	StateWaiting       DisplayState = "waiting"
	StateCountdown     DisplayState = "countdown"
	StatePlaying       DisplayState = "playing"
	StateFinishedEarly DisplayState = "finished_early"
	StateTimeUp        DisplayState = "time_up"
	StateResult        DisplayState = "result"
	StateSubmitFailed  DisplayState = "submit_failed"
)

var (
	ErrNoOpenSession = errors.New("no open session to join")
	ErrNotPlaying    = errors.New("match is not in progress")
)

// PlayerConfig identifies a player process.
type PlayerConfig struct {
	GameID         uuid.UUID
	ParticipantID  uuid.UUID
	Slot           models.Slot
	TotalQuestions int
}

// PlayerStatus is a snapshot of the player's display.
type PlayerStatus struct {
	State          DisplayState
	SessionID      uuid.UUID
	Countdown      int
	MatchRemaining int
	Score          int
	Attempted      int
	Outcome        models.Outcome
	SubmitFailed   bool
	SubmitError    string
}

type finalResult struct {
	session *models.Session
	err     error
}

// Player is one player process. All state changes happen on the goroutine
// running Run.
type Player struct {
	loop
	cfg       PlayerConfig
	store     StoreClient
	identity  IdentityStore
	submitter *Submitter
	clock     clockwork.Clock
	sc        *SessionContext
	refresher Refresher
	results   chan finalResult

	// owned by the loop
	sessionID    uuid.UUID
	timer        *Coordinator
	timerSession uuid.UUID
	matchStarted time.Time
	progress     models.ResultPayload
	finalSent    bool

	mu     sync.RWMutex
	status PlayerStatus
}

func NewPlayer(cfg PlayerConfig, store StoreClient, identity IdentityStore, submitCfg SubmitterConfig) *Player {
	return &Player{
		loop:      newLoop(),
		cfg:       cfg,
		store:     store,
		identity:  identity,
		submitter: NewSubmitter(store, identity, submitCfg),
		clock:     clockwork.NewRealClock(),
		sc:        NewSessionContext(cfg.GameID),
		results:   make(chan finalResult, 1),
		status:    PlayerStatus{State: StateWaiting},
	}
}

// WithClock replaces the clock driving the local timers.
func (p *Player) WithClock(clock clockwork.Clock) *Player {
	p.clock = clock
	return p
}

// WithRefresher lets the player ask its feed for a fresh list after it
// joins or finishes.
func (p *Player) WithRefresher(r Refresher) *Player {
	p.refresher = r
	return p
}

// Context returns the player's own session context.
func (p *Player) Context() *SessionContext {
	return p.sc
}

// Status returns the current display snapshot.
func (p *Player) Status() PlayerStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Run is the player's event loop. It consumes pushed session lists until
// updates is closed or ctx ends, and always stops the local timer on exit.
func (p *Player) Run(ctx context.Context, updates <-chan []models.Session) error {
	defer p.stopTimer()

	if id, err := p.identity.Load(); err == nil && id.PlayerID == p.cfg.ParticipantID {
		p.sessionID = id.SessionID
		log.Info().Str("session_id", id.SessionID.String()).Msg("resuming seat from stored identity")
		refresh(ctx, p.refresher)
	}

	for {
		var ticks <-chan Tick
		if p.timer != nil {
			ticks = p.timer.Ticks()
		}

		select {
		case <-ctx.Done():
			return nil
		case list, ok := <-updates:
			if !ok {
				return nil
			}
			p.onPush(ctx, list)
		case t, ok := <-ticks:
			if !ok {
				p.stopTimer()
				continue
			}
			p.onTick(ctx, t)
		case cmd := <-p.commands:
			cmd.done <- cmd.run(ctx)
		case res := <-p.results:
			p.onFinalResult(ctx, res)
		}
	}
}

// Join takes the configured slot in the game's pending session.
func (p *Player) Join(ctx context.Context) (*models.Session, error) {
	var joined *models.Session
	err := p.do(ctx, func(ctx context.Context) error {
		pending := p.sc.Views().Pending
		if pending == nil {
			return ErrNoOpenSession
		}
		s, err := p.store.JoinSession(ctx, pending.ID, p.cfg.Slot, p.cfg.ParticipantID)
		if err != nil {
			return fmt.Errorf("failed to join session: %w", err)
		}
		if s.ID != p.sessionID {
			p.stopTimer()
			p.reset()
		}
		p.sessionID = s.ID
		if err := p.identity.Save(Identity{PlayerID: p.cfg.ParticipantID, SessionID: s.ID}); err != nil {
			log.Warn().Err(err).Msg("failed to persist identity")
		}
		p.setStatus(func(st *PlayerStatus) {
			*st = PlayerStatus{State: StateWaiting, SessionID: s.ID}
		})
		refresh(ctx, p.refresher)
		joined = s
		return nil
	})
	return joined, err
}

// Answer records one answered question. The last question sends the final
// result immediately; every other one sends best-effort progress.
func (p *Player) Answer(ctx context.Context, correct bool, points int) error {
	return p.do(ctx, func(ctx context.Context) error {
		if p.Status().State != StatePlaying || p.finalSent {
			return ErrNotPlaying
		}
		p.progress.AttemptedQuestions++
		if correct {
			p.progress.Score += points
		}
		p.progress.TimeTakenSec = int(p.clock.Since(p.matchStarted) / time.Second)
		payload := p.progress

		p.setStatus(func(st *PlayerStatus) {
			st.Score = payload.Score
			st.Attempted = payload.AttemptedQuestions
		})

		if p.cfg.TotalQuestions > 0 && payload.AttemptedQuestions >= p.cfg.TotalQuestions {
			p.setStatus(func(st *PlayerStatus) { st.State = StateFinishedEarly })
			p.sendFinal(ctx)
			return nil
		}

		go p.submitter.SubmitProgress(ctx, payload)
		return nil
	})
}

func (p *Player) onPush(ctx context.Context, list []models.Session) {
	views := p.sc.Apply(list)
	s := p.mySession(views)

	if s == nil {
		if p.sessionID != uuid.Nil {
			log.Info().Str("session_id", p.sessionID.String()).Msg("session disappeared from feed")
			p.stopTimer()
			p.reset()
			p.setStatus(func(st *PlayerStatus) { *st = PlayerStatus{State: StateWaiting} })
		}
		return
	}

	switch s.Status {
	case models.SessionStatusPending:
		p.setStatus(func(st *PlayerStatus) {
			st.SessionID = s.ID
			st.State = StateWaiting
		})

	case models.SessionStatusActive:
		if p.timerSession != s.ID {
			p.stopTimer()
			p.resume(s)
			p.timer = StartCoordinator(ctx, p.clock, s.GameConfig)
			p.timerSession = s.ID
			log.Debug().Str("session_id", s.ID.String()).Msg("local match clock started")
		}

	case models.SessionStatusCompleted:
		p.stopTimer()
		outcome := s.OutcomeFor(p.cfg.ParticipantID)
		p.setStatus(func(st *PlayerStatus) {
			st.SessionID = s.ID
			st.State = StateResult
			st.Outcome = outcome
			st.MatchRemaining = 0
		})
	}
}

// resume carries what the store already recorded for this player into the
// local counters, so a restarted process never reports less than before.
func (p *Player) resume(s *models.Session) {
	slot, ok := s.Players.SlotOf(p.cfg.ParticipantID)
	if !ok {
		return
	}
	recorded := s.Players.Get(slot)
	if recorded.AttemptedQuestions > p.progress.AttemptedQuestions {
		p.progress = models.ResultPayload{
			Score:              recorded.Score,
			AttemptedQuestions: recorded.AttemptedQuestions,
			TimeTakenSec:       recorded.TimeTakenSec,
		}
		log.Info().
			Str("session_id", s.ID.String()).
			Int("score", recorded.Score).
			Int("attempted_questions", recorded.AttemptedQuestions).
			Msg("restored recorded progress")
	}
	if recorded.FinalSubmitted {
		p.finalSent = true
	}
	progress, finished := p.progress, p.finalSent
	p.setStatus(func(st *PlayerStatus) {
		st.Score = progress.Score
		st.Attempted = progress.AttemptedQuestions
		if finished {
			st.State = StateFinishedEarly
		}
	})
}

// mySession finds the session this player sits in.
func (p *Player) mySession(views lifecycle.Views) *models.Session {
	if p.sessionID != uuid.Nil {
		return p.sc.Session(p.sessionID)
	}
	for _, s := range []*models.Session{views.Active, views.Pending} {
		if s == nil {
			continue
		}
		if _, ok := s.Players.SlotOf(p.cfg.ParticipantID); ok {
			p.sessionID = s.ID
			return s
		}
	}
	return nil
}

func (p *Player) onTick(ctx context.Context, t Tick) {
	switch t.Phase {
	case PhaseCountdown:
		finished := p.finalSent
		p.setStatus(func(st *PlayerStatus) {
			st.Countdown = t.Remaining
			if !finished {
				st.State = StateCountdown
			}
		})

	case PhaseMatch:
		if p.matchStarted.IsZero() {
			p.matchStarted = p.clock.Now()
		}
		finished := p.finalSent
		p.setStatus(func(st *PlayerStatus) {
			st.Countdown = 0
			st.MatchRemaining = t.Remaining
			switch {
			case finished:
			case st.State == StateCountdown || st.State == StateWaiting:
				st.State = StatePlaying
			}
		})

	case PhaseExpired:
		p.setStatus(func(st *PlayerStatus) {
			st.MatchRemaining = 0
			if st.State == StatePlaying {
				st.State = StateTimeUp
			}
		})
		if !p.finalSent {
			p.progress.TimeTakenSec = int(p.clock.Since(p.matchStarted) / time.Second)
			p.sendFinal(ctx)
		}
	}
}

// sendFinal dispatches the final result off the loop; the outcome comes
// back through p.results.
func (p *Player) sendFinal(ctx context.Context) {
	p.finalSent = true
	payload := p.progress
	go func() {
		s, err := p.submitter.SubmitFinal(ctx, payload)
		select {
		case p.results <- finalResult{session: s, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (p *Player) onFinalResult(ctx context.Context, res finalResult) {
	switch {
	case res.err == nil:
		if res.session != nil && res.session.Status == models.SessionStatusCompleted {
			p.onPush(ctx, p.mergeSession(*res.session))
		}
	case errors.Is(res.err, ErrAlreadySubmitted):
	case errors.Is(res.err, ErrMissingIdentity):
		// nothing was sent; the result still arrives with the next push
		log.Warn().Err(res.err).Msg("final result skipped")
		p.setStatus(func(st *PlayerStatus) { st.SubmitError = res.err.Error() })
	case errors.Is(res.err, ErrFinalNotRecorded):
		p.setStatus(func(st *PlayerStatus) { st.SubmitError = res.err.Error() })
		if res.session != nil {
			p.onPush(ctx, p.mergeSession(*res.session))
		}
	default:
		p.setStatus(func(st *PlayerStatus) {
			st.SubmitFailed = true
			st.SubmitError = res.err.Error()
			if st.State != StateResult {
				st.State = StateSubmitFailed
			}
		})
	}
	refresh(ctx, p.refresher)
}

// mergeSession returns the current list with s replacing its older copy.
func (p *Player) mergeSession(s models.Session) []models.Session {
	list := p.sc.Sessions()
	for i := range list {
		if list[i].ID == s.ID {
			list[i] = s
			return list
		}
	}
	return append(list, s)
}

func (p *Player) stopTimer() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Player) reset() {
	p.sessionID = uuid.Nil
	p.timerSession = uuid.Nil
	p.matchStarted = time.Time{}
	p.progress = models.ResultPayload{}
	p.finalSent = false
}

func (p *Player) setStatus(fn func(*PlayerStatus)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.status)
}
