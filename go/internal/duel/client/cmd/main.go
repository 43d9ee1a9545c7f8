package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/eventduel/go/internal/duel/client"
	"github.com/mcdev12/eventduel/go/internal/duel/duelrpc"
	"github.com/mcdev12/eventduel/go/internal/models"
)

type config struct {
	Role           string        `env:"DUEL_ROLE" envDefault:"player"`
	GameID         uuid.UUID     `env:"GAME_ID,required"`
	ParticipantID  uuid.UUID     `env:"PARTICIPANT_ID"`
	Slot           models.Slot   `env:"SLOT" envDefault:"p1"`
	StoreURL       string        `env:"STORE_URL" envDefault:"http://localhost:8080"`
	GatewayURL     string        `env:"GATEWAY_URL" envDefault:"ws://localhost:8080"`
	IdentityFile   string        `env:"IDENTITY_FILE" envDefault:".eventduel/identity.yaml"`
	Questions      int           `env:"QUESTIONS" envDefault:"10"`
	AnswerInterval time.Duration `env:"ANSWER_INTERVAL" envDefault:"2s"`
	Accuracy       float64       `env:"ACCURACY" envDefault:"0.7"`
	Points         int           `env:"POINTS_PER_QUESTION" envDefault:"10"`
	EndGrace       time.Duration `env:"END_GRACE" envDefault:"2s"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := env.ParseAs[config]()
	if err != nil {
		log.Fatal().Err(err).Msg("parse config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if cfg.ParticipantID == uuid.Nil {
		cfg.ParticipantID = uuid.New()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := client.NewConnectStore(duelrpc.NewDuelServiceClient(&http.Client{Timeout: 10 * time.Second}, cfg.StoreURL))

	chCfg := client.DefaultChannelConfig(cfg.GatewayURL)
	chCfg.UserID = cfg.ParticipantID.String()
	sub := client.NewChannel(chCfg).Subscribe(ctx, cfg.GameID)
	defer sub.Close()

	log.Info().
		Str("role", cfg.Role).
		Str("game_id", cfg.GameID.String()).
		Str("participant_id", cfg.ParticipantID.String()).
		Msg("starting duel bot")

	switch cfg.Role {
	case "host":
		runHost(ctx, cfg, store, sub)
	case "player":
		runPlayer(ctx, cfg, store, sub)
	default:
		log.Fatal().Str("role", cfg.Role).Msg("unknown role, expected host or player")
	}
}

func runHost(ctx context.Context, cfg config, store client.StoreClient, sub *client.Subscription) {
	host := client.NewHost(client.HostConfig{
		GameID:       cfg.GameID,
		AutoActivate: true,
		EndGrace:     cfg.EndGrace,
	}, store).WithRefresher(sub)
	go func() {
		if err := host.Run(ctx, sub.Sessions()); err != nil {
			log.Error().Err(err).Msg("host loop failed")
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := host.CreateSession(ctx); err != nil {
				log.Warn().Err(err).Msg("create session failed")
			}
			st := host.Status()
			if st.Phase != "" {
				log.Info().
					Str("phase", string(st.Phase)).
					Int("countdown", st.Countdown).
					Int("match_remaining", st.MatchRemaining).
					Msg("host clock")
			}
			if last := st.Views.LastCompleted; last != nil && st.Views.Active == nil && st.Views.Pending == nil {
				evt := log.Info().Str("session_id", last.ID.String()).Str("end_reason", string(last.EndReason))
				if last.Winner != nil {
					evt = evt.Str("winner", last.Winner.String())
				}
				evt.Msg("last duel result")
			}
		}
	}
}

func runPlayer(ctx context.Context, cfg config, store client.StoreClient, sub *client.Subscription) {
	player := client.NewPlayer(client.PlayerConfig{
		GameID:         cfg.GameID,
		ParticipantID:  cfg.ParticipantID,
		Slot:           cfg.Slot,
		TotalQuestions: cfg.Questions,
	}, store, client.NewFileIdentityStore(cfg.IdentityFile), client.DefaultSubmitterConfig()).WithRefresher(sub)

	go func() {
		if err := player.Run(ctx, sub.Sessions()); err != nil {
			log.Error().Err(err).Msg("player loop failed")
		}
	}()

	ticker := time.NewTicker(cfg.AnswerInterval)
	defer ticker.Stop()
	joined := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		st := player.Status()
		switch {
		case st.State == client.StateResult:
			log.Info().Str("outcome", string(st.Outcome)).Int("score", st.Score).Msg("duel finished")
			return
		case st.State == client.StateSubmitFailed:
			log.Error().Str("error", st.SubmitError).Msg("final result could not be submitted")
			return
		case !joined && st.SessionID == uuid.Nil:
			if _, err := player.Join(ctx); err != nil {
				if !errors.Is(err, client.ErrNoOpenSession) {
					log.Warn().Err(err).Msg("join failed")
				}
				continue
			}
			joined = true
		case st.State == client.StatePlaying:
			if err := player.Answer(ctx, rand.Float64() < cfg.Accuracy, cfg.Points); err != nil && !errors.Is(err, client.ErrNotPlaying) {
				log.Warn().Err(err).Msg("answer failed")
			}
		}
	}
}
