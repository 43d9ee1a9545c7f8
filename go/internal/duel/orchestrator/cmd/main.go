package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/eventduel/go/internal/duel/duelrpc"
	"github.com/mcdev12/eventduel/go/internal/duel/orchestrator"
)

type config struct {
	StoreURL   string        `env:"STORE_URL" envDefault:"http://localhost:8080"`
	NATSURL    string        `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	Grace      time.Duration `env:"MATCH_GRACE" envDefault:"2s"`
	Workers    int           `env:"ORCHESTRATOR_WORKERS" envDefault:"4"`
	HealthAddr string        `env:"ORCHESTRATOR_HEALTH_ADDR" envDefault:":8082"`
	LogLevel   string        `env:"LOG_LEVEL" envDefault:"info"`
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

	log.Info().
		Str("store_url", cfg.StoreURL).
		Str("nats_url", cfg.NATSURL).
		Dur("grace", cfg.Grace).
		Msg("starting duel orchestrator")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := duelrpc.NewDuelServiceClient(&http.Client{Timeout: 30 * time.Second}, cfg.StoreURL)

	orch := orchestrator.NewOrchestrator(orchestrator.NewClientEnder(client), orchestrator.Config{
		Grace:      cfg.Grace,
		NumWorkers: cfg.Workers,
	})
	defer orch.Close()

	consumerCfg := orchestrator.DefaultConsumerConfig()
	consumerCfg.URL = cfg.NATSURL
	if err := orch.ConnectJetStream(ctx, consumerCfg); err != nil {
		log.Fatal().Err(err).Msg("failed to connect orchestrator to JetStream")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	server := &http.Server{
		Addr:         cfg.HealthAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health check server failed")
		}
	}()

	if err := orch.Run(ctx); err != nil {
		log.Error().Err(err).Msg("orchestrator failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health check server shutdown failed")
	}

	log.Info().Msg("duel orchestrator shutdown complete")
}
