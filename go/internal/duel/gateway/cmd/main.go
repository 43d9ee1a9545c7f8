package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/eventduel/go/internal/duel/duelrpc"
	"github.com/mcdev12/eventduel/go/internal/duel/gateway"
)

type config struct {
	Port     string `env:"GATEWAY_PORT" envDefault:"8081"`
	NATSURL  string `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	StoreURL string `env:"STORE_URL" envDefault:"http://localhost:8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
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
		Str("port", cfg.Port).
		Msg("starting duel gateway")

	client := duelrpc.NewDuelServiceClient(&http.Client{Timeout: 10 * time.Second}, cfg.StoreURL)

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.ConsumeJetStream = true
	gatewayConfig.JetStreamConfig.URL = cfg.NATSURL

	reg := prometheus.NewRegistry()
	gatewayService, err := gateway.NewService(gatewayConfig, gateway.NewClientStateProvider(client), gateway.NewMetrics(reg))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway service")
	}

	mux := http.NewServeMux()
	gatewayService.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"service":     "duel-gateway",
			"connections": gatewayService.Stats().TotalConnections,
		})
	})

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     cors.AllowAll().Handler(mux),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	<-done

	log.Info().Msg("duel gateway shutdown complete")
}
