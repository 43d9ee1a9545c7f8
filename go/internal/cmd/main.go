package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := loadCatalog(cfg.GamesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load games catalog")
	}

	var pool *pgxpool.Pool
	if cfg.StoreBackend == backendPostgres {
		pool, err = setupDatabase(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to set up database")
		}
		defer pool.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services, err := setupServices(cfg, pool, catalog, reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := services.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway stopped with error")
		}
	}()
	if services.Orchestrator != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := services.Orchestrator.Run(ctx); err != nil {
				log.Error().Err(err).Msg("orchestrator stopped with error")
			}
		}()
	}

	server := setupServer(cfg, services, reg)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("store_backend", cfg.StoreBackend).
			Bool("orchestrator", services.Orchestrator != nil).
			Msg("eventduel server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	wg.Wait()

	log.Info().Msg("eventduel server stopped")
}
