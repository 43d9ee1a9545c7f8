package main

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcdev12/eventduel/go/internal/duel/gateway"
	"github.com/mcdev12/eventduel/go/internal/duel/orchestrator"
	"github.com/mcdev12/eventduel/go/internal/duel/outbox"
	"github.com/mcdev12/eventduel/go/internal/duel/session"
)

type Services struct {
	Sessions     *session.Service
	Gateway      *gateway.Service
	Orchestrator *orchestrator.Orchestrator
}

func setupServices(cfg Config, pool *pgxpool.Pool, catalog session.GameCatalog, reg prometheus.Registerer) (*Services, error) {
	// Wire up dependency injection chain
	// Repository layer → App layer → Service layer, with change notifiers
	// attached once their owners exist
	notifiers := session.Notifiers{}

	var repo session.Repository
	if pool != nil {
		repo = session.NewPostgresRepository(pool)
	} else {
		repo = session.NewMemoryRepository()
	}
	sessionApp := session.NewApp(repo, &notifiers, catalog)
	sessionService := session.NewService(sessionApp)

	// Event channel fan-out
	gatewayService, err := gateway.NewService(gateway.DefaultConfig(), sessionApp, gateway.NewMetrics(reg))
	if err != nil {
		return nil, err
	}
	notifiers = append(notifiers, gatewayService.Notifier())

	// Outbox rows feed the JetStream relay
	if pool != nil {
		notifiers = append(notifiers, outbox.NewApp(outbox.NewRepository(pool)))
	}

	services := &Services{
		Sessions: sessionService,
		Gateway:  gatewayService,
	}

	if cfg.OrchestratorEnabled {
		orchCfg := orchestrator.DefaultConfig()
		orchCfg.Grace = cfg.MatchGrace
		services.Orchestrator = orchestrator.NewOrchestrator(sessionApp, orchCfg)
		notifiers = append(notifiers, services.Orchestrator)
	}

	return services, nil
}
