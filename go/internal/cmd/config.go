package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/eventduel/go/internal/duel/session"
	"github.com/mcdev12/eventduel/go/internal/models"
)

const (
	backendMemory   = "memory"
	backendPostgres = "postgres"
)

type Config struct {
	Port                string        `env:"PORT" envDefault:"8080"`
	StoreBackend        string        `env:"STORE_BACKEND" envDefault:"memory"`
	GamesFile           string        `env:"GAMES_FILE" envDefault:"games.yaml"`
	OrchestratorEnabled bool          `env:"ORCHESTRATOR_ENABLED" envDefault:"true"`
	MatchGrace          time.Duration `env:"MATCH_GRACE" envDefault:"2s"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
}

func loadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	switch cfg.StoreBackend {
	case backendMemory, backendPostgres:
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	return cfg, nil
}

// gamesFile is the on-disk games catalog:
//
//	default:
//	  countdown_timer: 5
//	  game_session_timer: 60
//	games:
//	  3f1c...: {countdown_timer: 3, game_session_timer: 90}
type gamesFile struct {
	Default models.GameConfig            `yaml:"default"`
	Games   map[string]models.GameConfig `yaml:"games"`
}

// loadCatalog reads the games catalog. A missing file yields the built-in defaults.
func loadCatalog(path string) (session.StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Msg("games catalog not found, using defaults")
		return session.StaticCatalog{}, nil
	}
	if err != nil {
		return session.StaticCatalog{}, fmt.Errorf("failed to read games catalog: %w", err)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (session.StaticCatalog, error) {
	var file gamesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return session.StaticCatalog{}, fmt.Errorf("failed to parse games catalog: %w", err)
	}

	catalog := session.StaticCatalog{
		Default: file.Default,
		Games:   make(map[uuid.UUID]models.GameConfig, len(file.Games)),
	}
	for key, cfg := range file.Games {
		id, err := uuid.Parse(key)
		if err != nil {
			return session.StaticCatalog{}, fmt.Errorf("invalid game id %q in catalog: %w", key, err)
		}
		if cfg.GameSessionTimer <= 0 || cfg.CountdownTimer < 0 {
			return session.StaticCatalog{}, fmt.Errorf("invalid timers for game %s", key)
		}
		catalog.Games[id] = cfg
	}
	return catalog, nil
}
