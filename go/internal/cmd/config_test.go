package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/mcdev12/eventduel/go/internal/duel/session"
	"github.com/mcdev12/eventduel/go/internal/models"
)

func TestParseCatalog(t *testing.T) {
	gameID := uuid.New()
	data := []byte(`
default:
  countdown_timer: 3
  game_session_timer: 45
games:
  ` + gameID.String() + `:
    countdown_timer: 10
    game_session_timer: 120
`)

	got, err := parseCatalog(data)
	if err != nil {
		t.Fatalf("parseCatalog: %v", err)
	}
	want := session.StaticCatalog{
		Default: models.GameConfig{CountdownTimer: 3, GameSessionTimer: 45},
		Games: map[uuid.UUID]models.GameConfig{
			gameID: {CountdownTimer: 10, GameSessionTimer: 120},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}
	if cfg := got.GameConfig(uuid.New()); cfg != want.Default {
		t.Fatalf("unknown game should use the default, got %+v", cfg)
	}
}

func TestParseCatalogErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "bad yaml", data: "games: ["},
		{name: "bad game id", data: "games:\n  not-a-uuid:\n    countdown_timer: 1\n    game_session_timer: 1\n"},
		{name: "zero match timer", data: "games:\n  " + uuid.NewString() + ":\n    countdown_timer: 1\n    game_session_timer: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseCatalog([]byte(tt.data)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	if _, err := loadConfig(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}

	t.Setenv("STORE_BACKEND", "postgres")
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Port != "8080" || !cfg.OrchestratorEnabled {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	catalog, err := loadCatalog(t.TempDir() + "/missing.yaml")
	if err != nil {
		t.Fatalf("loadCatalog: %v", err)
	}
	if cfg := catalog.GameConfig(uuid.New()); cfg != session.DefaultGameConfig {
		t.Fatalf("expected built-in defaults, got %+v", cfg)
	}
}
