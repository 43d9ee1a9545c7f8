package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrMissingIdentity is returned when the player/session correlation pair
// is not known, so there is nothing to submit against.
var ErrMissingIdentity = errors.New("missing player or session identity")

// Identity correlates a player process with its seat in a session across
// reconnects. It is cleared once the final result is accepted.
type Identity struct {
	PlayerID  uuid.UUID `yaml:"player_id"`
	SessionID uuid.UUID `yaml:"session_id"`
}

// Complete reports whether both identifiers are set.
func (i Identity) Complete() bool {
	return i.PlayerID != uuid.Nil && i.SessionID != uuid.Nil
}

// IdentityStore persists the correlation pair for one client.
type IdentityStore interface {
	Load() (Identity, error)
	Save(Identity) error
	Clear() error
}

// MemoryIdentityStore keeps the identity for the life of the process.
type MemoryIdentityStore struct {
	mu       sync.Mutex
	identity Identity
}

func (m *MemoryIdentityStore) Load() (Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.identity.Complete() {
		return Identity{}, ErrMissingIdentity
	}
	return m.identity, nil
}

func (m *MemoryIdentityStore) Save(id Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = id
	return nil
}

func (m *MemoryIdentityStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = Identity{}
	return nil
}

// FileIdentityStore keeps the identity in a YAML file so a restarted player
// process reclaims its seat.
type FileIdentityStore struct {
	path string
	mu   sync.Mutex
}

func NewFileIdentityStore(path string) *FileIdentityStore {
	return &FileIdentityStore{path: path}
}

func (f *FileIdentityStore) Load() (Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Identity{}, ErrMissingIdentity
	}
	if err != nil {
		return Identity{}, fmt.Errorf("failed to read identity file: %w", err)
	}

	var id Identity
	if err := yaml.Unmarshal(data, &id); err != nil {
		return Identity{}, fmt.Errorf("failed to parse identity file: %w", err)
	}
	if !id.Complete() {
		return Identity{}, ErrMissingIdentity
	}
	return id, nil
}

func (f *FileIdentityStore) Save(id Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := yaml.Marshal(id)
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create identity dir: %w", err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write identity file: %w", err)
	}
	return os.Rename(tmp, f.path)
}

func (f *FileIdentityStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove identity file: %w", err)
	}
	return nil
}
