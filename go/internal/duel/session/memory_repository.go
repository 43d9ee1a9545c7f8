package session

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/eventduel/go/internal/models"
)

// MemoryRepository keeps sessions in process memory. A single mutex
// serializes every mutation, standing in for a row lock.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.Session
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[uuid.UUID]*models.Session),
	}
}

func (r *MemoryRepository) CreateSession(ctx context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.openSessionLocked(s.GameID) != nil {
		return ErrSessionExists
	}
	r.sessions[s.ID] = s.Clone()
	return nil
}

func (r *MemoryRepository) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (r *MemoryRepository) GetOpenSession(ctx context.Context, gameID uuid.UUID) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.openSessionLocked(gameID)
	if s == nil {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (r *MemoryRepository) ListSessions(ctx context.Context, gameID uuid.UUID) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Session
	for _, s := range r.sessions {
		if s.GameID == gameID {
			out = append(out, *s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) UpdateSession(ctx context.Context, id uuid.UUID, fn MutateFunc) (*models.Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[id]
	if !ok {
		return nil, false, ErrNotFound
	}

	working := current.Clone()
	changed, err := fn(working)
	if err != nil {
		return nil, false, err
	}
	if changed {
		r.sessions[id] = working.Clone()
	}
	return working, changed, nil
}

func (r *MemoryRepository) openSessionLocked(gameID uuid.UUID) *models.Session {
	for _, s := range r.sessions {
		if s.GameID == gameID && s.Status != models.SessionStatusCompleted {
			return s
		}
	}
	return nil
}
