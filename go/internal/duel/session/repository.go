package session

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/eventduel/go/internal/models"
	"github.com/mcdev12/eventduel/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

const sessionColumns = `id, game_id, status, game_config, players, winner, result,
	created_at, activated_at, completed_at, updated_at`

// sessionResult is the JSONB payload stored once a session completes.
type sessionResult struct {
	EndReason models.EndReason `json:"endReason"`
	Winner    *uuid.UUID       `json:"winner,omitempty"`
}

// PostgresRepository is the Postgres backend. UpdateSession locks the row with
// SELECT ... FOR UPDATE for the duration of the mutation.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the session and outbox tables when missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateSession(ctx context.Context, s *models.Session) error {
	cfg, players, result, err := encodeSession(s)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO duel_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.GameID, string(s.Status), cfg, players, sqlutil.ToNullUUID(s.Winner), result,
		s.CreatedAt, s.ActivatedAt, s.CompletedAt, s.UpdatedAt,
	)
	return insertError(err)
}

// insertError maps a duplicate key to ErrSessionExists.
func insertError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrSessionExists
	}
	return fmt.Errorf("failed to insert session: %w", err)
}

func (r *PostgresRepository) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM duel_sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (r *PostgresRepository) GetOpenSession(ctx context.Context, gameID uuid.UUID) (*models.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM duel_sessions
		WHERE game_id = $1 AND status <> 'completed'
		LIMIT 1`, gameID)
	return scanSession(row)
}

func (r *PostgresRepository) ListSessions(ctx context.Context, gameID uuid.UUID) ([]models.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM duel_sessions
		WHERE game_id = $1
		ORDER BY created_at`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) UpdateSession(ctx context.Context, id uuid.UUID, fn MutateFunc) (*models.Session, bool, error) {
	var (
		updated *models.Session
		changed bool
	)
	err := sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+sessionColumns+` FROM duel_sessions WHERE id = $1 FOR UPDATE`, id)
		s, err := scanSession(row)
		if err != nil {
			return err
		}

		changed, err = fn(s)
		if err != nil {
			return err
		}
		updated = s
		if !changed {
			return nil
		}

		cfg, players, result, err := encodeSession(s)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE duel_sessions
			SET status = $2, game_config = $3, players = $4, winner = $5, result = $6,
				activated_at = $7, completed_at = $8, updated_at = $9
			WHERE id = $1`,
			s.ID, string(s.Status), cfg, players, sqlutil.ToNullUUID(s.Winner), result,
			s.ActivatedAt, s.CompletedAt, s.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return updated, changed, nil
}

func encodeSession(s *models.Session) ([]byte, []byte, pqtype.NullRawMessage, error) {
	cfg, err := json.Marshal(s.GameConfig)
	if err != nil {
		return nil, nil, pqtype.NullRawMessage{}, fmt.Errorf("failed to marshal game config: %w", err)
	}
	players, err := json.Marshal(s.Players)
	if err != nil {
		return nil, nil, pqtype.NullRawMessage{}, fmt.Errorf("failed to marshal players: %w", err)
	}

	var result pqtype.NullRawMessage
	if s.Status == models.SessionStatusCompleted {
		result, err = sqlutil.ToNullJSON(sessionResult{EndReason: s.EndReason, Winner: s.Winner})
		if err != nil {
			return nil, nil, pqtype.NullRawMessage{}, err
		}
	}
	return cfg, players, result, nil
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var (
		s           models.Session
		status      string
		cfg         []byte
		players     []byte
		winner      uuid.NullUUID
		result      []byte
		activatedAt *time.Time
		completedAt *time.Time
	)
	err := row.Scan(
		&s.ID, &s.GameID, &status, &cfg, &players, &winner, &result,
		&s.CreatedAt, &activatedAt, &completedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	s.Status = models.SessionStatus(status)
	s.ActivatedAt = activatedAt
	s.CompletedAt = completedAt
	s.Winner = sqlutil.FromNullUUID(winner)
	if err := json.Unmarshal(cfg, &s.GameConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	if err := json.Unmarshal(players, &s.Players); err != nil {
		return nil, fmt.Errorf("failed to unmarshal players: %w", err)
	}

	var sr sessionResult
	if ok, err := sqlutil.FromNullJSON(result, &sr); err != nil {
		return nil, err
	} else if ok {
		s.EndReason = sr.EndReason
	}
	return &s, nil
}
