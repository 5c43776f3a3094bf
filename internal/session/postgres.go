package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fitplan/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS fitplan_sessions (
	session_id TEXT PRIMARY KEY,
	state      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const selectSession = `
SELECT state FROM fitplan_sessions
WHERE session_id = $1 AND updated_at > now() - make_interval(secs => $2)`

const selectSessionForUpdate = selectSession + ` FOR UPDATE`

const touchSession = `
UPDATE fitplan_sessions SET updated_at = now()
WHERE session_id = $1 AND updated_at > now() - make_interval(secs => $2)
RETURNING state`

const upsertSession = `
INSERT INTO fitplan_sessions (session_id, state, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (session_id) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`

const deleteExpiredSessions = `
DELETE FROM fitplan_sessions WHERE updated_at <= now() - make_interval(secs => $1)`

// PostgresStore shares sessions between server replicas. Rows idle for longer than the
// TTL are treated as absent and purged by Janitor.
type PostgresStore struct {
	db  database.Service
	ttl time.Duration
}

// NewPostgresStore creates the sessions table if needed.
func NewPostgresStore(ctx context.Context, db database.Service, ttl time.Duration) (*PostgresStore, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if _, err := db.Pool().Exec(ctx, createSessionsTable); err != nil {
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}
	return &PostgresStore{db: db, ttl: ttl}, nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*State, error) {
	var raw []byte
	err := p.db.Pool().QueryRow(ctx, touchSession, id, p.ttl.Seconds()).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return decodeState(raw)
}

func (p *PostgresStore) Update(ctx context.Context, id string, fn func(*State) error) (*State, error) {
	tx, err := p.db.Pool().Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	st := NewState()
	var raw []byte
	err = tx.QueryRow(ctx, selectSessionForUpdate, id, p.ttl.Seconds()).Scan(&raw)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to lock session: %w", err)
	default:
		if st, err = decodeState(raw); err != nil {
			return nil, err
		}
	}

	if err := fn(st); err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	if _, err := tx.Exec(ctx, upsertSession, id, encoded); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit session: %w", err)
	}
	return st.Clone(), nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := p.db.Pool().Exec(ctx, `DELETE FROM fitplan_sessions WHERE session_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (p *PostgresStore) Health(_ context.Context) map[string]string {
	stats := p.db.Health()
	stats["backend"] = "postgres"
	return stats
}

// Janitor purges expired rows every interval until ctx is done.
func (p *PostgresStore) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tag, err := p.db.Pool().Exec(ctx, deleteExpiredSessions, p.ttl.Seconds())
			if err != nil {
				log.Warn().Err(err).Msg("Failed to purge expired sessions")
				continue
			}
			if n := tag.RowsAffected(); n > 0 {
				log.Info().Int64("purged", n).Msg("Purged expired sessions")
			}
		}
	}
}

func decodeState(raw []byte) (*State, error) {
	st := NewState()
	if err := json.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if st.Progress == nil {
		st.Progress = NewState().Progress
	}
	return st, nil
}
