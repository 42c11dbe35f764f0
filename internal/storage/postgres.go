package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"matchwatch/internal/matchlog"
)

const createPostgresMatchStatesSQL = `CREATE TABLE IF NOT EXISTS match_states (
	match_up TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	logs JSONB NOT NULL,
	completed BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps match states in PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects using connStr, falling back to DATABASE_URL
func OpenPostgres(ctx context.Context, connStr string) (*PostgresStore, error) {
	if connStr == "" {
		connStr = os.Getenv("DATABASE_URL")
	}
	if connStr == "" {
		return nil, fmt.Errorf("postgres connection string not set")
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, createPostgresMatchStatesSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create match_states table: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Load reads the state for key
func (s *PostgresStore) Load(ctx context.Context, key string) (*matchlog.State, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var (
		url       string
		logs      []byte
		completed bool
	)
	err := s.pool.QueryRow(ctx,
		"SELECT url, logs, completed FROM match_states WHERE match_up = $1", key,
	).Scan(&url, &logs, &completed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}

	entries, err := decodeLogs(logs)
	if err != nil {
		return nil, err
	}
	return &matchlog.State{URL: url, Logs: entries, Completed: completed}, nil
}

// Save upserts the state; the existence check and write share one transaction
func (s *PostgresStore) Save(ctx context.Context, key string, state *matchlog.State) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	if state == nil {
		return false, fmt.Errorf("cannot save nil state")
	}
	logs, err := encodeLogs(state.Logs)
	if err != nil {
		return false, err
	}

	var overwritten bool
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM match_states WHERE match_up = $1)", key,
		).Scan(&overwritten); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO match_states (match_up, url, logs, completed, updated_at)
			VALUES ($1, $2, $3::jsonb, $4, now())
			ON CONFLICT (match_up) DO UPDATE SET
				url = EXCLUDED.url,
				logs = EXCLUDED.logs,
				completed = EXCLUDED.completed,
				updated_at = EXCLUDED.updated_at`,
			key, state.URL, string(logs), state.Completed)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to save %s: %w", key, err)
	}
	return overwritten, nil
}

// Delete removes the state for key
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, "DELETE FROM match_states WHERE match_up = $1", key)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether a state is stored for key
func (s *PostgresStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	var exists bool
	if err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM match_states WHERE match_up = $1)", key,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	return exists, nil
}

// List returns all stored keys, sorted
func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT match_up FROM match_states ORDER BY match_up")
	if err != nil {
		return nil, fmt.Errorf("failed to list match states: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list match states: %w", err)
	}
	return keys, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
