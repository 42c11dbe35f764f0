package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"

	"matchwatch/internal/matchlog"
)

const createMatchStatesSQL = `CREATE TABLE IF NOT EXISTS match_states (
	match_up TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	logs TEXT NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
)`

const upsertMatchStateSQL = `INSERT INTO match_states (match_up, url, logs, completed, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(match_up) DO UPDATE SET
		url = excluded.url,
		logs = excluded.logs,
		completed = excluded.completed,
		updated_at = excluded.updated_at`

// SQLStore keeps match states in a SQLite-compatible database.
// The same statements serve a local SQLite file and a remote Turso database.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// OpenSQLite opens (or creates) a local SQLite database file
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		path = "matchwatch.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLStore{db: db, driver: DriverSQLite}
	if err := s.init(ctx, []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenTurso connects to a remote libSQL database
func OpenTurso(ctx context.Context, dbURL, authToken string) (*SQLStore, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("turso url not set")
	}

	db, err := sql.Open("libsql", tursoDSN(dbURL, authToken))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Turso: %w", err)
	}

	s := &SQLStore{db: db, driver: DriverTurso}
	if err := s.init(ctx, nil); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// tursoDSN appends the escaped auth token to the database URL
func tursoDSN(dbURL, authToken string) string {
	if authToken == "" {
		return dbURL
	}
	sep := "?"
	if strings.Contains(dbURL, "?") {
		sep = "&"
	}
	return dbURL + sep + url.Values{"authToken": {authToken}}.Encode()
}

func (s *SQLStore) init(ctx context.Context, pragmas []string) error {
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", s.driver, err)
	}

	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := s.db.ExecContext(ctx, createMatchStatesSQL); err != nil {
		return fmt.Errorf("failed to create match_states table: %w", err)
	}
	return nil
}

// Load reads the state for key
func (s *SQLStore) Load(ctx context.Context, key string) (*matchlog.State, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var (
		matchURL  string
		logs      string
		completed bool
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT url, logs, completed FROM match_states WHERE match_up = ?", key,
	).Scan(&matchURL, &logs, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}

	entries, err := decodeLogs([]byte(logs))
	if err != nil {
		return nil, err
	}
	return &matchlog.State{URL: matchURL, Logs: entries, Completed: completed}, nil
}

// Save upserts the state inside a transaction
func (s *SQLStore) Save(ctx context.Context, key string, state *matchlog.State) (bool, error) {
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM match_states WHERE match_up = ?", key,
	).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}

	if _, err := tx.ExecContext(ctx, upsertMatchStateSQL,
		key, state.URL, string(logs), state.Completed, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return false, fmt.Errorf("failed to save %s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit %s: %w", key, err)
	}
	return count > 0, nil
}

// Delete removes the state for key
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM match_states WHERE match_up = ?", key)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether a state is stored for key
func (s *SQLStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM match_states WHERE match_up = ?", key,
	).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	return count > 0, nil
}

// List returns all stored keys, sorted
func (s *SQLStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT match_up FROM match_states ORDER BY match_up")
	if err != nil {
		return nil, fmt.Errorf("failed to list match states: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}
