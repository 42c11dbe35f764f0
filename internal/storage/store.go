package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"matchwatch/internal/matchlog"
)

// ErrNotFound is returned by Load and Delete when no record exists for a key
var ErrNotFound = errors.New("match state not found")

// Store persists one matchlog.State per match-up key.
// Implementations must make Save atomic: a crash mid-write never leaves a
// half-written record visible to a later Load.
type Store interface {
	Load(ctx context.Context, key string) (*matchlog.State, error)
	Save(ctx context.Context, key string, state *matchlog.State) (overwritten bool, err error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context) ([]string, error)
	Close() error
}

// Supported backends
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverTurso    = "turso"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
)

// Options selects and configures a backend
type Options struct {
	Driver string

	// file
	Dir string

	// sqlite: file path. turso: libsql URL. postgres: connection string.
	DSN       string
	AuthToken string

	// s3
	Bucket string
	Prefix string
	Region string
}

// Open returns the backend named by opts.Driver
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Driver) {
	case "", DriverFile:
		return NewFileStore(opts.Dir)
	case DriverSQLite:
		return OpenSQLite(ctx, opts.DSN)
	case DriverTurso:
		return OpenTurso(ctx, opts.DSN, opts.AuthToken)
	case DriverPostgres:
		return OpenPostgres(ctx, opts.DSN)
	case DriverS3:
		return NewS3Store(ctx, opts.Bucket, opts.Prefix, opts.Region)
	default:
		return nil, fmt.Errorf("unsupported state driver: %s", opts.Driver)
	}
}

// validateKey rejects keys that cannot be used as a file name or object name
func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid match key %q", key)
	}
	return nil
}
