package storage

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Options selects and configures a storage backend.
type Options struct {
	Backend      string
	SQLiteDBPath string
	PostgresURL  string
}

// Open builds the Store named by opts.Backend. Callers own Close.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return NewSQLiteRepository(opts.SQLiteDBPath)
	case BackendPostgres:
		return NewPostgresRepository(ctx, opts.PostgresURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
