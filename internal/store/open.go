package store

import (
	"context"
	"fmt"
	"io"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the Store for a backend name. dsn is the Postgres connection
// string or the SQLite file path. The returned closer releases the backend
// connection.
func Open(ctx context.Context, backend, dsn, redisAddr string) (*Collections, io.Closer, error) {
	switch backend {
	case BackendMemory, "":
		return NewInMemory(), nopCloser{}, nil
	case BackendRedis:
		r := NewRedis(redisAddr)
		if !r.Healthy(ctx) {
			_ = r.Close()
			return nil, nil, fmt.Errorf("redis %s not reachable", redisAddr)
		}
		return New(r), r, nil
	case BackendPostgres:
		db, err := NewDB(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return New(db), db, nil
	case BackendSQLite:
		db, err := NewSQLite(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return New(db), db, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", backend)
}
