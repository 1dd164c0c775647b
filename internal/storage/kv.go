// Package storage provides the string key-value store that holds profile
// and navigation state, with memory, redis, postgres and sqlite backends.
package storage

import (
	"context"
	"fmt"
	"time"

	"nest-readiness/internal/common/config"
	"nest-readiness/internal/common/database"
	"nest-readiness/internal/common/logger"
)

// KV is a string key-value store. Get reports found=false for missing keys
// rather than returning an error.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, keys ...string) error
}

// Backend is a KV owning a connection.
type Backend interface {
	KV
	Name() string
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the backend selected by cfg.Backend and checks it is
// reachable.
func Open(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (Backend, error) {
	var (
		backend Backend
		err     error
	)

	switch cfg.Backend {
	case "", config.BackendMemory:
		backend = NewMemoryKV()
	case config.BackendRedis:
		backend = NewRedisKV(database.NewRedis(cfg.Redis))
	case config.BackendPostgres:
		var client *database.SQLClient
		if client, err = database.NewPostgres(cfg.Postgres); err == nil {
			backend, err = openSQL(ctx, client)
		}
	case config.BackendSQLite:
		var client *database.SQLClient
		if client, err = database.NewSQLite(cfg.SQLite); err == nil {
			backend, err = openSQL(ctx, client)
		}
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := backend.Ping(pingCtx); err != nil {
		_ = backend.Close()
		return nil, err
	}

	log.Info("Storage backend ready", map[string]interface{}{
		"backend":   backend.Name(),
		"namespace": cfg.Namespace,
	})
	return backend, nil
}

// openSQL closes the client when the table cannot be created.
func openSQL(ctx context.Context, client *database.SQLClient) (Backend, error) {
	kv, err := NewSQLKV(ctx, client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return kv, nil
}
