package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"nest-readiness/internal/common/database"
	apperrors "nest-readiness/internal/common/errors"
)

// TableName is the single table every SQL backend uses.
const TableName = "nest_kv"

type dialect struct {
	createTable string
	get         string
	upsert      string
	remove      func(keys []string) (string, []interface{})
}

var postgresDialect = dialect{
	createTable: `CREATE TABLE IF NOT EXISTS ` + TableName + ` (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	get: `SELECT value FROM ` + TableName + ` WHERE key = $1`,
	upsert: `INSERT INTO ` + TableName + ` (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
	remove: func(keys []string) (string, []interface{}) {
		return `DELETE FROM ` + TableName + ` WHERE key = ANY($1)`, []interface{}{pq.Array(keys)}
	},
}

var sqliteDialect = dialect{
	createTable: `CREATE TABLE IF NOT EXISTS ` + TableName + ` (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	get: `SELECT value FROM ` + TableName + ` WHERE key = ?`,
	upsert: `INSERT INTO ` + TableName + ` (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
	remove: func(keys []string) (string, []interface{}) {
		query := `DELETE FROM ` + TableName + ` WHERE key IN (?`
		args := make([]interface{}, 0, len(keys))
		for i, k := range keys {
			if i > 0 {
				query += `, ?`
			}
			args = append(args, k)
		}
		return query + `)`, args
	},
}

// SQLKV keeps keys in one table on postgres or sqlite.
type SQLKV struct {
	client  *database.SQLClient
	dialect dialect
}

// NewSQLKV picks the dialect from the client's driver and creates the
// table if it does not exist.
func NewSQLKV(ctx context.Context, client *database.SQLClient) (*SQLKV, error) {
	var d dialect
	switch client.Driver {
	case database.DriverPostgres:
		d = postgresDialect
	case database.DriverSQLite:
		d = sqliteDialect
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", client.Driver)
	}

	kv := &SQLKV{client: client, dialect: d}
	if _, err := client.DB.ExecContext(ctx, d.createTable); err != nil {
		return nil, apperrors.NewStorageUnavailableError(client.Driver, fmt.Errorf("create table: %w", err))
	}
	return kv, nil
}

func (s *SQLKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.client.DB.QueryRowContext(ctx, s.dialect.get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.NewStorageReadError(key, err)
	}
	return value, true, nil
}

func (s *SQLKV) Set(ctx context.Context, key, value string) error {
	if _, err := s.client.DB.ExecContext(ctx, s.dialect.upsert, key, value); err != nil {
		return apperrors.NewStorageWriteError(key, err)
	}
	return nil
}

func (s *SQLKV) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	query, args := s.dialect.remove(keys)
	if _, err := s.client.DB.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewStorageWriteError(keys[0], err)
	}
	return nil
}

func (s *SQLKV) Name() string { return s.client.Driver }

func (s *SQLKV) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx); err != nil {
		return apperrors.NewStorageUnavailableError(s.Name(), err)
	}
	return nil
}

func (s *SQLKV) Close() error {
	return s.client.Close()
}
