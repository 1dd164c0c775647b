package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"nest-readiness/internal/common/config"

	_ "modernc.org/sqlite"
)

// NewSQLite opens (and creates if needed) the sqlite file at cfg.Path.
// SQLite serializes writers, so the pool is kept to a single connection.
func NewSQLite(cfg config.SQLiteConfig) (*SQLClient, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.Path)
	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	return &SQLClient{DB: db, Driver: DriverSQLite}, nil
}
