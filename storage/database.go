package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"ride-etl/config"
	"ride-etl/utils"
)

// Dialect captures the few SQL differences between the supported drivers.
type Dialect struct {
	Name   string
	Driver string
}

var dialects = map[string]Dialect{
	config.DriverPostgres: {Name: "postgres", Driver: "postgres"},
	config.DriverPgx:      {Name: "postgres", Driver: "pgx"},
	config.DriverSQLite:   {Name: "sqlite", Driver: "sqlite"},
}

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d.Name == "sqlite" {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

// Open connects to the configured database and waits until it answers a ping.
// The caller owns the returned handle and must close it.
func Open(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*sql.DB, Dialect, error) {
	dialect, ok := dialects[cfg.DBDriver]
	if !ok {
		return nil, Dialect{}, fmt.Errorf("storage: unsupported driver %q", cfg.DBDriver)
	}

	if dialect.Name == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, Dialect{}, fmt.Errorf("storage: create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open(dialect.Driver, cfg.DSN())
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("storage: open: %w", err)
	}
	if dialect.Name == "sqlite" {
		// a single connection keeps the open transaction and later reads on one handle
		db.SetMaxOpenConns(1)
	}

	retry := &utils.RetryConfig{
		MaxAttempts: cfg.DBConnectAttempts,
		BaseDelay:   time.Duration(cfg.DBConnectDelayMs) * time.Millisecond,
		Logger:      logger,
	}
	if err := retry.Do(ctx, "database ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, Dialect{}, fmt.Errorf("storage: %w", err)
	}

	return db, dialect, nil
}
