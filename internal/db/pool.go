package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Three small daemons share one Postgres, so each keeps its pool modest.
// The application_name shows up in pg_stat_activity, which is how we tell
// the API, the bot and the worker apart when a query misbehaves.
func Open(ctx context.Context, databaseURL, appName string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 15 * time.Minute
	cfg.ConnConfig.RuntimeParams["application_name"] = appName

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// OpenAndMigrate opens the pool and runs the migrations before handing it
// back. Every binary calls this on startup; the migrations are idempotent,
// so it does not matter which one comes up first.
func OpenAndMigrate(ctx context.Context, databaseURL, appName string) (*pgxpool.Pool, error) {
	pool, err := Open(ctx, databaseURL, appName)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return pool, nil
}
