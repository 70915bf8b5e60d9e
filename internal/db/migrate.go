package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
		id         BIGSERIAL PRIMARY KEY,
		player_id  TEXT NOT NULL,
		points     BIGINT NOT NULL CHECK (points <> 0),
		status     TEXT NOT NULL,
		source     TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_player_idx ON transactions (player_id, id)`,
	`CREATE TABLE IF NOT EXISTS pending_deliveries (
		id           BIGSERIAL PRIMARY KEY,
		player_id    TEXT NOT NULL,
		item_name    TEXT NOT NULL,
		command      TEXT NOT NULL,
		context      TEXT NOT NULL DEFAULT '',
		price        BIGINT NOT NULL CHECK (price > 0),
		status       TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'delivered')),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		delivered_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS pending_deliveries_status_idx ON pending_deliveries (status, id)`,
	`CREATE TABLE IF NOT EXISTS players (
		discord_id TEXT NOT NULL DEFAULT '',
		eos_id     TEXT PRIMARY KEY,
		pseudo     TEXT NOT NULL DEFAULT '',
		xuid       TEXT NOT NULL DEFAULT '',
		steam_id   TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS players_discord_idx ON players (discord_id)`,
}

// Migrate bootstraps the schema. Every statement is idempotent, so it is
// safe to run on every daemon start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
