// internal/database/schema.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
		code       TEXT PRIMARY KEY,
		snapshot   JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS player_sessions (
		user_id    TEXT PRIMARY KEY,
		session    JSONB NOT NULL,
		last_seen  TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS room_actions (
		id             BIGSERIAL PRIMARY KEY,
		room_code      TEXT NOT NULL,
		action_index   INT NOT NULL,
		actor_user_id  TEXT NOT NULL,
		action_type    TEXT NOT NULL,
		action_payload JSONB,
		created_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS room_actions_room_idx ON room_actions (room_code, action_index)`,
	`CREATE TABLE IF NOT EXISTS room_results (
		id         BIGSERIAL PRIMARY KEY,
		room_code  TEXT NOT NULL,
		winner     TEXT,
		tie        BOOLEAN NOT NULL DEFAULT FALSE,
		reason     TEXT NOT NULL,
		scores     JSONB,
		ended_at   TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates the tables used by the store and the historian. It is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		return nil
	})
}
