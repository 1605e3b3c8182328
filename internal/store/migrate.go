package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email      TEXT UNIQUE,
		anon_id    TEXT UNIQUE,
		name       TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS planners (
		id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		owner_id   UUID NOT NULL REFERENCES users(id),
		title      TEXT NOT NULL DEFAULT 'New Plan',
		state      JSONB NOT NULL DEFAULT '{"layers": []}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS planner_permissions (
		planner_id UUID NOT NULL REFERENCES planners(id) ON DELETE CASCADE,
		user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		can_edit   BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (planner_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_planners_owner ON planners(owner_id)`,
}

// Migrate applies the schema statements in order. Statements are
// idempotent so this is safe to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i, err)
		}
	}
	log.Info().Int("statements", len(migrations)).Msg("schema migrations applied")
	return nil
}
