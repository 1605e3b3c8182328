package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/Kwentar/wows-planner/internal/store"
)

func setupDatabase(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	pool, err := store.Connect(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("database", cfg.Database.Database).
		Msg("connected to database")
	return pool, nil
}
