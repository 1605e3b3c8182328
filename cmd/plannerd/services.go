package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Kwentar/wows-planner/internal/identity"
	"github.com/Kwentar/wows-planner/internal/permissions"
	"github.com/Kwentar/wows-planner/internal/presence"
	"github.com/Kwentar/wows-planner/internal/relay"
	"github.com/Kwentar/wows-planner/internal/tablet"
)

// Services holds the wired application graph.
type Services struct {
	Identity    *identity.Service
	IdentityApp *identity.App
	Tablets     *tablet.Service
	Relay       *relay.Handler

	redisClient *redis.Client
	backplane   *relay.Backplane
}

func setupServices(ctx context.Context, pool *pgxpool.Pool, cfg *Config) (*Services, error) {
	// Repository layer -> App layer -> Service layer.
	clock := clockwork.NewRealClock()

	userRepo := identity.NewRepository(pool)
	userApp := identity.NewApp(userRepo)
	userService := identity.NewService(userApp)

	grantRepo := permissions.NewRepository(pool)
	authority := permissions.NewApp(grantRepo)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	registry := presence.NewRegistry(redisClient, clock)
	presenceApp := presence.NewApp(registry, userApp, authority)

	tabletRepo := tablet.NewRepository(pool)
	tabletApp := tablet.NewApp(tabletRepo, authority)
	tabletService := tablet.NewService(tabletApp, presenceApp)

	hub := relay.NewHub()
	relayCfg := relay.DefaultConfig()
	relayCfg.WriteTimeout = cfg.Relay.writeTimeout()
	relayCfg.ReadTimeout = cfg.Relay.readTimeout()
	relayCfg.PingInterval = cfg.Relay.pingInterval()
	if cfg.Relay.MaxMessageSize > 0 {
		relayCfg.MaxMessageSize = cfg.Relay.MaxMessageSize
	}
	if cfg.Relay.SendBufferSize > 0 {
		relayCfg.SendBufferSize = cfg.Relay.SendBufferSize
	}
	relayHandler := relay.NewHandler(hub, relayCfg)

	services := &Services{
		Identity:    userService,
		IdentityApp: userApp,
		Tablets:     tabletService,
		Relay:       relayHandler,
		redisClient: redisClient,
	}

	// The NATS backplane is optional; a single instance relays in-process.
	if cfg.NATSURL != "" {
		backplane, err := relay.NewBackplane(cfg.NATSURL, hub)
		if err != nil {
			return nil, fmt.Errorf("connect relay backplane: %w", err)
		}
		if err := backplane.Start(); err != nil {
			backplane.Close()
			return nil, fmt.Errorf("start relay backplane: %w", err)
		}
		services.backplane = backplane
		log.Info().Str("nats_url", cfg.NATSURL).Msg("relay backplane connected")
	}

	return services, nil
}

// Close releases the service graph's external connections.
func (s *Services) Close() {
	if s.backplane != nil {
		s.backplane.Close()
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Warn().Err(err).Msg("redis close failed")
		}
	}
}
