package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"oshiquiz/internal/app"
	"oshiquiz/internal/config"
	"oshiquiz/internal/infra/memory"
	"oshiquiz/internal/infra/postgres"
	rediscache "oshiquiz/internal/infra/redis"
)

// quizStore is everything the services need from a storage backend.
type quizStore interface {
	app.CatalogStore
	app.AttemptStore
	app.StatsStore
	app.UserDirectory
}

// openStore returns the Postgres store when a URL is configured and a
// seeded in-memory store otherwise.
func openStore(ctx context.Context, cfg config.Config) (quizStore, func(), error) {
	if cfg.Postgres.URL == "" {
		store := memory.NewStore()
		if err := seedDemo(ctx, store); err != nil {
			return nil, nil, err
		}
		log.Warn().Msg("postgres url not configured; using in-memory store with demo content")
		return store, func() {}, nil
	}
	pool, err := postgres.Connect(ctx, cfg.Postgres.URL, config.TTLDuration(cfg.Postgres.ConnectTimeout, 30*time.Second))
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return postgres.NewStore(pool), pool.Close, nil
}

func requirePostgres(cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured (set postgres.url or DATABASE_URL)")
	}
	return nil
}

func newRedisClient(cfg config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func newCatalogCache(client *redis.Client, loader app.Catalog, cfg config.Config) app.CatalogCache {
	ttl := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	if client != nil {
		return rediscache.NewCatalogCache(client, loader, ttl)
	}
	return memory.NewCatalogCache(loader, ttl)
}
