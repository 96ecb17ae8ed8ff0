package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"barstock/internal/config"
	"barstock/internal/core/lock"
	"barstock/internal/infrastructure/cache"
	"barstock/internal/infrastructure/storage/memory"
	"barstock/internal/infrastructure/storage/postgres"
	"barstock/pkg/logger"
)

// Runtime is an engine with the connections it was built on.
type Runtime struct {
	*Engine

	// Pool is nil on the memory backend.
	Pool   *postgres.Pool
	PG     *postgres.Store
	Memory *memory.Store
	Redis  *redis.Client

	closers []func()
}

// Open connects the configured storage and locker and builds the engine.
// PostgreSQL schemas are migrated before use.
func Open(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{}

	var stores Stores
	switch cfg.Storage {
	case "memory":
		rt.Memory = memory.New()
		stores = MemoryStores(rt.Memory)
	default:
		pool, err := postgres.NewPool(ctx, postgres.PoolConfigFrom(cfg))
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.Pool = pool
		rt.closers = append(rt.closers, pool.Close)

		if err := postgres.Migrate(ctx, pool); err != nil {
			rt.Close()
			return nil, err
		}
		rt.PG = postgres.NewStore(pool)
		if stores, err = PostgresStores(rt.PG); err != nil {
			rt.Close()
			return nil, err
		}
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisAddr != "" {
		client, err := cache.NewRedis(ctx, cfg.RedisAddr)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Redis = client
		rt.closers = append(rt.closers, func() { _ = client.Close() })
		locker = cache.NewRedisLocker(client)
		logger.Info(ctx, "approval locks held in redis", "addr", cfg.RedisAddr)
	}

	rt.Engine = New(stores, OptionsFromConfig(cfg, locker))
	return rt, nil
}

// Close releases connections in reverse order of opening.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}
