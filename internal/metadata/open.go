package metadata

import (
	"context"
	"errors"

	"github.com/ivlev/prompt2path/internal/config"
	"github.com/ivlev/prompt2path/pkg/logger"
)

// Stack is the assembled store: durable backend, retries, then the cache on top.
type Stack struct {
	Store    Store
	Postgres *PostgresStore // nil when running on the memory store
	Redis    *RedisCache    // nil when the cache is disabled
}

// Open builds the store described by cfg. Without a postgres host the memory store
// is used; without a redis host no cache is added.
func Open(ctx context.Context, cfg *config.Config) (*Stack, error) {
	stack := &Stack{}

	var base Store
	if cfg.Database.Postgres.Host == "" {
		logger.Info(ctx, "metadata store: memory")
		base = NewMemoryStore()
	} else {
		db, err := OpenPostgres(ctx, cfg.Database.Postgres, cfg.App.Debug)
		if err != nil {
			return nil, err
		}
		pg := NewPostgresStore(db)
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		logger.Info(ctx, "metadata store: postgres", "host", cfg.Database.Postgres.Host)
		stack.Postgres = pg
		base = NewRetryingStore(pg)
	}
	stack.Store = base

	if cfg.Cache.Redis.Host != "" {
		rdb, err := NewRedisClient(ctx, cfg.Cache.Redis)
		if err != nil {
			// the cache is optional
			logger.Warn(ctx, "metadata cache disabled", "error", err)
		} else {
			stack.Redis = NewRedisCache(rdb)
			stack.Store = NewCachedStore(base, stack.Redis, cfg.Cache.MetadataTTL)
			logger.Info(ctx, "metadata cache: redis", "addr", cfg.Cache.Redis.Addr(), "ttl", cfg.Cache.MetadataTTL)
		}
	}
	return stack, nil
}

func (s *Stack) Close() error {
	var errs []error
	if s.Redis != nil {
		errs = append(errs, s.Redis.Close())
	}
	if s.Postgres != nil {
		errs = append(errs, s.Postgres.Close())
	}
	return errors.Join(errs...)
}
