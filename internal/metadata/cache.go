package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ivlev/prompt2path/internal/config"
	apperrors "github.com/ivlev/prompt2path/pkg/errors"
	"github.com/ivlev/prompt2path/pkg/logger"
	"github.com/ivlev/prompt2path/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const DefaultCacheTTL = 10 * time.Minute

var ErrCacheMiss = errors.New("cache miss")

// Cache is a byte cache with per-key TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error) // ErrCacheMiss when absent
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisCache implements Cache on go-redis.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisClient connects and pings redis.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "redis.Get", trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	val, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, ErrCacheMiss
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("cache.hit", true))
	return val, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, span := tracer.Start(ctx, "redis.Set", trace.WithAttributes(
		attribute.String("cache.key", key),
		attribute.Int64("cache.ttl_ms", ttl.Milliseconds()),
	))
	defer span.End()

	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	ctx, span := tracer.Start(ctx, "redis.Del", trace.WithAttributes(attribute.Int("cache.key_count", len(keys))))
	defer span.End()

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// CachedStore reads through a TTL cache and invalidates it on writes. Concurrent
// misses for one id share a single store read. Cache failures never fail a call.
type CachedStore struct {
	next  Store
	cache Cache
	ttl   time.Duration
	group singleflight.Group
}

func NewCachedStore(next Store, cache Cache, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{next: next, cache: cache, ttl: ttl}
}

func cacheKey(id string) string {
	return "prompt2path:metadata:" + id
}

func (s *CachedStore) GetModelMetadata(ctx context.Context, id string) (*ModelMetadata, error) {
	key := cacheKey(id)

	data, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var md ModelMetadata
		if jsonErr := json.Unmarshal(data, &md); jsonErr == nil {
			metrics.MetadataCacheTotal.WithLabelValues("hit").Inc()
			return &md, nil
		}
		metrics.MetadataCacheTotal.WithLabelValues("corrupt").Inc()
	case errors.Is(err, ErrCacheMiss):
		metrics.MetadataCacheTotal.WithLabelValues("miss").Inc()
	default:
		metrics.MetadataCacheTotal.WithLabelValues("error").Inc()
		logger.Warn(ctx, "metadata cache read failed", "model_id", id, "error", apperrors.ErrCache.WithError(err))
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		md, err := s.next.GetModelMetadata(ctx, id)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(md); err == nil {
			if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
				logger.Warn(ctx, "metadata cache write failed", "model_id", id, "error", err)
			}
		}
		return md, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ModelMetadata).clone(), nil
}

func (s *CachedStore) StoreModelMetadata(ctx context.Context, id string, md *ModelMetadata) error {
	if err := s.next.StoreModelMetadata(ctx, id, md); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *CachedStore) StoreEnvironmentalMetadata(ctx context.Context, id string, env *EnvironmentMetadata) error {
	if err := s.next.StoreEnvironmentalMetadata(ctx, id, env); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *CachedStore) invalidate(ctx context.Context, id string) {
	if err := s.cache.Del(ctx, cacheKey(id)); err != nil {
		logger.Warn(ctx, "metadata cache invalidation failed", "model_id", id, "error", err)
	}
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
