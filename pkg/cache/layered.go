package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache implements two-level cache (L1: Memory, L2: Redis).
// With no Redis configured it degrades to the memory layer alone.
type LayeredCache struct {
	memCache   *MemoryCache
	redisCache *RedisCache
	l1TTL      time.Duration
	onL2Error  func(op, key string, err error)
}

// NewLayeredCache creates a layered cache with memory and, optionally, Redis.
func NewLayeredCache(redisCache *RedisCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{
		MemoryMaxSize: 1000,
		L1TTL:         time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &LayeredCache{
		memCache:   NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		redisCache: redisCache,
		l1TTL:      cfg.L1TTL,
		onL2Error:  cfg.OnL2Error,
	}
}

// Set writes memory first. A Redis failure is reported and otherwise ignored,
// so L1 keeps serving while L2 is down.
func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.memCache.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	if lc.redisCache != nil {
		if err := lc.redisCache.Set(ctx, key, value, expiration); err != nil {
			lc.reportL2("set", key, err)
		}
	}
	return nil
}

// Get reads memory, then Redis. A Redis error counts as a miss.
func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	err := lc.memCache.Get(ctx, key, dest)
	if err == nil || lc.redisCache == nil || !errors.Is(err, ErrCacheMiss) {
		return err
	}

	if err := lc.redisCache.Get(ctx, key, dest); err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			lc.reportL2("get", key, err)
		}
		return ErrCacheMiss
	}

	_ = lc.memCache.Set(ctx, key, dest, lc.l1TTL)
	return nil
}

func (lc *LayeredCache) reportL2(op, key string, err error) {
	if lc.onL2Error != nil {
		lc.onL2Error(op, key, err)
	}
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.memCache.Delete(ctx, keys...)
	if lc.redisCache == nil {
		return nil
	}
	return lc.redisCache.Delete(ctx, keys...)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, _ := lc.memCache.Exists(ctx, keys...); ok || lc.redisCache == nil {
		return ok, nil
	}
	return lc.redisCache.Exists(ctx, keys...)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.memCache.Close()
	if lc.redisCache == nil {
		return nil
	}
	return lc.redisCache.Close()
}
