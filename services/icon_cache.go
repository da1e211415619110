package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/LovationAdmin/expensewise-api/models"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by IconCache.Get when nothing is stored.
var ErrCacheMiss = errors.New("cache miss")

// IconCache remembers icons suggested for normalized category names.
type IconCache interface {
	Get(ctx context.Context, name string) (models.IconKey, error)
	Set(ctx context.Context, name string, icon models.IconKey) error
}

const iconCachePrefix = "expensewise:icon:"

func iconCacheKey(name string) string {
	return iconCachePrefix + strings.ToLower(strings.TrimSpace(name))
}

type RedisIconCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisIconCache(rdb *redis.Client, ttl time.Duration) *RedisIconCache {
	return &RedisIconCache{rdb: rdb, ttl: ttl}
}

func (c *RedisIconCache) Get(ctx context.Context, name string) (models.IconKey, error) {
	val, err := c.rdb.Get(ctx, iconCacheKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", err
	}
	key := models.IconKey(val)
	if !key.Valid() {
		return "", ErrCacheMiss
	}
	return key, nil
}

func (c *RedisIconCache) Set(ctx context.Context, name string, icon models.IconKey) error {
	return c.rdb.Set(ctx, iconCacheKey(name), string(icon), c.ttl).Err()
}
