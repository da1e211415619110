package config

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ConnectRedis returns nil when REDIS_ADDR is unset or the server does not
// answer; callers then run without a cache.
func ConnectRedis(ctx context.Context, cfg *Config, log logrus.FieldLogger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Warn("REDIS_ADDR not set, icon suggestion cache disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.WithError(err).Error("Failed to connect to Redis, icon suggestion cache disabled")
		_ = rdb.Close()
		return nil
	}

	log.WithField("addr", cfg.RedisAddr).Info("Connected to Redis")
	return rdb
}
