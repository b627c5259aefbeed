package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/prudhvinik1/possync/internal/logger"
)

// The agent keeps few Redis connections: one local store writer plus the
// presence heartbeat.
const (
	RedisPoolSize     = 4
	RedisMinIdleConns = 1
	RedisDialTimeout  = 5 * time.Second
	RedisReadTimeout  = 3 * time.Second
	RedisWriteTimeout = 3 * time.Second
)

func redisOptions(redisURL string) (*redis.Options, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis URL: %w", err)
	}

	opts.PoolSize = RedisPoolSize
	opts.MinIdleConns = RedisMinIdleConns
	opts.DialTimeout = RedisDialTimeout
	opts.ReadTimeout = RedisReadTimeout
	opts.WriteTimeout = RedisWriteTimeout
	return opts, nil
}

// NewRedisClient connects to Redis and fails unless it answers a ping.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redisOptions(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("error pinging redis at %s: %w", opts.Addr, err)
	}

	logger.Log.Info("Redis client created",
		zap.String("addr", opts.Addr),
		zap.Int("db", opts.DB),
		zap.Int("pool_size", opts.PoolSize),
	)
	return client, nil
}
