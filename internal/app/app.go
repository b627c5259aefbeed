package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/prudhvinik1/possync/internal/config"
	"github.com/prudhvinik1/possync/internal/connectivity"
	"github.com/prudhvinik1/possync/internal/database"
	"github.com/prudhvinik1/possync/internal/repositories"
	"github.com/prudhvinik1/possync/internal/services"
)

// App is one device agent: its stores, connectivity monitor and engine.
type App struct {
	Config   *config.Config
	Remote   *repositories.PostgresRemoteRepository
	Monitor  *connectivity.Monitor
	Engine   *services.Engine
	Presence repositories.PresenceRepository
	Log      *zap.Logger

	closers []func()
}

// New connects every store named by cfg. The remote store may be
// unreachable; the agent then starts offline.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	a.Remote = repositories.NewPostgresRemoteRepository(pool)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		a.closers = append(a.closers, func() { redisClient.Close() })
		a.Presence = repositories.NewRedisPresenceRepository(redisClient)
	}

	kv, err := a.openLocalStore(ctx, redisClient)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Monitor = connectivity.NewMonitor(a.Remote, cfg.ConnectivityInterval, log)
	a.Engine = services.NewEngine(kv, a.Remote, a.Monitor,
		services.WithLogger(log),
		services.WithRetryPolicy(RetryPolicy(cfg)),
	)
	return a, nil
}

func (a *App) openLocalStore(ctx context.Context, redisClient *redis.Client) (repositories.KeyValueStore, error) {
	switch a.Config.LocalStoreDriver {
	case config.DriverSQLite:
		db, err := database.NewSQLiteDB(ctx, a.Config.LocalStorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open local store: %w", err)
		}
		a.closers = append(a.closers, func() { db.Close() })
		return repositories.NewSQLiteKeyValueStore(db), nil
	case config.DriverRedis:
		if redisClient == nil {
			return nil, errors.New("redis local store requires REDIS_URL")
		}
		return repositories.NewRedisKeyValueStore(redisClient, a.Config.RedisKeyPrefix), nil
	case config.DriverMemory:
		a.Log.Warn("Using in-memory local store, queued mutations will not survive a restart")
		return repositories.NewMemoryKeyValueStore(), nil
	default:
		return nil, fmt.Errorf("unknown local store driver %q", a.Config.LocalStoreDriver)
	}
}

// RetryPolicy derives the push retry policy from cfg.
func RetryPolicy(cfg *config.Config) services.RetryPolicy {
	policy := services.RetryPolicy{MaxRetries: cfg.MaxPushRetries}
	if cfg.RetryBackoff > 0 {
		policy.Backoff = services.ExponentialBackoff(cfg.RetryBackoff, 32*cfg.RetryBackoff)
	}
	return policy
}

// EnsureSchema creates the remote tables if they do not exist.
func (a *App) EnsureSchema(ctx context.Context) error {
	return a.Remote.EnsureSchema(ctx)
}

// Close releases stores in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
