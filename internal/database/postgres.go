package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/prudhvinik1/possync/internal/logger"
)

const (
	MaxConns        = 10
	MinConns        = 0
	MaxConnLifetime = 10 * time.Minute
	MaxConnIdleTime = 5 * time.Minute
)

// NewPostgresPool opens the pool for the remote store. When requirePing is
// false a failed ping is only logged so the agent can start offline.
func NewPostgresPool(ctx context.Context, databaseURL string, requirePing bool) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing postgres config: %w", err)
	}

	// Configure the pool
	config.MaxConns = MaxConns
	config.MinConns = MinConns
	config.MaxConnLifetime = MaxConnLifetime
	config.MaxConnIdleTime = MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("error creating postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		if requirePing {
			pool.Close()
			return nil, fmt.Errorf("error pinging postgres pool: %w", err)
		}
		logger.Log.Warn("Remote store unreachable at startup", zap.Error(err))
		return pool, nil
	}

	logger.Log.Info("Postgres pool created successfully")
	return pool, nil
}
