package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

type Config struct {
	ServerPort  string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	JWTExpiry   time.Duration

	LocalStoreDriver string
	LocalStorePath   string
	RedisKeyPrefix   string

	MaxPushRetries       int
	RetryBackoff         time.Duration
	ConnectivityInterval time.Duration
	HeartbeatInterval    time.Duration
	SyncSchedule         string

	LogLevel  string
	LogFormat string
	LogFile   string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("JWT_EXPIRY", "24h")
	v.SetDefault("LOCAL_STORE_DRIVER", DriverSQLite)
	v.SetDefault("LOCAL_STORE_PATH", "possync.db")
	v.SetDefault("REDIS_KEY_PREFIX", "possync:")
	v.SetDefault("MAX_PUSH_RETRIES", "3")
	v.SetDefault("RETRY_BACKOFF", "0s")
	v.SetDefault("CONNECTIVITY_INTERVAL", "15s")
	v.SetDefault("HEARTBEAT_INTERVAL", "30s")
	v.SetDefault("SYNC_SCHEDULE", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE", "")
}

// LoadConfig resolves settings from the environment, optionally layered over
// the file named by CONFIG_FILE. Environment values win.
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	expiry, err := time.ParseDuration(v.GetString("JWT_EXPIRY"))
	if err != nil {
		return nil, errors.New("invalid JWT_EXPIRY format")
	}
	backoff, err := time.ParseDuration(v.GetString("RETRY_BACKOFF"))
	if err != nil {
		return nil, errors.New("invalid RETRY_BACKOFF format")
	}
	interval, err := time.ParseDuration(v.GetString("CONNECTIVITY_INTERVAL"))
	if err != nil {
		return nil, errors.New("invalid CONNECTIVITY_INTERVAL format")
	}
	heartbeat, err := time.ParseDuration(v.GetString("HEARTBEAT_INTERVAL"))
	if err != nil {
		return nil, errors.New("invalid HEARTBEAT_INTERVAL format")
	}
	retries, err := strconv.Atoi(v.GetString("MAX_PUSH_RETRIES"))
	if err != nil || retries < 0 {
		return nil, errors.New("MAX_PUSH_RETRIES must be a non-negative integer")
	}

	cfg := &Config{
		ServerPort:           v.GetString("SERVER_PORT"),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		RedisURL:             v.GetString("REDIS_URL"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		JWTExpiry:            expiry,
		LocalStoreDriver:     strings.ToLower(v.GetString("LOCAL_STORE_DRIVER")),
		LocalStorePath:       v.GetString("LOCAL_STORE_PATH"),
		RedisKeyPrefix:       v.GetString("REDIS_KEY_PREFIX"),
		MaxPushRetries:       retries,
		RetryBackoff:         backoff,
		ConnectivityInterval: interval,
		HeartbeatInterval:    heartbeat,
		SyncSchedule:         v.GetString("SYNC_SCHEDULE"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		LogFormat:            v.GetString("LOG_FORMAT"),
		LogFile:              v.GetString("LOG_FILE"),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	switch cfg.LocalStoreDriver {
	case DriverSQLite:
		if cfg.LocalStorePath == "" {
			return nil, errors.New("LOCAL_STORE_PATH is required for the sqlite driver")
		}
	case DriverRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required for the redis driver")
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("unknown LOCAL_STORE_DRIVER %q", cfg.LocalStoreDriver)
	}
	if cfg.ConnectivityInterval <= 0 {
		return nil, errors.New("CONNECTIVITY_INTERVAL must be positive")
	}

	return cfg, nil
}
