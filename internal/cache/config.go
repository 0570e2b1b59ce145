package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/tracelens-io/tracelens/internal/config"
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LoadRedisConfig loads Redis configuration from environment variables with
// fallback to defaults. An empty TRACELENS_REDIS_ADDR means Redis is not
// configured and the in-memory store should be used instead.
func LoadRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         config.GetEnvStr("TRACELENS_REDIS_ADDR", ""),
		Username:     config.GetEnvStr("TRACELENS_REDIS_USERNAME", ""),
		Password:     config.GetEnvStr("TRACELENS_REDIS_PASSWORD", ""),
		DB:           config.GetEnvInt("TRACELENS_REDIS_DB", 0),
		DialTimeout:  config.GetEnvDuration("TRACELENS_REDIS_DIAL_TIMEOUT", defaultDialTimeout),
		ReadTimeout:  config.GetEnvDuration("TRACELENS_REDIS_READ_TIMEOUT", defaultReadTimeout),
		WriteTimeout: config.GetEnvDuration("TRACELENS_REDIS_WRITE_TIMEOUT", defaultWriteTimeout),
	}
}

// NewStoreFromEnv builds the shared cache store from environment
// configuration: Redis when an address is configured, the in-memory store
// otherwise. Falls back to the in-memory store (with a warning) when Redis is
// configured but unreachable, so the service starts degraded instead of
// failing.
func NewStoreFromEnv(ctx context.Context, logger *slog.Logger) Store {
	cfg := LoadRedisConfig()
	if cfg.Addr == "" {
		logger.Info("Redis not configured, using in-memory cache store")

		return NewMemoryStore()
	}

	store, err := NewRedisStore(ctx, cfg)
	if err != nil {
		logger.Warn("Redis unreachable, falling back to in-memory cache store",
			slog.String("addr", cfg.Addr),
			slog.String("error", err.Error()),
		)

		return NewMemoryStore()
	}

	logger.Info("Connected to Redis cache", slog.String("addr", cfg.Addr))

	return store
}
