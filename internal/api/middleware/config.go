package middleware

import (
	"time"

	"github.com/tracelens-io/tracelens/internal/config"
)

// Config holds rate limiter configuration. Limits are requests per second
// for three tiers: global (all requests), per-user (authenticated), and
// unauthenticated. Burst fields of 0 are computed as twice the rate.
type Config struct {
	GlobalRPS int
	UserRPS   int
	UnAuthRPS int

	GlobalBurst int
	UserBurst   int
	UnAuthBurst int

	CleanupInterval time.Duration
	IdleTimeout     time.Duration
	MaxUsers        int
}

// LoadConfig loads rate limiter config from environment variables with
// fallback to defaults.
func LoadConfig() *Config {
	return &Config{
		GlobalRPS: config.GetEnvInt("TRACELENS_GLOBAL_RPS", defaultGlobalRPS),
		UserRPS:   config.GetEnvInt("TRACELENS_USER_RPS", defaultUserRPS),
		UnAuthRPS: config.GetEnvInt("TRACELENS_UNAUTH_RPS", defaultUnAuthRPS),

		GlobalBurst: config.GetEnvInt("TRACELENS_GLOBAL_BURST", 0),
		UserBurst:   config.GetEnvInt("TRACELENS_USER_BURST", 0),
		UnAuthBurst: config.GetEnvInt("TRACELENS_UNAUTH_BURST", 0),

		CleanupInterval: config.GetEnvDuration("TRACELENS_RATE_LIMIT_CLEANUP_INTERVAL", rateLimiterCleanupInterval),
		IdleTimeout:     config.GetEnvDuration("TRACELENS_RATE_LIMIT_IDLE_TIMEOUT", rateLimiterIdleTimeout),
		MaxUsers:        config.GetEnvInt("TRACELENS_RATE_LIMIT_MAX_USERS", defaultMaxUsers),
	}
}
