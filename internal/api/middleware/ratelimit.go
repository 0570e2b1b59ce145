package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tracelens-io/tracelens/internal/authz"
)

const (
	burstCapacityMultiplier    = 2
	defaultGlobalRPS           = 100
	defaultUserRPS             = 50
	defaultUnAuthRPS           = 10
	defaultMaxUsers            = 10000
	rateLimiterCleanupInterval = 5 * time.Minute
	rateLimiterIdleTimeout     = 1 * time.Hour
)

type (
	// RateLimiter decides whether a request should be allowed.
	// userID is empty for unauthenticated requests.
	RateLimiter interface {
		Allow(userID string) bool
	}

	// InMemoryRateLimiter implements RateLimiter with three tiers of token
	// buckets: a global limit over all requests, a per-user limit for
	// authenticated requests, and a shared bucket for anonymous traffic.
	// Idle per-user buckets are removed by a background cleanup goroutine.
	InMemoryRateLimiter struct {
		global          *rate.Limiter
		perUser         map[string]*userLimiter
		unauthenticated *rate.Limiter
		mu              sync.RWMutex
		cleanupTicker   *time.Ticker
		done            chan struct{}
		closeOnce       sync.Once

		userRPS         int
		userBurst       int
		cleanupInterval time.Duration
		idleTimeout     time.Duration
		maxUsers        int
	}

	userLimiter struct {
		limiter    *rate.Limiter
		lastAccess time.Time
		mu         sync.Mutex
	}
)

// NewInMemoryRateLimiter creates a rate limiter from config. Burst capacity
// defaults to twice the sustained rate unless overridden.
func NewInMemoryRateLimiter(config *Config) *InMemoryRateLimiter {
	rl := &InMemoryRateLimiter{
		global:          rate.NewLimiter(rate.Limit(config.GlobalRPS), computeBurst(config.GlobalRPS, config.GlobalBurst)),
		perUser:         make(map[string]*userLimiter),
		unauthenticated: rate.NewLimiter(rate.Limit(config.UnAuthRPS), computeBurst(config.UnAuthRPS, config.UnAuthBurst)),
		done:            make(chan struct{}),
		userRPS:         config.UserRPS,
		userBurst:       computeBurst(config.UserRPS, config.UserBurst),
		cleanupInterval: config.CleanupInterval,
		idleTimeout:     config.IdleTimeout,
		maxUsers:        config.MaxUsers,
	}

	rl.startCleanup()

	return rl
}

func computeBurst(rps, burstOverride int) int {
	if burstOverride > 0 {
		return burstOverride
	}

	return rps * burstCapacityMultiplier
}

// Allow checks the global limit first, then the per-user or anonymous tier.
func (rl *InMemoryRateLimiter) Allow(userID string) bool {
	if !rl.global.Allow() {
		return false
	}

	if userID == "" {
		return rl.unauthenticated.Allow()
	}

	rl.mu.RLock()
	ul, ok := rl.perUser[userID]
	rl.mu.RUnlock()

	if !ok {
		rl.mu.Lock()
		if ul, ok = rl.perUser[userID]; !ok {
			ul = &userLimiter{
				limiter:    rate.NewLimiter(rate.Limit(rl.userRPS), rl.userBurst),
				lastAccess: time.Now(),
			}

			rl.perUser[userID] = ul

			if len(rl.perUser) >= rl.maxUsers {
				slog.Warn("rate limiter at max tracked users",
					slog.Int("tracked_users", len(rl.perUser)),
					slog.Int("max_users", rl.maxUsers),
				)
			}
		}
		rl.mu.Unlock()
	}

	ul.mu.Lock()
	ul.lastAccess = time.Now()
	ul.mu.Unlock()

	return ul.limiter.Allow()
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (rl *InMemoryRateLimiter) Close() {
	rl.closeOnce.Do(func() {
		if rl.cleanupTicker != nil {
			rl.cleanupTicker.Stop()
		}

		close(rl.done)
	})
}

func (rl *InMemoryRateLimiter) startCleanup() {
	interval := rl.cleanupInterval
	if interval == 0 {
		interval = rateLimiterCleanupInterval
	}

	rl.cleanupTicker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-rl.cleanupTicker.C:
				rl.cleanup()
			case <-rl.done:
				return
			}
		}
	}()
}

func (rl *InMemoryRateLimiter) cleanup() {
	idleTimeout := rl.idleTimeout
	if idleTimeout == 0 {
		idleTimeout = rateLimiterIdleTimeout
	}

	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for userID, ul := range rl.perUser {
		ul.mu.Lock()
		lastAccess := ul.lastAccess
		ul.mu.Unlock()

		if now.Sub(lastAccess) > idleTimeout {
			delete(rl.perUser, userID)
		}
	}
}

// RateLimit creates a middleware enforcing the given limiter. Must run after
// authentication so the per-user tier sees the resolved principal.
func RateLimit(limiter RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := ""
			if principal := authz.PrincipalFromContext(r.Context()); principal.Authenticated {
				userID = principal.UserID
			}

			if !limiter.Allow(userID) {
				requestID := GetRequestID(r.Context())

				detail := "Rate limit exceeded. Please retry after some time."
				if err := writeProblem(w, r, http.StatusTooManyRequests, detail, requestID); err != nil {
					logger.Error("failed to write error response",
						slog.String("request_id", requestID),
						slog.Any("error", err),
					)
				}

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
