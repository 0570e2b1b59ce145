package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tracelens-io/tracelens/internal/authz"
	"github.com/tracelens-io/tracelens/internal/storage"
)

// ErrInvalidAPIKey is returned for invalid or unknown API keys.
// Generic error prevents key enumeration.
var ErrInvalidAPIKey = errors.New("invalid API key")

// PrincipalResolver resolves API keys to user identities.
// Implemented by storage.PrincipalStore.
type PrincipalResolver interface {
	FindByKey(ctx context.Context, key string) (*storage.Identity, bool)
}

// Authenticate creates a middleware that resolves the request's API key to a
// principal. Requests without a key proceed as anonymous; the workspace
// scope check rejects them at the handler with an empty scope. A key that is
// present but invalid is a hard 401, so misconfigured clients fail loudly
// instead of silently degrading to anonymous.
func Authenticate(resolver PrincipalResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, found := extractAPIKey(r)
			if !found {
				next.ServeHTTP(w, r)

				return
			}

			identity, ok := resolver.FindByKey(r.Context(), key)
			if !ok {
				requestID := GetRequestID(r.Context())

				logger.Warn("authentication failed",
					slog.String("path", r.URL.Path),
					slog.String("key", storage.MaskKey(key)),
					slog.String("request_id", requestID),
				)

				if err := writeProblem(w, r, http.StatusUnauthorized, ErrInvalidAPIKey.Error(), requestID); err != nil {
					logger.Error("failed to write error response", slog.Any("error", err))
				}

				return
			}

			principal := authz.Principal{
				UserID:        identity.UserID,
				Name:          identity.Name,
				Authenticated: true,
				Admin:         identity.Admin,
			}

			ctx := authz.WithPrincipal(r.Context(), principal)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractAPIKey extracts the API key from request headers. X-Api-Key takes
// precedence over Authorization: Bearer.
func extractAPIKey(r *http.Request) (string, bool) {
	if apiKey := r.Header.Get("X-Api-Key"); apiKey != "" {
		return validateAPIKey(apiKey)
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return validateAPIKey(strings.TrimPrefix(authHeader, "Bearer "))
	}

	return "", false
}

// validateAPIKey rejects keys containing newlines (header injection) and
// trims whitespace.
func validateAPIKey(key string) (string, bool) {
	if strings.ContainsAny(key, "\r\n") {
		return "", false
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}

	return key, true
}
