package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tracelens-io/tracelens/internal/authz"
	"github.com/tracelens-io/tracelens/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRequestIDGenerated(t *testing.T) {
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "unknown" {
			t.Error("expected request ID in context")
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestRequestIDHonorsInbound(t *testing.T) {
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := GetRequestID(r.Context()); got != "client-supplied" {
			t.Errorf("GetRequestID() = %q, want %q", got, "client-supplied")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-supplied")

	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestRecoveryReturnsProblemJSON(t *testing.T) {
	handler := Recovery(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	if got := rec.Header().Get("Content-Type"); got != "application/problem+json" {
		t.Errorf("Content-Type = %q, want problem+json", got)
	}
}

type fakePrincipalResolver struct {
	identities map[string]*storage.Identity
}

func (f *fakePrincipalResolver) FindByKey(_ context.Context, key string) (*storage.Identity, bool) {
	identity, ok := f.identities[key]

	return identity, ok
}

func TestAuthenticate(t *testing.T) {
	resolver := &fakePrincipalResolver{
		identities: map[string]*storage.Identity{
			"good-key": {UserID: "user-1", Name: "Test User", Admin: true},
		},
	}

	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
		wantUserID string
	}{
		{"no key passes as anonymous", "", "", http.StatusOK, ""},
		{"valid x-api-key", "X-Api-Key", "good-key", http.StatusOK, "user-1"},
		{"valid bearer token", "Authorization", "Bearer good-key", http.StatusOK, "user-1"},
		{"invalid key rejected", "X-Api-Key", "bad-key", http.StatusUnauthorized, ""},
		{"header injection rejected as missing", "X-Api-Key", "good\r\nkey", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPrincipal authz.Principal

			handler := Authenticate(resolver, testLogger())(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					gotPrincipal = authz.PrincipalFromContext(r.Context())
				}),
			)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			if gotPrincipal.UserID != tt.wantUserID {
				t.Errorf("principal.UserID = %q, want %q", gotPrincipal.UserID, tt.wantUserID)
			}
		})
	}
}

func TestRateLimitAnonymousTier(t *testing.T) {
	limiter := NewInMemoryRateLimiter(&Config{
		GlobalRPS:   1000,
		UserRPS:     1000,
		UnAuthRPS:   1,
		UnAuthBurst: 2,
	})
	defer limiter.Close()

	handler := RateLimit(limiter, testLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	var limited bool

	for range 5 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code == http.StatusTooManyRequests {
			limited = true
		}
	}

	if !limited {
		t.Error("expected anonymous tier to rate limit within 5 requests")
	}
}

func TestRateLimitPerUserIsolation(t *testing.T) {
	limiter := NewInMemoryRateLimiter(&Config{
		GlobalRPS: 1000,
		UserRPS:   1,
		UserBurst: 1,
		UnAuthRPS: 1000,
	})
	defer limiter.Close()

	if !limiter.Allow("user-a") {
		t.Fatal("first request for user-a should pass")
	}

	if limiter.Allow("user-a") {
		t.Error("second immediate request for user-a should be limited")
	}

	// Another user has an independent bucket.
	if !limiter.Allow("user-b") {
		t.Error("first request for user-b should pass")
	}
}

func TestRateLimiterCleanupRemovesIdleUsers(t *testing.T) {
	limiter := NewInMemoryRateLimiter(&Config{
		GlobalRPS:       1000,
		UserRPS:         10,
		UnAuthRPS:       10,
		CleanupInterval: time.Hour,
		IdleTimeout:     time.Nanosecond,
	})
	defer limiter.Close()

	limiter.Allow("user-a")
	time.Sleep(time.Millisecond)
	limiter.cleanup()

	limiter.mu.RLock()
	defer limiter.mu.RUnlock()

	if len(limiter.perUser) != 0 {
		t.Errorf("tracked users after cleanup = %d, want 0", len(limiter.perUser))
	}
}

func TestApplyOrder(t *testing.T) {
	var order []string

	tag := func(name string) Option {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Apply(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}),
		tag("outer"), tag("inner"),
	)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("middleware order = %v, want [outer inner]", order)
	}
}
