package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMemoryRateLimiter(t *testing.T) {
	rl := NewMemoryRateLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	h := RateLimit(rl, nil, nil, false)(okHandler())
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/book", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		codes = append(codes, rw.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	now = now.Add(2 * time.Minute)
	ok, err := rl.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}
func (failingLimiter) Window() time.Duration { return time.Minute }

func TestRateLimitFailOpen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rw := httptest.NewRecorder()
	RateLimit(failingLimiter{}, nil, logger, true)(okHandler()).ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rw.Code)

	rw = httptest.NewRecorder()
	RateLimit(failingLimiter{}, nil, logger, false)(okHandler()).ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rw.Code)
}

func TestChainOrderAndRequestID(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	var seenID string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestIDFromContext(r.Context())
	}), WithRequestID, mark("a"), mark("b"))

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b"}, order)
	assert.NotEmpty(t, seenID)
	assert.Equal(t, seenID, rw.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 500))
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	assert.Len(t, rw.Header().Get(RequestIDHeader), 32)
}

func TestWithRecover(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := WithRecover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rw.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := WithCORS(DefaultCORSPolicy([]string{"https://book.example.com"}))(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/book", nil)
	req.Header.Set("Origin", "https://book.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusNoContent, rw.Code)
	assert.Equal(t, "https://book.example.com", rw.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rw.Header().Get("Access-Control-Allow-Headers"), "X-Admin-Token")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/slots", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusOK, rw.Code)
	assert.Empty(t, rw.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcardAndDisabled(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/services", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")

	rw := httptest.NewRecorder()
	WithCORS(DefaultCORSPolicy([]string{"*"}))(okHandler()).ServeHTTP(rw, req)
	assert.Equal(t, "*", rw.Header().Get("Access-Control-Allow-Origin"))

	rw = httptest.NewRecorder()
	WithCORS(DefaultCORSPolicy(nil))(okHandler()).ServeHTTP(rw, req)
	assert.Empty(t, rw.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	rl := NewMemoryRateLimiter(1, time.Minute)
	h := RateLimit(rl, nil, nil, false)(okHandler())

	passed := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/book", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.1.0.%d", i))
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		if rw.Code == http.StatusOK {
			passed++
		}
	}
	assert.Equal(t, 1, passed)
	assert.Len(t, rl.visitors, 1)
}

func TestForwardedKeyTrustsConfiguredProxies(t *testing.T) {
	key, err := ForwardedKey([]string{"10.0.0.0/8", "192.0.2.1"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.5:443"
	req.Header.Set("X-Forwarded-For", "1.1.1.1, 198.51.100.9, 192.0.2.1")
	assert.Equal(t, "198.51.100.9", key(req))

	req.RemoteAddr = "198.51.100.20:443"
	assert.Equal(t, "198.51.100.20", key(req))

	req.RemoteAddr = "10.0.0.5:443"
	req.Header.Del("X-Forwarded-For")
	assert.Equal(t, "10.0.0.5", key(req))

	_, err = ForwardedKey([]string{"not-an-ip"})
	assert.Error(t, err)

	plain, err := ForwardedKey(nil)
	require.NoError(t, err)
	req.Header.Set("X-Forwarded-For", "1.1.1.1")
	assert.Equal(t, "10.0.0.5", plain(req))
}

func TestMemoryRateLimiterEvictsExpiredVisitors(t *testing.T) {
	rl := NewMemoryRateLimiter(1, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		_, err := rl.Allow(context.Background(), fmt.Sprintf("client-%d", i))
		require.NoError(t, err)
	}
	assert.Len(t, rl.visitors, 100)

	now = now.Add(2 * time.Minute)
	_, err := rl.Allow(context.Background(), "late")
	require.NoError(t, err)
	assert.Len(t, rl.visitors, 1)
}
