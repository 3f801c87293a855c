package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_AllowsWithinBurst(t *testing.T) {
	handler := RateLimit(10, 5, discardLogger())(okHandler())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "request %d within burst should pass", i)
	}
}

func TestRateLimit_RejectsOverBurst(t *testing.T) {
	handler := RateLimit(1, 2, discardLogger())(okHandler())

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.2:12345"
		handler.ServeHTTP(last, req)
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(last.Body).Decode(&body))
	assert.Equal(t, "RATE_LIMITED", body["code"])
}

func TestRateLimit_IsolatesClients(t *testing.T) {
	handler := RateLimit(1, 1, discardLogger())(okHandler())

	// Exhaust the first client's bucket.
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.3:12345"
		handler.ServeHTTP(rec, req)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.4:12345"
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, "a different client should not be throttled")
}

func TestClientIP_XForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:5000"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	assert.Equal(t, "203.0.113.7", clientIP(req))
}

func TestClientIP_XForwardedFor_SkipsGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:5000"
	req.Header.Set("X-Forwarded-For", "not-an-ip, 203.0.113.7")

	assert.Equal(t, "203.0.113.7", clientIP(req))
}

func TestClientIP_XRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:5000"
	req.Header.Set("X-Real-IP", "198.51.100.9")

	assert.Equal(t, "198.51.100.9", clientIP(req))
}

func TestClientIP_FallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:5000"

	assert.Equal(t, "192.168.1.1", clientIP(req))
}

func TestVisitorStore_CleanupEvictsStale(t *testing.T) {
	store := newVisitorStore(10, 10, time.Minute)

	now := time.Now()
	store.nowFunc = func() time.Time { return now }
	store.getVisitor("10.0.0.1")
	store.getVisitor("10.0.0.2")
	require.Equal(t, 2, store.len())

	// Advance the clock past the TTL for one visitor only.
	store.nowFunc = func() time.Time { return now.Add(30 * time.Second) }
	store.getVisitor("10.0.0.2")

	store.nowFunc = func() time.Time { return now.Add(70 * time.Second) }
	store.cleanup()

	assert.Equal(t, 1, store.len())
}
