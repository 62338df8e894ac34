package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllow_BurstThenThrottle(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 1,
		Burst:             3,
		CleanupInterval:   time.Minute,
	})

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d inside burst was throttled", i)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Error("request beyond burst was allowed")
	}
}

func TestAllow_ClientsIsolated(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 1,
		Burst:             1,
		CleanupInterval:   time.Minute,
	})

	if !rl.Allow("10.0.0.1") {
		t.Fatal("first client throttled immediately")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("first client not throttled after burst")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("second client throttled by the first client's usage")
	}
}

func TestMiddleware(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 1,
		Burst:             1,
		CleanupInterval:   time.Minute,
	})

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/search", nil)
	req.RemoteAddr = "10.0.0.1:54321"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("throttled request status = %d, want 429", rec.Code)
	}
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:12345"
	if got := clientKey(req); got != "192.168.1.5" {
		t.Errorf("clientKey = %q", got)
	}

	req.RemoteAddr = "no-port"
	if got := clientKey(req); got != "no-port" {
		t.Errorf("clientKey fallback = %q", got)
	}
}
