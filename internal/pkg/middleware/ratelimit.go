// Package middleware provides HTTP middleware components.
package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/codehound/hound-search/internal/pkg/errors"
)

// RateLimiter provides per-client rate limiting for the search surface.
// Searches fan out to backend nodes, so an unthrottled client multiplies
// load across the cluster.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*rate.Limiter
	lastSeen map[string]time.Time
	rate     rate.Limit
	burst    int
	cleanup  time.Duration
}

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// RequestsPerSecond is the sustained rate per client.
	RequestsPerSecond float64

	// Burst is the maximum burst size.
	Burst int

	// CleanupInterval is how often stale clients are dropped.
	CleanupInterval time.Duration
}

// DefaultRateLimiterConfig returns sensible defaults.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RequestsPerSecond: 10,
		Burst:             20,
		CleanupInterval:   time.Minute,
	}
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		clients:  make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rate:     rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
		cleanup:  cfg.CleanupInterval,
	}

	go rl.cleanupLoop()

	return rl
}

// Allow reports whether a request from the client may proceed.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	limiter, ok := rl.clients[client]
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.clients[client] = limiter
	}
	rl.lastSeen[client] = time.Now()
	rl.mu.Unlock()

	return limiter.Allow()
}

// Middleware wraps a handler with per-client limiting keyed by remote
// address.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientKey(r)
		if !rl.Allow(client) {
			apperrors.WriteError(w, apperrors.RateLimitedError(1))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-3 * rl.cleanup)
		rl.mu.Lock()
		for client, seen := range rl.lastSeen {
			if seen.Before(cutoff) {
				delete(rl.clients, client)
				delete(rl.lastSeen, client)
			}
		}
		rl.mu.Unlock()
	}
}
