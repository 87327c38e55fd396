package shield

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig is a fixed-window per-IP limit.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

// DefaultRateLimit allows a browser-automation-heavy workload without
// letting one client monopolise the method budget.
func DefaultRateLimit() RateLimitConfig {
	return RateLimitConfig{MaxRequests: 60, Window: time.Minute}
}

type bucket struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

// RateLimiter enforces a per-IP fixed-window limit across all endpoints.
// Buckets live in memory; expired ones are swept out at most once per
// window so the map does not grow with client churn.
type RateLimiter struct {
	cfg     RateLimitConfig
	buckets sync.Map
	exclude []string

	sweepMu   sync.Mutex
	nextSweep time.Time
}

// NewRateLimiter creates a limiter. Paths with an excluded prefix (health
// checks) bypass it.
func NewRateLimiter(cfg RateLimitConfig, excludePrefixes ...string) *RateLimiter {
	if cfg.MaxRequests <= 0 {
		cfg = DefaultRateLimit()
	}
	return &RateLimiter{cfg: cfg, exclude: excludePrefixes}
}

func (rl *RateLimiter) allow(ip string) bool {
	now := time.Now()
	rl.sweep(now)

	val, _ := rl.buckets.LoadOrStore(ip, &bucket{})
	b := val.(*bucket)

	b.mu.Lock()
	defer b.mu.Unlock()
	if now.After(b.resetAt) {
		b.count = 0
		b.resetAt = now.Add(rl.cfg.Window)
	}
	b.count++
	return b.count <= rl.cfg.MaxRequests
}

// sweep deletes buckets whose window has passed, at most once per window.
// A concurrent request whose bucket gets swept restarts on a fresh bucket,
// which at worst grants that client one extra window.
func (rl *RateLimiter) sweep(now time.Time) {
	rl.sweepMu.Lock()
	if now.Before(rl.nextSweep) {
		rl.sweepMu.Unlock()
		return
	}
	rl.nextSweep = now.Add(rl.cfg.Window)
	rl.sweepMu.Unlock()

	rl.buckets.Range(func(key, val any) bool {
		b := val.(*bucket)
		b.mu.Lock()
		expired := now.After(b.resetAt)
		b.mu.Unlock()
		if expired {
			rl.buckets.Delete(key)
		}
		return true
	})
}

// Middleware enforces the limit with a 429 JSON response.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range rl.exclude {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		ip := ExtractIP(r)
		if rl.allow(ip) {
			next.ServeHTTP(w, r)
			return
		}

		slog.Warn("ratelimit: request blocked", "ip", ip, "path", r.URL.Path)
		w.Header().Set("Retry-After", "60")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
	})
}

// ExtractIP returns the client IP from X-Forwarded-For or RemoteAddr.
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
