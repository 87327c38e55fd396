package shield

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders_Set(t *testing.T) {
	// WHAT: Every configured header appears on the response.
	// WHY: The API is exposed; these headers are the baseline hardening.
	h := SecurityHeaders(DefaultHeaders())(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/extract", nil))

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing CSP")
	}
}

func TestMaxBody_RejectsOversized(t *testing.T) {
	// WHAT: Bodies over the cap fail to read inside the handler.
	// WHY: Extraction payloads are tiny; a huge body is abuse.
	var readErr error
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		for readErr == nil {
			_, readErr = r.Body.Read(buf)
		}
		w.WriteHeader(http.StatusOK)
	})
	h := MaxBody(16)(inner)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader(strings.Repeat("x", 100)))
	h.ServeHTTP(rec, req)

	if _, ok := readErr.(*http.MaxBytesError); !ok {
		t.Errorf("read error = %v, want MaxBytesError", readErr)
	}
}

func TestRequestID_HeaderAndLogger(t *testing.T) {
	// WHAT: Each request gets an X-Request-ID and a context logger.
	// WHY: Log lines across a run are correlated through this ID.
	var sawLogger bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLogger = GetLogger(r.Context()) != nil
	})
	h := RequestID(inner)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/methods", nil))

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if !sawLogger {
		t.Error("no logger in context")
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	// WHAT: Requests beyond the window limit get 429 with Retry-After;
	// excluded paths always pass.
	// WHY: One client must not monopolise the extraction workers.
	rl := NewRateLimiter(RateLimitConfig{MaxRequests: 2, Window: time.Minute}, "/healthz")
	h := rl.Middleware(okHandler())

	status := func(path string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if status("/extract") != http.StatusOK || status("/extract") != http.StatusOK {
		t.Fatal("first two requests should pass")
	}
	if status("/extract") != http.StatusTooManyRequests {
		t.Fatal("third request should be limited")
	}
	if status("/healthz") != http.StatusOK {
		t.Fatal("excluded path should bypass the limiter")
	}
}

func TestRateLimiter_PerIP(t *testing.T) {
	// WHAT: Limits are tracked per client IP.
	// WHY: One abusive client must not starve the others.
	rl := NewRateLimiter(RateLimitConfig{MaxRequests: 1, Window: time.Minute})
	h := rl.Middleware(okHandler())

	hit := func(addr string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/extract", nil)
		req.RemoteAddr = addr
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	hit("10.0.0.1:1")
	if hit("10.0.0.1:2") != http.StatusTooManyRequests {
		t.Error("same IP should be limited")
	}
	if hit("10.0.0.2:1") != http.StatusOK {
		t.Error("different IP should pass")
	}
}

func TestRateLimiter_SweepsExpiredBuckets(t *testing.T) {
	// WHAT: A bucket whose window has passed is dropped from the map the
	// next time the sweep runs.
	// WHY: The per-IP map must not grow without bound as clients churn.
	rl := NewRateLimiter(RateLimitConfig{MaxRequests: 5, Window: 20 * time.Millisecond})

	if !rl.allow("10.0.0.1") {
		t.Fatal("first request should pass")
	}
	time.Sleep(30 * time.Millisecond)
	rl.allow("10.0.0.2")

	if _, ok := rl.buckets.Load("10.0.0.1"); ok {
		t.Error("expired bucket was not swept")
	}
	if _, ok := rl.buckets.Load("10.0.0.2"); !ok {
		t.Error("live bucket must survive the sweep")
	}
}

func TestExtractIP_ForwardedFor(t *testing.T) {
	// WHAT: X-Forwarded-For wins over RemoteAddr and only the first hop counts.
	// WHY: The service typically sits behind a reverse proxy.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:9999"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := ExtractIP(req); got != "203.0.113.7" {
		t.Errorf("ExtractIP = %q", got)
	}
}
