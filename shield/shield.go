// Package shield provides the HTTP hardening middleware for the extraction
// API: security headers, request body limits, per-request IDs, and per-IP
// rate limiting.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultStack() {
//	    r.Use(mw)
//	}
package shield

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

// loggerKey is the context key for the per-request structured logger.
const loggerKey contextKey = "shield_logger"

// DefaultStack returns the standard middleware chain, ordered:
// SecurityHeaders → MaxBody → RequestID → RateLimiter.
func DefaultStack() []func(http.Handler) http.Handler {
	rl := NewRateLimiter(DefaultRateLimit(), "/healthz")
	return []func(http.Handler) http.Handler{
		SecurityHeaders(DefaultHeaders()),
		MaxBody(1 << 20),
		RequestID,
		rl.Middleware,
	}
}

// GetLogger retrieves the per-request logger from the context, or
// slog.Default() when no middleware set one.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
