package shield

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/toseeq44/automation-fb-sub002/idgen"
)

var requestID = idgen.NanoID(8)

// RequestID assigns each request a short random ID and injects it into the
// response headers and a per-request structured logger reachable via
// GetLogger.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := requestID()
		w.Header().Set("X-Request-ID", id)

		logger := slog.Default().With(
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		logger.Info("request")

		ctx := context.WithValue(r.Context(), loggerKey, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
