package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/agromarket-storefront/pkg/logger"
)

// RequestLogger stores a request-scoped logger carrying correlation_id,
// session_id, user_id and trace fields. Mount it after RequestLogging and
// Tracing, and again after Auth on authenticated groups so the session
// fields are picked up.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			enriched := logger.WithContext(ctx, base)
			ctx = logger.NewContext(ctx, enriched)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
