package middleware

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/avelazquez/zocalo-backend/api/responses"
	"github.com/avelazquez/zocalo-backend/pkg/config"
	pkgerrors "github.com/avelazquez/zocalo-backend/pkg/errors"
	"github.com/avelazquez/zocalo-backend/pkg/logger"
)

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit applies a fixed-window limit per authenticated user, falling back
// to the client IP for anonymous requests. A failing limiter store lets the
// request through.
func RateLimit(cfg config.RateLimitConfig, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || cfg.RequestLimit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			scope := UserIDFromContext(r.Context())
			if scope == "" {
				scope = clientIP(r)
			}

			allowed, _, err := store.FixedWindowAllow(r.Context(), scope, cfg.RequestLimit, cfg.Window)
			if err != nil {
				if logg != nil {
					logg.Error(r.Context(), "rate limit check failed", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
