package middleware

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/notttired/aire-frontend/internal/delivery/http/handler"
	"github.com/notttired/aire-frontend/internal/delivery/http/response"
	"github.com/notttired/aire-frontend/internal/repository"
	"github.com/notttired/aire-frontend/pkg/metrics"
)

// RateLimit allows at most limit requests per client address per window.
// Counter errors let the request through.
func RateLimit(repo repository.RateLimitRepository, limit int, window time.Duration, m *metrics.Metrics, l *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientKey(r)
			count, err := repo.Hit(r.Context(), client, window)
			if err != nil {
				l.Warn("rate limiter unavailable, allowing request", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if count > int64(limit) {
				m.IncRateLimited()
				l.Info("submission rate limited", zap.Int64("count", count), zap.Int("limit", limit))
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
				handler.WriteJSON(w, http.StatusTooManyRequests, response.ErrorResponse{
					Error: fmt.Sprintf("too many submissions: at most %d per %s", limit, window),
				}, l)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey is the caller address without its port. RealIP has already
// replaced RemoteAddr when a forwarding header was present.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
