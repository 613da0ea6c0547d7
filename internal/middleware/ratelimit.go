package middleware

import (
	"math"
	"net"
	"net/http"

	"github.com/zhouzirui/consult/backend/internal/apperr"
	"github.com/zhouzirui/consult/backend/internal/resilience"
	"github.com/zhouzirui/consult/backend/pkg/utils"
)

// RateLimit 以客户端IP为键限流，需放在 chi 的 RealIP 之后。
func RateLimit(limiter *resilience.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			if !limiter.Allow(key) {
				err := apperr.RateLimit("too many requests")
				if retry := limiter.RetryAfter(key); retry > 0 {
					err = err.With("retryAfterSeconds", int(math.Ceil(retry.Seconds())))
				}
				utils.RespondAppError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
