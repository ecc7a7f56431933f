package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/IgorGrieder/linkdeck/internal/auth"
	"github.com/IgorGrieder/linkdeck/internal/constants"
	"github.com/IgorGrieder/linkdeck/internal/infrastructure/logger"
	redisStorage "github.com/IgorGrieder/linkdeck/internal/storage/redis"
	"github.com/IgorGrieder/linkdeck/pkg/httputils"
	"go.uber.org/zap"
)

const rateLimitTimeout = 200 * time.Millisecond

// Limiter is satisfied by *redis.FixedWindowLimiter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int) (redisStorage.Decision, error)
}

// RateLimit caps requests per caller within scope. Callers are keyed by
// user id when signed in, by client IP otherwise. A nil limiter or a
// non-positive limit disables the check, and limiter errors fail open.
func RateLimit(limiter Limiter, scope string, limit int) func(http.Handler) http.Handler {
	if limiter == nil || limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), rateLimitTimeout)
			defer cancel()

			decision, err := limiter.Allow(ctx, scope+":"+rateLimitKey(r), limit)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", zap.String("scope", scope), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			remaining := int64(limit) - decision.Count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

			if !decision.Allowed {
				retryAfter := int(time.Until(decision.ResetAt).Seconds()) + 1
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				httputils.WriteAPIError(w, r, constants.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if sess := auth.FromContext(r.Context()); sess.Authenticated() {
		return "user:" + sess.UserID
	}
	return "ip:" + httputils.ClientIP(r)
}
