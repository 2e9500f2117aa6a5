package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/config"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// WindowCounter increments a fixed-window counter and reports the count and
// remaining window.  The Redis client provides the production
// implementation.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimitMiddleware enforces a fixed-window request limit per caller,
// keyed by user id when authenticated and remote address otherwise.
type RateLimitMiddleware struct {
	counter WindowCounter
	limit   int
	window  time.Duration
	log     logging.Logger
}

// NewRateLimitMiddleware creates the rate limiter.  A nil counter or a
// disabled config yields nil, which the router treats as "no limiting".
func NewRateLimitMiddleware(counter WindowCounter, cfg config.RateLimitConfig, log logging.Logger) *RateLimitMiddleware {
	if counter == nil || !cfg.Enabled || cfg.RequestsPerWindow <= 0 {
		return nil
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &RateLimitMiddleware{
		counter: counter,
		limit:   cfg.RequestsPerWindow,
		window:  cfg.Window,
		log:     log.Named("ratelimit"),
	}
}

// Handler applies the limit.  Counter failures fail open: a Redis outage
// must not take the API down with it.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ratelimit:" + callerKey(r)
		count, remaining, err := m.counter.IncrWindow(r.Context(), key, m.window)
		if err != nil {
			m.log.Warn("rate counter unavailable, allowing request", logging.Err(err))
			next.ServeHTTP(w, r)
			return
		}

		left := int64(m.limit) - count
		if left < 0 {
			left = 0
		}
		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(left, 10))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(remaining).Unix(), 10))

		if count > int64(m.limit) {
			h.Set("Retry-After", strconv.Itoa(int(remaining.Seconds())+1))
			h.Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"code":"` + apperrors.ErrCodeTooManyRequests.String() + `","message":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func callerKey(r *http.Request) string {
	if userID := ContextUserID(r.Context()); userID != "" {
		return "user:" + userID
	}
	return "ip:" + r.RemoteAddr
}
