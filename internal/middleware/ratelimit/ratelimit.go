package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"moneymanager/internal/log"
)

// DefaultRate allows 60 requests per minute per client.
const DefaultRate = "60-M"

// Limiter throttles requests per client IP.
type Limiter struct {
	limiter *limiter.Limiter
	logger  *log.Logger
	hits    int64
}

// NewLimiter builds a limiter from a formatted rate such as "60-M" or
// "5-S", backed by an in-process store.
func NewLimiter(rate string, logger *log.Logger) (*Limiter, error) {
	if rate == "" {
		rate = DefaultRate
	}
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", rate, err)
	}
	return &Limiter{
		limiter: limiter.New(memory.NewStore(), r),
		logger:  log.OrDiscard(logger).WithComponent(log.ComponentRateLimit),
	}, nil
}

// Metrics for monitoring rate limit performance
type Metrics struct {
	TotalHits int64
}

func (l *Limiter) GetMetrics() Metrics {
	return Metrics{TotalHits: atomic.LoadInt64(&l.hits)}
}

// Middleware limits requests by extractIP. Only methods in methods are
// counted; with none given every request is.
func (l *Limiter) Middleware(extractIP func(*http.Request) string, onLimit http.HandlerFunc, methods ...string) func(http.Handler) http.Handler {
	counted := make(map[string]bool, len(methods))
	for _, m := range methods {
		counted[m] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(counted) > 0 && !counted[r.Method] {
				next.ServeHTTP(w, r)
				return
			}
			ip := extractIP(r)
			lctx, err := l.limiter.Get(r.Context(), ip)
			if err != nil {
				l.logger.ErrorContext(r.Context(), "Failed to get rate limit context", log.FieldClientIP, ip, log.FieldError, err)
				http.Error(w, "Internal server error during rate limit check", http.StatusInternalServerError)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))

			if lctx.Reached {
				atomic.AddInt64(&l.hits, 1)
				l.logger.WarnContext(r.Context(), "Rate limit exceeded",
					log.FieldClientIP, ip, log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
				w.Header().Set("Retry-After", "60")
				if onLimit != nil {
					onLimit(w, r)
					return
				}
				http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
