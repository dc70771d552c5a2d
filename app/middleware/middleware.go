package appMiddleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// ClientLimiter hands out one token bucket per client address. Buckets of clients that
// went quiet expire from the cache.
type ClientLimiter struct {
	rps     rate.Limit
	burst   int
	clients *cache.Cache
	mu      sync.Mutex
}

func NewClientLimiter(rps float64, burst int, idle time.Duration) *ClientLimiter {
	if burst <= 0 {
		burst = 1
	}
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &ClientLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		clients: cache.New(idle, 2*idle),
	}
}

func (c *ClientLimiter) limiter(client string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, found := c.clients.Get(client); found {
		c.clients.SetDefault(client, l)
		return l.(*rate.Limiter)
	}
	l := rate.NewLimiter(c.rps, c.burst)
	c.clients.SetDefault(client, l)
	return l
}

// Allow reports whether client may make a request now.
func (c *ClientLimiter) Allow(client string) bool {
	if c.rps <= 0 {
		return true
	}
	return c.limiter(client).Allow()
}

// RateLimit rejects requests over the per-client budget with 429. It keys on
// RemoteAddr, so middleware.RealIP should run first.
func RateLimit(limiter *ClientLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientKey(r.RemoteAddr)
			if limiter.Allow(client) {
				next.ServeHTTP(w, r)
				return
			}

			logger.WarnContext(r.Context(), "Rate limit exceeded",
				slog.String("client", client),
				slog.String("path", r.URL.Path),
				slog.String("req_id", middleware.GetReqID(r.Context())))

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(limiter.rps)))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success":    false,
				"error":      "Too many requests, slow down",
				"request_id": middleware.GetReqID(r.Context()),
			})
		})
	}
}

func clientKey(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func retryAfterSeconds(rps rate.Limit) int {
	if rps <= 0 || rps >= 1 {
		return 1
	}
	return int(1/rps) + 1
}
