package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/letscience-intel-server/internal/domain"
)

const (
	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

// RateLimiter keeps a token bucket per client. Idle clients are forgotten
// after ten minutes.
type RateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters *expirable.LRU[string, *rate.Limiter]
}

// NewRateLimiter allows rps requests per second with the given burst per client
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}
	return &RateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		limiters: expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, clientIdleTTL),
	}
}

// Allow consumes a token of the client's bucket
func (r *RateLimiter) Allow(client string) bool {
	r.mu.Lock()
	limiter, ok := r.limiters.Get(client)
	if !ok {
		limiter = rate.NewLimiter(r.limit, r.burst)
	}
	// Re-adding refreshes the idle expiry.
	r.limiters.Add(client, limiter)
	r.mu.Unlock()
	return limiter.Allow()
}

// Middleware rejects clients that exceed their bucket with 429. Clients are
// keyed by user when authenticated, else by IP.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := "ip:" + c.ClientIP()
		if user, ok := CurrentUser(c); ok {
			client = "user:" + strconv.FormatInt(user.ID, 10)
		}
		if !r.Allow(client) {
			c.Header("Retry-After", "1")
			Abort(c, http.StatusTooManyRequests, domain.CodeRateLimit, "Rate limit exceeded")
			return
		}
		c.Next()
	}
}
