package middleware

import (
	"sync"
	"time"

	errs "github.com/amirhossein-jamali/paylink/internal/domain/error"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitRecorder counts rejected requests
type RateLimitRecorder interface {
	ObserveRateLimit(route string)
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	clients map[string]*clientLimiter
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
	idleTTL time.Duration
	lastGC  time.Time
	now     func() time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerMinute per client with the given burst
func NewRateLimiter(requestsPerMinute, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		rate:    rate.Every(time.Minute / time.Duration(max(requestsPerMinute, 1))),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

// Allow reports whether the client may make one more request now
func (rl *RateLimiter) Allow(clientIP string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.evictIdle(now)

	client, exists := rl.clients[clientIP]
	if !exists {
		client = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[clientIP] = client
	}
	client.lastSeen = now
	return client.limiter.AllowN(now, 1)
}

// evictIdle drops clients not seen for idleTTL, at most once per idleTTL. Caller holds mu.
func (rl *RateLimiter) evictIdle(now time.Time) {
	if now.Sub(rl.lastGC) < rl.idleTTL {
		return
	}
	for ip, client := range rl.clients {
		if now.Sub(client.lastSeen) >= rl.idleTTL {
			delete(rl.clients, ip)
		}
	}
	rl.lastGC = now
}

// RateLimit middleware rejects clients that exceed their budget with 429
func RateLimit(rl *RateLimiter, recorder RateLimitRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			if recorder != nil {
				recorder.ObserveRateLimit(c.FullPath())
			}
			c.Header("Retry-After", "60")
			_ = c.Error(errs.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
