// internal/middleware/rate_limit_middleware.go
package middleware

import (
	"context"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"printer-service/internal/config"
	"printer-service/internal/utils"
)

// clientIdle is how long an idle client keeps its limiter
const clientIdle = 3 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client IP
type RateLimiter struct {
	clients sync.Map // netip.Addr -> *clientLimiter
	mutex   sync.Mutex
	rate    rate.Limit
	burst   int
}

// NewRateLimiter creates a limiter allowing requestsPerSecond with burst
func NewRateLimiter(requestsPerSecond, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{rate: rate.Limit(requestsPerSecond), burst: burst}
}

// Allow reports whether a request from ip may proceed now
func (rl *RateLimiter) Allow(ip netip.Addr) bool {
	return rl.get(ip).Allow()
}

func (rl *RateLimiter) get(ip netip.Addr) *rate.Limiter {
	now := time.Now()
	if v, ok := rl.clients.Load(ip); ok {
		cl := v.(*clientLimiter)
		rl.mutex.Lock()
		cl.lastSeen = now
		rl.mutex.Unlock()
		return cl.limiter
	}
	v, _ := rl.clients.LoadOrStore(ip, &clientLimiter{
		limiter:  rate.NewLimiter(rl.rate, rl.burst),
		lastSeen: now,
	})
	return v.(*clientLimiter).limiter
}

// Cleanup drops limiters idle for longer than maxIdle and returns how
// many were removed
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) int {
	now := time.Now()
	removed := 0
	rl.clients.Range(func(key, value any) bool {
		cl := value.(*clientLimiter)
		rl.mutex.Lock()
		idle := now.Sub(cl.lastSeen)
		rl.mutex.Unlock()
		if idle > maxIdle {
			rl.clients.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// RunCleanup prunes idle limiters every minute until ctx is done
func (rl *RateLimiter) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup(clientIdle)
		}
	}
}

// RateLimitMiddleware rejects clients exceeding the configured request rate
func RateLimitMiddleware(cfg *config.SecurityConfig, limiter *RateLimiter, logger *utils.ServiceLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.RateLimitEnabled {
			c.Next()
			return
		}

		ip, err := netip.ParseAddr(c.ClientIP())
		if err != nil {
			c.Next()
			return
		}

		if !limiter.Allow(ip.Unmap()) {
			logger.LogRateLimitViolation(ip.String(), c.Request.URL.Path)
			c.Header("Retry-After", "1")
			utils.ErrorResponse(c, http.StatusTooManyRequests, "Too many requests", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
