package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/e7record/config"
	"github.com/use-agent/e7record/models"
	"golang.org/x/time/rate"
)

// idleTTL is how long an identity may stay silent before its bucket is dropped.
const idleTTL = time.Hour

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter holds one token bucket per caller identity (API key, else client IP).
// Each records request drives a full browser render, so the default rate is
// well below one request per second.
type Limiter struct {
	cfg config.RateLimitConfig

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewLimiter creates an empty Limiter.
func NewLimiter(cfg config.RateLimitConfig) *Limiter {
	return &Limiter{cfg: cfg, buckets: make(map[string]*bucket)}
}

func (l *Limiter) get(identity string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[identity]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.buckets[identity] = b
	}
	b.lastSeen = now
	return b.limiter
}

// Sweep drops buckets not used since cutoff and returns how many remain.
func (l *Limiter) Sweep(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, id)
		}
	}
	return len(l.buckets)
}

// Run sweeps idle buckets every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Sweep(now.Add(-idleTTL))
		}
	}
}

// Middleware rejects callers that exhausted their bucket with 429 and a
// Retry-After hint.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := c.ClientIP()
		if key, ok := c.Get(identityKey); ok {
			identity = key.(string)
		}

		now := time.Now()
		res := l.get(identity, now).ReserveN(now, 1)
		if !res.OK() {
			l.reject(c, 0)
			return
		}
		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			l.reject(c, delay)
			return
		}

		c.Next()
	}
}

func (l *Limiter) reject(c *gin.Context, retryAfter time.Duration) {
	if retryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
	}
	c.AbortWithStatusJSON(http.StatusTooManyRequests, models.RecordsResponse{
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeRateLimited,
			Message: "rate limit exceeded, please slow down",
		},
	})
}
