// internal/middleware/rate_limit.go
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ipLimiter hands out one token bucket per client IP. Stale buckets are
// evicted so the map does not grow with every visitor the tracking feed
// ever sees.
type ipLimiter struct {
	mtx     sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(limit rate.Limit, burst int) *ipLimiter {
	l := &ipLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		burst:   burst,
	}
	go l.evictStale()
	return l
}

func (l *ipLimiter) evictStale() {
	ticker := time.NewTicker(time.Minute)
	for range ticker.C {
		l.mtx.Lock()
		for ip, b := range l.buckets {
			if time.Since(b.lastSeen) > 3*time.Minute {
				delete(l.buckets, ip)
			}
		}
		l.mtx.Unlock()
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mtx.Lock()
	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.lastSeen = time.Now()
	l.mtx.Unlock()

	return b.limiter.Allow()
}

func (l *ipLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

var (
	generalLimiter  = newIPLimiter(rate.Every(time.Second), 10)   // 10 requests per second
	trackingLimiter = newIPLimiter(rate.Every(time.Second/5), 20) // referral click bursts
	payoutLimiter   = newIPLimiter(rate.Every(time.Minute), 5)    // 5 payout requests per minute
)

func GeneralRateLimit() gin.HandlerFunc {
	return generalLimiter.middleware()
}

// TrackingRateLimit covers the public click feed, which sees the highest and
// least trustworthy traffic.
func TrackingRateLimit() gin.HandlerFunc {
	return trackingLimiter.middleware()
}

func PayoutRateLimit() gin.HandlerFunc {
	return payoutLimiter.middleware()
}
