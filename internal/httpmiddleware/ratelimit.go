package httpmiddleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"smarttrack/internal/auth"
	"smarttrack/internal/metrics"
)

// KeyFunc picks the bucket a request draws from.
type KeyFunc func(c *gin.Context) string

// ClientIP keys anonymous routes by caller address.
func ClientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return "ip:" + ip
	}
	return "ip:unknown"
}

// Subject keys authenticated routes by the token subject, so students behind
// one campus NAT do not share a budget. It must run after auth.RequireRole;
// without claims it falls back to ClientIP.
func Subject(c *gin.Context) string {
	if claims, ok := auth.ClaimsFrom(c); ok && claims.Subject != "" {
		return "sub:" + claims.Subject
	}
	return ClientIP(c)
}

// Budget is one named token-bucket limit: Burst requests at once, refilled
// continuously at PerMinute.
type Budget struct {
	Scope     string
	PerMinute int
	Burst     int
}

// Limiter enforces one Budget over per-key buckets held in process memory.
type Limiter struct {
	budget  Budget
	now     func() time.Time
	metrics *metrics.Metrics

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewLimiter returns nil when the budget is disabled (PerMinute <= 0); a nil
// Limiter allows everything. Burst defaults to PerMinute.
func NewLimiter(b Budget, now func() time.Time, m *metrics.Metrics) *Limiter {
	if b.PerMinute <= 0 {
		return nil
	}
	if b.Burst <= 0 {
		b.Burst = b.PerMinute
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		budget:  b,
		now:     now,
		metrics: m,
		buckets: make(map[string]*bucket),
	}
}

// Allow takes one token from key's bucket. When the bucket is empty it
// reports how long until the next token.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.budget.Burst), last: now}
		l.buckets[key] = b
	}
	perMinute := float64(l.budget.PerMinute)
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(float64(l.budget.Burst), b.tokens+elapsed*perMinute/60)
		b.last = now
	}
	if b.tokens < 1 {
		wait := time.Duration((1 - b.tokens) * 60 / perMinute * float64(time.Second))
		return false, wait
	}
	b.tokens--
	return true, 0
}

// Middleware rejects requests over budget with 429 and a Retry-After header
// in whole seconds.
func (l *Limiter) Middleware(key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait := l.Allow(key(c))
		if ok {
			c.Next()
			return
		}
		l.metrics.ObserveRateLimited(l.budget.Scope)
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	}
}
