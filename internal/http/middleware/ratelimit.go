// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the in-process token-bucket limiter. Every caller gets
// a bucket per policy: the default policy covers the API as a whole, and a
// route may carry a stricter policy of its own. Talk selection is the
// motivating case there, because each successful call reserves a talk for
// the voter.
//
// Idempotent replays flagged by IdempotencyValidator never consume tokens.
// Rejections are counted in http_requests_rate_limited_total by route.
//
// Limits are per process; a horizontally scaled deployment enforces them per
// replica.
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	bucketIdleTTL = 10 * time.Minute
	sweepEvery    = 5000 // lookups between idle-bucket sweeps
)

// keyFunc names the caller a bucket belongs to.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by voter id when Auth resolved one and by client
// IP otherwise. The "user:"/"ip:" prefixes keep the namespaces apart.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if uid := userIDFromCtx(c); uid != "" {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

// RatePolicy is the shape of one token bucket. Burst values below 1 are
// raised to 1.
type RatePolicy struct {
	RPS   float64
	Burst int
}

func (p RatePolicy) normalized() RatePolicy {
	if p.Burst < 1 {
		p.Burst = 1
	}
	return p
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out token buckets keyed by (policy, caller). It is safe
// for concurrent use.
type RateLimiter struct {
	def    RatePolicy
	routes map[string]RatePolicy // gin FullPath -> policy
	keyFn  keyFunc
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	lookups int
}

// NewRateLimiter builds a limiter applying def to every route without an
// override.
func NewRateLimiter(def RatePolicy, keyFn keyFunc) *RateLimiter {
	return &RateLimiter{
		def:     def.normalized(),
		routes:  map[string]RatePolicy{},
		keyFn:   keyFn,
		now:     time.Now,
		buckets: map[string]*bucket{},
	}
}

// Route installs p for the route registered as fullPath (e.g.
// "/api/v1/vote/categories/:id/next"). Requests on that route draw from the
// route's bucket instead of the default one. It returns rl for chaining and
// must be called before Handler serves traffic.
func (rl *RateLimiter) Route(fullPath string, p RatePolicy) *RateLimiter {
	rl.routes[fullPath] = p.normalized()
	return rl
}

// policyFor returns the policy for route and the scope naming its buckets.
func (rl *RateLimiter) policyFor(route string) (string, RatePolicy) {
	if p, ok := rl.routes[route]; ok {
		return route, p
	}
	return "", rl.def
}

// limiter fetches or creates the bucket for (scope, caller). Idle buckets are
// swept before the lookup so a stale bucket is never revived.
func (rl *RateLimiter) limiter(scope, caller string, p RatePolicy) *rate.Limiter {
	now := rl.now()
	key := scope + "|" + caller

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= sweepEvery {
		rl.lookups = 0
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= bucketIdleTTL {
				delete(rl.buckets, k)
			}
		}
	}

	if b, ok := rl.buckets[key]; ok {
		b.lastSeen = now
		return b.lim
	}
	b := &bucket{lim: rate.NewLimiter(rate.Limit(p.RPS), p.Burst), lastSeen: now}
	rl.buckets[key] = b
	return b.lim
}

// IsRateBypass reports whether IdempotencyValidator marked the request as a
// replay of a completed request.
func IsRateBypass(c *gin.Context) bool {
	v, _ := c.Get(ctxKeyRateBypass)
	b, _ := v.(bool)
	return b
}

// retryAfter is the whole number of seconds until one token is back, at
// least 1.
func retryAfter(p RatePolicy) string {
	if p.RPS <= 0 {
		return "60"
	}
	secs := int(1/p.RPS + 0.999)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// Handler enforces the limiter. Denied requests get 429 with the standard
// error envelope and a Retry-After hint derived from the policy:
//
//	{"request_id": "<uuid>", "code": "rate_limited", "message": "rate limit exceeded"}
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		route := routeLabel(c)
		scope, p := rl.policyFor(route)
		if rl.limiter(scope, rl.keyFn(c), p).Allow() {
			c.Next()
			return
		}

		httpRateLimited.WithLabelValues(route).Inc()
		c.Header("Retry-After", retryAfter(p))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
