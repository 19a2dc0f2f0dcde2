package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const rateLimitedBody = `{"error":"Too many requests. Please try again later.","code":"RATE_LIMITED"}`

// bucket is one token bucket plus the last time its key was seen.
type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// bucketSet hands out one token bucket per key and forgets idle keys.
type bucketSet struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
}

func newBucketSet(perSecond float64, burst int, sweepEvery, idleFor time.Duration) *bucketSet {
	s := &bucketSet{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(perSecond),
		burst:   burst,
	}
	go s.sweep(sweepEvery, idleFor)
	return s
}

func (s *bucketSet) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.limiter.Allow()
}

func (s *bucketSet) sweep(every, idleFor time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-idleFor)
		s.mu.Lock()
		for key, b := range s.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(s.buckets, key)
			}
		}
		s.mu.Unlock()
	}
}

func writeRateLimited(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(rateLimitedBody))
}

// RateLimiterConfig configures a per-address limiter. Idle addresses are
// dropped after TTL, checked every CleanupInterval.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	CleanupInterval   time.Duration
	TTL               time.Duration
}

// RateLimiter throttles requests per client address.
type RateLimiter struct {
	buckets *bucketSet
}

func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	return &RateLimiter{
		buckets: newBucketSet(cfg.RequestsPerSecond, cfg.BurstSize, cfg.CleanupInterval, cfg.TTL),
	}
}

// Allow reports whether the address still has budget.
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.buckets.allow(ip)
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(getClientIP(r)) {
			writeRateLimited(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// getClientIP prefers proxy headers over the socket address. Only the
// first X-Forwarded-For hop is trusted.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if host, _, err := net.SplitHostPort(first); err == nil {
			return host
		}
		return first
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimitByKey throttles per authenticated API client.
type RateLimitByKey struct {
	buckets *bucketSet
}

func NewRateLimitByKey(requestsPerSecond float64, burst int) *RateLimitByKey {
	return &RateLimitByKey{
		buckets: newBucketSet(requestsPerSecond, burst, time.Minute, 5*time.Minute),
	}
}

func (rl *RateLimitByKey) Allow(key string) bool {
	return rl.buckets.allow(key)
}

// ClientMiddleware must run after JWTMiddleware. Requests without claims
// share the budget of their address.
func (rl *RateLimitByKey) ClientMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := getClientIP(r)
		if claims, ok := GetClaims(r.Context()); ok && claims.Subject != "" {
			key = "client:" + claims.Subject
		}
		if !rl.Allow(key) {
			writeRateLimited(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
