package gateway

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimitConfig configures sliding-window rate limiting for the API
// endpoints. A zero RequestsPerMin disables limiting.
type RateLimitConfig struct {
	RequestsPerMin int `yaml:"requests_per_min"`
}

// rateLimiter implements per-client sliding window rate limiting. Each
// bucket tracks timestamps of recent requests within a one-minute window.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	now     func() time.Time
}

type bucket struct {
	events []time.Time
}

func newRateLimiter(requestsPerMin int) *rateLimiter {
	return &rateLimiter{
		buckets: make(map[string]*bucket),
		limit:   requestsPerMin,
		now:     time.Now,
	}
}

// allow reports whether a request from the given client is within the limit,
// recording it if so.
func (rl *rateLimiter) allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[client]
	if !ok {
		b = &bucket{}
		rl.buckets[client] = b
	}

	now := rl.now()
	b.evict(now)

	if len(b.events) >= rl.limit {
		return false
	}

	b.events = append(b.events, now)
	return true
}

// evict removes events outside the sliding window.
func (b *bucket) evict(now time.Time) {
	cutoff := now.Add(-time.Minute)
	// Events are chronologically ordered.
	i := 0
	for i < len(b.events) && b.events[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		b.events = b.events[i:]
	}
}

// rateLimitMiddleware rejects requests over the per-client limit with 429.
// Clients are keyed by remote IP.
func rateLimitMiddleware(rl *rateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			if !rl.allow(host) {
				w.Header().Set("Retry-After", "60")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
