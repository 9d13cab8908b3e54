package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client. A client may burst the full
// allowance and then refills at requests/window.
type RateLimiter struct {
	requests int
	window   time.Duration
	every    rate.Limit
	now      func() time.Time

	mu          sync.Mutex
	clients     map[string]*client
	lastCleanup time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requests int, windowSeconds int) *RateLimiter {
	if requests <= 0 {
		requests = 100 // Default
	}
	if windowSeconds <= 0 {
		windowSeconds = 60 // Default
	}

	window := time.Duration(windowSeconds) * time.Second
	return &RateLimiter{
		requests: requests,
		window:   window,
		every:    rate.Limit(float64(requests) / window.Seconds()),
		now:      time.Now,
		clients:  make(map[string]*client),
	}
}

// Allow spends one token for key.
func (rl *RateLimiter) Allow(key string) Decision {
	now := rl.now()
	lim := rl.limiter(key, now)

	allowed := lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)

	d := Decision{
		Allowed:   allowed,
		Limit:     rl.requests,
		Remaining: int(math.Max(0, math.Floor(tokens))),
		Reset:     now.Add(rl.refill(float64(rl.requests) - tokens)),
	}
	if !allowed {
		d.RetryAfter = rl.refill(1 - tokens)
	}
	return d
}

// refill is how long the bucket takes to regain n tokens.
func (rl *RateLimiter) refill(n float64) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n * float64(rl.window) / float64(rl.requests))
}

func (rl *RateLimiter) limiter(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Idle clients are swept inline, at most once per window.
	if now.Sub(rl.lastCleanup) > rl.window {
		for k, c := range rl.clients {
			if now.Sub(c.lastSeen) > rl.window*2 {
				delete(rl.clients, k)
			}
		}
		rl.lastCleanup = now
	}

	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.every, rl.requests)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter
}

// Len reports how many clients are being tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// RateLimit returns a middleware that applies rate limiting per client IP
func RateLimit(requests int, windowSeconds int) func(http.Handler) http.Handler {
	return NewRateLimiter(requests, windowSeconds).Middleware
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := rl.Allow(getClientIP(r))

		// Set rate limit headers
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

		if !d.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (set by proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take the first IP in the list (original client)
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	// Check X-Real-IP header (set by some proxies)
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fall back to RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
