package http

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter applies a fixed one-minute window per client identity to the
// API routes. A limit of zero disables it.
type RateLimiter struct {
	limit int
	now   func() time.Time

	mu     sync.Mutex
	window int64
	counts map[string]int
}

func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		limit:  requestsPerMinute,
		now:    time.Now,
		counts: make(map[string]int),
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.limit <= 0 || !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		if !rl.allow(clientIdentity(r)) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(identity string) bool {
	window := rl.now().Unix() / 60

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if window != rl.window {
		rl.window = window
		rl.counts = make(map[string]int)
	}
	rl.counts[identity]++
	return rl.counts[identity] <= rl.limit
}

func clientIdentity(r *http.Request) string {
	forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if forwarded != "" {
		if ip := strings.TrimSpace(strings.Split(forwarded, ",")[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
