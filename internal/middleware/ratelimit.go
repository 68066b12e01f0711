package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter enforces a per-client sliding window over one minute, plus a
// small burst allowance over the last second. Clients are keyed by IP.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string][]time.Time
	perMinute int
	burst     int
	now       func() time.Time
}

func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 10
	}
	return &RateLimiter{
		clients:   make(map[string][]time.Time),
		perMinute: perMinute,
		burst:     burst,
		now:       time.Now,
	}
}

// Allow records a request for the client and reports whether it is within
// both the per-minute and the burst window.
func (rl *RateLimiter) Allow(clientKey string) bool {
	now := rl.now()
	cutoff := now.Add(-time.Minute)
	burstCutoff := now.Add(-time.Second)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	window := rl.clients[clientKey]
	kept := window[:0]
	recent := 0
	for _, ts := range window {
		if ts.Before(cutoff) {
			continue
		}
		kept = append(kept, ts)
		if !ts.Before(burstCutoff) {
			recent++
		}
	}

	if len(kept) >= rl.perMinute || recent >= rl.burst {
		rl.clients[clientKey] = kept
		return false
	}
	rl.clients[clientKey] = append(kept, now)
	return true
}

// StartCleanup drops idle client windows on an interval so the map does not
// grow with one entry per IP ever seen.
func (rl *RateLimiter) StartCleanup(done <-chan struct{}, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				rl.cleanup()
			}
		}
	}()
}

func (rl *RateLimiter) cleanup() {
	cutoff := rl.now().Add(-time.Minute)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, window := range rl.clients {
		kept := window[:0]
		for _, ts := range window {
			if !ts.Before(cutoff) {
				kept = append(kept, ts)
			}
		}
		if len(kept) == 0 {
			delete(rl.clients, key)
			continue
		}
		rl.clients[key] = kept
	}
}

// Handler wraps an http.Handler with the rate limit, answering 429 with a
// Retry-After hint when the window is exhausted.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(60))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded","code":429}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
