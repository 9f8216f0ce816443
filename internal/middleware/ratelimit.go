// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Counter counts requests per key in fixed windows. Incr adds one request
// to the current window of key and returns the window's count together
// with the time left until the window closes.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error)
}

// RateLimiter limits requests per client IP with a fixed window. It guards
// the JSON API, whose clients are scripts rather than browsers.
type RateLimiter struct {
	counter Counter
	limit   int64
	window  time.Duration
}

// NewRateLimiter creates a rate limiter that allows limit requests per
// window. A nil counter keeps the windows in process memory; pass a shared
// counter to enforce the limit across instances.
func NewRateLimiter(limit int, window time.Duration, counter Counter) *RateLimiter {
	if counter == nil {
		counter = NewMemoryCounter()
	}
	return &RateLimiter{counter: counter, limit: int64(limit), window: window}
}

// allow reports whether key is still within the limit. When it is not,
// retryAfter is how long until the window resets. Counter failures let the
// request through.
func (rl *RateLimiter) allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration) {
	n, remaining, err := rl.counter.Incr(ctx, key, rl.window)
	if err != nil {
		slog.Warn("rate limit counter error", "error", err)
		return true, 0
	}
	if n > rl.limit {
		if remaining <= 0 {
			remaining = rl.window
		}
		return false, remaining
	}
	return true, 0
}

// Middleware returns an HTTP middleware that rate-limits by client IP and
// answers over-limit requests with a JSON 429 and a Retry-After header.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := rl.allow(r.Context(), clientIP(r))
		if !ok {
			secs := max(int(math.Ceil(wait.Seconds())), 1)
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// window is one fixed counting window of a single key.
type window struct {
	resetAt time.Time
	count   int64
}

// MemoryCounter is a Counter held in process memory. Expired windows are
// swept at most once per window length.
type MemoryCounter struct {
	mu        sync.Mutex
	windows   map[string]*window
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryCounter returns an empty in-process counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{windows: make(map[string]*window), now: time.Now}
}

// Incr implements Counter.
func (c *MemoryCounter) Incr(_ context.Context, key string, length time.Duration) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= length {
		c.sweep(now)
		c.lastSweep = now
	}

	w, ok := c.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(length)}
		c.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt.Sub(now), nil
}

// sweep drops windows that closed before now. The caller holds mu.
func (c *MemoryCounter) sweep(now time.Time) {
	for key, w := range c.windows {
		if !now.Before(w.resetAt) {
			delete(c.windows, key)
		}
	}
}

// Len returns the number of tracked keys.
func (c *MemoryCounter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.windows)
}

// clientIP extracts the client's IP address, checking X-Forwarded-For
// and X-Real-IP headers for proxied requests.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// The leftmost address is the original client.
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
