package transport

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-faster/errors"
)

// ErrRateLimited is matched by errors returned when the client-side limit
// is exhausted.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitError reports a request refused before it was sent.
type RateLimitError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Key, e.RetryAfter.Round(time.Millisecond))
}

// Is reports whether target is ErrRateLimited.
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max is the maximum number of requests allowed per window.
	Max int
	// Window is the duration of each sliding window.
	Window time.Duration
	// KeyFunc extracts the rate limit key from a request.
	// If nil, the target host is used.
	KeyFunc func(*http.Request) string
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// entry tracks request counts across two adjacent windows for the sliding
// window algorithm.
type entry struct {
	prevCount float64
	prevStart time.Time
	currCount float64
	currStart time.Time
}

type rateLimiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	entries map[string]*entry
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = hostKey
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &rateLimiter{
		cfg:     cfg,
		entries: make(map[string]*entry),
	}
}

// allow checks whether a request for key is within the limit and counts it
// if so. It returns the time the current window resets.
func (rl *rateLimiter) allow(key string, now time.Time) (resetAt time.Time, allowed bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, ok := rl.entries[key]
	if !ok {
		e = &entry{currStart: now}
		rl.entries[key] = e
	}

	// Rotate window if the current window has elapsed.
	if now.Sub(e.currStart) >= rl.cfg.Window {
		e.prevCount = e.currCount
		e.prevStart = e.currStart
		e.currCount = 0
		e.currStart = now.Truncate(rl.cfg.Window)
		if now.Sub(e.prevStart) >= 2*rl.cfg.Window {
			e.prevCount = 0
		}
	}

	// Weight the previous window by how much of it overlaps the sliding one.
	elapsed := now.Sub(e.currStart)
	overlap := 1.0 - elapsed.Seconds()/rl.cfg.Window.Seconds()
	if overlap < 0 {
		overlap = 0
	}
	resetAt = e.currStart.Add(rl.cfg.Window)

	if e.prevCount*overlap+e.currCount >= float64(rl.cfg.Max) {
		return resetAt, false
	}
	e.currCount++
	return resetAt, true
}

// RateLimit returns a middleware that enforces a per-key sliding window
// limit on outgoing requests. A request over the limit is not sent; the
// middleware returns a *RateLimitError instead. A zero Max disables it.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return func(next http.RoundTripper) http.RoundTripper { return next }
	}
	rl := newRateLimiter(cfg)
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			key := rl.cfg.KeyFunc(req)
			now := rl.cfg.Now()

			resetAt, allowed := rl.allow(key, now)
			if !allowed {
				retry := resetAt.Sub(now)
				if retry < 0 {
					retry = 0
				}
				if req.Body != nil {
					_ = req.Body.Close()
				}
				return nil, &RateLimitError{Key: key, RetryAfter: retry}
			}
			return next.RoundTrip(req)
		})
	}
}

func hostKey(req *http.Request) string {
	return req.URL.Host
}
