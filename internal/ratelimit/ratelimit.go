// Package ratelimit provides a keyed fixed-window attempt counter used to
// gate credential verification, plus the client key derivation shared by the
// HTTP layer.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Decision is the outcome of an Admit call. RetryAfter is only meaningful
// when Allowed is false.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter counts attempts per key within a fixed window. Windows are created
// lazily on first attempt and expire when the window elapses; a fresh window
// can never exceed the threshold regardless of bursts at the boundary.
type Limiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	threshold int
	duration  time.Duration
	now       func() time.Time
	lastSweep time.Time
}

type window struct {
	start time.Time
	count int
}

// Option configures Limiter.
type Option func(*Limiter)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(l *Limiter) {
		if fn != nil {
			l.now = fn
		}
	}
}

// New constructs a Limiter admitting up to threshold attempts per key per
// duration.
func New(threshold int, duration time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		windows:   make(map[string]*window),
		threshold: threshold,
		duration:  duration,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastSweep = l.now()
	return l
}

// Admit records an attempt for key and reports whether it is within the
// threshold. The attempt is counted even when denied: denied attempts keep
// the window warm.
func (l *Limiter) Admit(key string) Decision {
	if key == "" {
		key = "unknown"
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweepLocked(now)

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.duration {
		w = &window{start: now}
		l.windows[key] = w
	}
	w.count++
	if w.count > l.threshold {
		retry := l.duration - now.Sub(w.start)
		if retry < 0 {
			retry = 0
		}
		return Decision{Allowed: false, RetryAfter: retry}
	}
	return Decision{Allowed: true}
}

// sweepLocked drops elapsed windows. Runs at most once per window duration so
// Admit stays O(1) amortised.
func (l *Limiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.duration {
		return
	}
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.duration {
			delete(l.windows, key)
		}
	}
	l.lastSweep = now
}

// ClientKey derives the rate-limit bucket for a request. Deployments may sit
// behind a proxying CDN or be reached directly, so the first non-empty of
// cf-connecting-ip, x-real-ip, the first hop of x-forwarded-for, and the
// transport peer address wins. Unresolvable clients share one bucket.
func ClientKey(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("Cf-Connecting-Ip")); v != "" {
		return v
	}
	if v := strings.TrimSpace(r.Header.Get("X-Real-Ip")); v != "" {
		return v
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}
	if r.RemoteAddr != "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err == nil && host != "" {
			return host
		}
		return r.RemoteAddr
	}
	return "unknown"
}
