package api

import (
	"sync"
	"time"

	"github.com/nerrad567/habridge/internal/infrastructure/config"
)

// rateLimiter enforces a fixed-window request limit per caller. Windows
// are tracked per caller identity and reset when the window elapses.
type rateLimiter struct {
	requests int
	window   time.Duration

	mu      sync.Mutex
	windows map[string]*callerWindow
	now     func() time.Time
}

// callerWindow tracks one caller's usage in the current window.
type callerWindow struct {
	start time.Time
	count int
}

// newRateLimiter creates a limiter from configuration.
func newRateLimiter(cfg config.RateLimitConfig) *rateLimiter {
	return &rateLimiter{
		requests: cfg.Requests,
		window:   time.Duration(cfg.Window) * time.Second,
		windows:  make(map[string]*callerWindow),
		now:      time.Now,
	}
}

// Allow reports whether the caller may make another request, counting it
// if so.
func (l *rateLimiter) Allow(caller string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	// Opportunistic cleanup keeps the map from accumulating dead callers.
	if len(l.windows) > 1024 {
		for key, w := range l.windows {
			if now.Sub(w.start) >= l.window {
				delete(l.windows, key)
			}
		}
	}

	w, ok := l.windows[caller]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[caller] = &callerWindow{start: now, count: 1}
		return true
	}

	if w.count >= l.requests {
		return false
	}
	w.count++
	return true
}
