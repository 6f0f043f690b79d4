// Package ratelimit provides fixed-window request admission control with
// per-identifier state. Unlike a token bucket, the counter resets at fixed
// window boundaries, which matches how the upstream provider quotas are
// documented.
package ratelimit

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// DefaultBackoffBase is the starting delay for AwaitSlot's exponential
// backoff when no explicit base is configured.
const DefaultBackoffBase = 500 * time.Millisecond

const maxJitter = time.Second

type window struct {
	count       int
	windowStart time.Time
	lastSeen    time.Time
}

// FixedWindow admits up to maxRequests per identifier within each window,
// then blocks until the window rolls over. Identifiers are independent.
// Idle identifiers are garbage-collected after two full windows.
type FixedWindow struct {
	mu          sync.Mutex
	windows     map[string]*window
	maxRequests int
	window      time.Duration
	backoffBase time.Duration
	log         *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

// NewFixedWindow starts a limiter and its background janitor. Call Stop to
// release the janitor goroutine.
func NewFixedWindow(maxRequests int, windowDur time.Duration, log *slog.Logger) *FixedWindow {
	if log == nil {
		log = slog.Default()
	}
	l := &FixedWindow{
		windows:     make(map[string]*window),
		maxRequests: maxRequests,
		window:      windowDur,
		backoffBase: DefaultBackoffBase,
		log:         log,
		stop:        make(chan struct{}),
	}
	go l.janitor()
	return l
}

// Admit reports whether one request for id fits in the current window and
// counts it when it does.
func (l *FixedWindow) Admit(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w := l.windowFor(id, now)
	if w.count >= l.maxRequests {
		l.log.Warn("rate limit exceeded",
			"identifier", id,
			"max_requests", l.maxRequests,
			"window", l.window,
			"reset_at", w.windowStart.Add(l.window))
		return false
	}
	w.count++
	return true
}

// Remaining returns how many requests id may still make in the current window.
func (l *FixedWindow) Remaining(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windowFor(id, time.Now())
	if rem := l.maxRequests - w.count; rem > 0 {
		return rem
	}
	return 0
}

// ResetTime returns when the current window for id rolls over.
func (l *FixedWindow) ResetTime(id string) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windowFor(id, time.Now())
	return w.windowStart.Add(l.window)
}

// AwaitSlot retries Admit with exponential backoff and jitter
// (base * 2^attempt + random up to 1s) until a slot opens, maxRetries
// backoffs have been spent, or ctx is cancelled. It reports whether a
// slot was obtained.
func (l *FixedWindow) AwaitSlot(ctx context.Context, id string, maxRetries int) bool {
	for attempt := 0; ; attempt++ {
		if l.Admit(id) {
			return true
		}
		if attempt >= maxRetries {
			return false
		}
		delay := l.backoffBase*(1<<uint(attempt)) + time.Duration(rand.Int63n(int64(maxJitter)))
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
	}
}

// Stop halts the background janitor. The limiter remains usable, but idle
// identifiers are no longer purged.
func (l *FixedWindow) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// windowFor returns the live window for id, creating or resetting it as
// needed. Callers must hold l.mu.
func (l *FixedWindow) windowFor(id string, now time.Time) *window {
	w, ok := l.windows[id]
	if !ok {
		w = &window{windowStart: now}
		l.windows[id] = w
	} else if now.Sub(w.windowStart) >= l.window {
		w.windowStart = now
		w.count = 0
	}
	w.lastSeen = now
	return w
}

func (l *FixedWindow) janitor() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.purgeIdle()
		}
	}
}

// purgeIdle drops identifiers with no activity for at least two windows.
func (l *FixedWindow) purgeIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-2 * l.window)
	purged := 0
	for id, w := range l.windows {
		if w.lastSeen.Before(cutoff) {
			delete(l.windows, id)
			purged++
		}
	}
	if purged > 0 {
		l.log.Debug("purged idle rate limit windows", "count", purged)
	}
}
