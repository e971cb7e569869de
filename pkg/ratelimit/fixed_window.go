package ratelimit

import (
	"context"
	"sync"
	"time"
)

const DefaultSweepEvery = 100

type window struct {
	count   int
	resetAt time.Time
}

// FixedWindow is the in-process Limiter. Stale windows are swept on every
// sweepEvery-th call.
type FixedWindow struct {
	mu         sync.Mutex
	windows    map[string]*window
	calls      uint64
	sweepEvery uint64
	now        func() time.Time
}

type Option func(*FixedWindow)

func WithSweepEvery(n int) Option {
	return func(l *FixedWindow) {
		if n > 0 {
			l.sweepEvery = uint64(n)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *FixedWindow) { l.now = now }
}

func NewFixedWindow(opts ...Option) *FixedWindow {
	l := &FixedWindow{
		windows:    make(map[string]*window),
		sweepEvery: DefaultSweepEvery,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *FixedWindow) Allow(_ context.Context, identifier string, maxRequests int, windowSize time.Duration) (bool, error) {
	return l.allow(identifier, maxRequests, windowSize), nil
}

func (l *FixedWindow) allow(identifier string, maxRequests int, windowSize time.Duration) bool {
	if maxRequests <= 0 || windowSize <= 0 {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	l.calls++
	if l.calls%l.sweepEvery == 0 {
		l.sweepLocked(now)
	}

	w, ok := l.windows[identifier]
	if !ok || !now.Before(w.resetAt) {
		l.windows[identifier] = &window{count: 1, resetAt: now.Add(windowSize)}
		return true
	}

	w.count++
	return w.count <= maxRequests
}

func (l *FixedWindow) sweepLocked(now time.Time) {
	for id, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, id)
		}
	}
}

// Tracked returns the number of identifiers currently holding a window.
func (l *FixedWindow) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
