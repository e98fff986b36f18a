package inspect

import (
	"net/netip"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// WarnLimiter caps how many invalid-item warnings are logged per source
// address within a window of capture time. Counts reset when the window
// expires. Out-of-order timestamps count against the current window. The
// scanner keeps one limiter per capture file. A nil *WarnLimiter allows
// everything.
type WarnLimiter struct {
	mu           sync.Mutex
	current      map[netip.Addr]*atomic.Int64 // source → warnings in current window
	windowStart  time.Time
	windowSize   time.Duration
	maxPerWindow int64

	suppressed atomic.Int64
}

// NewWarnLimiter creates a limiter. Returns nil if disabled (limit <= 0).
func NewWarnLimiter(limit int, window time.Duration) *WarnLimiter {
	if limit <= 0 {
		return nil
	}
	if window <= 0 {
		window = 10 * time.Second
	}
	return &WarnLimiter{
		current:      make(map[netip.Addr]*atomic.Int64),
		windowSize:   window,
		maxPerWindow: int64(limit),
	}
}

// Allow reports whether a warning about src seen at now may be logged.
func (l *WarnLimiter) Allow(src netip.Addr, now time.Time) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()

	if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.windowSize {
		l.current = make(map[netip.Addr]*atomic.Int64)
		l.windowStart = now
	}

	counter, exists := l.current[src]
	if !exists {
		counter = atomic.NewInt64(0)
		l.current[src] = counter
	}
	l.mu.Unlock()

	if counter.Inc() > l.maxPerWindow {
		l.suppressed.Inc()
		return false
	}
	return true
}

// Suppressed returns the number of warnings dropped so far.
func (l *WarnLimiter) Suppressed() int64 {
	if l == nil {
		return 0
	}
	return l.suppressed.Load()
}

// ActiveSources returns the number of distinct sources in the current window.
func (l *WarnLimiter) ActiveSources() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.current)
}
