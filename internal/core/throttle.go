package core

import (
	"sync"
	"time"
)

// Throttle rate-limits viewport events. The first event in a quiet period
// runs immediately; events arriving within the interval are coalesced and
// the latest one runs when the interval ends.
type Throttle[T any] struct {
	interval time.Duration
	fn       func(T)

	mu      sync.Mutex
	last    time.Time
	pending *T
	timer   *time.Timer
	stopped bool
}

// NewThrottle creates a throttle calling fn at most once per interval.
func NewThrottle[T any](interval time.Duration, fn func(T)) *Throttle[T] {
	return &Throttle[T]{interval: interval, fn: fn}
}

// Do submits an event.
func (t *Throttle[T]) Do(v T) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	if t.interval <= 0 {
		t.mu.Unlock()
		t.fn(v)
		return
	}

	now := time.Now()
	if t.timer == nil && now.Sub(t.last) >= t.interval {
		t.last = now
		t.mu.Unlock()
		t.fn(v)
		return
	}

	t.pending = &v
	if t.timer == nil {
		wait := t.interval - now.Sub(t.last)
		t.timer = time.AfterFunc(wait, t.flush)
	}
	t.mu.Unlock()
}

func (t *Throttle[T]) flush() {
	t.mu.Lock()
	t.timer = nil
	if t.pending == nil || t.stopped {
		t.mu.Unlock()
		return
	}
	v := *t.pending
	t.pending = nil
	t.last = time.Now()
	t.mu.Unlock()
	t.fn(v)
}

// Stop drops the pending event and ignores later ones.
func (t *Throttle[T]) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.pending = nil
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
