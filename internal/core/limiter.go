package core

// limiter.go bounds the number of remote page fetches in flight.
//
// The limiter is a semaphore: when all slots are occupied new fetches wait up
// to maxWait before failing with ErrTooManyFetches. WaitForDrain blocks until
// every in-flight fetch has released its slot.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyFetches is returned when every fetch slot stays occupied for the
// whole wait timeout.
var ErrTooManyFetches = errors.New("too many concurrent fetches, please try again later")

// DefaultMaxConcurrentFetches is the default limit for parallel fetches.
const DefaultMaxConcurrentFetches = 4

// DefaultFetchWait is how long to wait for a slot before rejecting.
const DefaultFetchWait = 10 * time.Second

// FetchLimiter restricts concurrent calls into a DataSource.
type FetchLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.Mutex
	active int
	idle   chan struct{} // closed while active == 0
}

// NewFetchLimiter creates a limiter allowing maxConcurrent simultaneous
// fetches.
func NewFetchLimiter(maxConcurrent int, maxWait time.Duration) *FetchLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentFetches
	}
	if maxWait <= 0 {
		maxWait = DefaultFetchWait
	}
	idle := make(chan struct{})
	close(idle)
	return &FetchLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
		idle:      idle,
	}
}

// Acquire takes a slot. The caller must call Release when the fetch returns.
func (l *FetchLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.semaphore <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyFetches
	}

	l.mu.Lock()
	if l.active == 0 {
		l.idle = make(chan struct{})
	}
	l.active++
	l.mu.Unlock()
	return nil
}

// Release returns a slot taken by Acquire.
func (l *FetchLimiter) Release() {
	l.mu.Lock()
	l.active--
	if l.active == 0 {
		close(l.idle)
	}
	l.mu.Unlock()
	<-l.semaphore
}

// ActiveCount returns the number of fetches holding a slot.
func (l *FetchLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Available returns the number of free slots.
func (l *FetchLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no fetch holds a slot or ctx is done.
func (l *FetchLimiter) WaitForDrain(ctx context.Context) error {
	l.mu.Lock()
	idle := l.idle
	l.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FetchLimiterStatus is a snapshot of the limiter.
type FetchLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *FetchLimiter) Status() FetchLimiterStatus {
	return FetchLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.semaphore),
	}
}
