package core

import (
	"sync"
	"testing"
	"time"
)

type recorder[T any] struct {
	mu  sync.Mutex
	got []T
}

func (r *recorder[T]) add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, v)
}

func (r *recorder[T]) values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.got...)
}

func TestThrottle_LeadingAndTrailing(t *testing.T) {
	var rec recorder[int]
	th := NewThrottle(30*time.Millisecond, rec.add)
	defer th.Stop()

	for i := 1; i <= 5; i++ {
		th.Do(i)
	}
	if got := rec.values(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("after burst got %v, want [1]", got)
	}

	time.Sleep(80 * time.Millisecond)
	got := rec.values()
	if len(got) != 2 || got[1] != 5 {
		t.Errorf("after interval got %v, want [1 5]", got)
	}
}

func TestThrottle_ZeroIntervalPassesThrough(t *testing.T) {
	var rec recorder[string]
	th := NewThrottle(0, rec.add)
	th.Do("a")
	th.Do("b")
	if got := rec.values(); len(got) != 2 {
		t.Errorf("got %v, want [a b]", got)
	}
}

func TestThrottle_StopDropsPending(t *testing.T) {
	var rec recorder[int]
	th := NewThrottle(20*time.Millisecond, rec.add)
	th.Do(1)
	th.Do(2)
	th.Stop()
	th.Do(3)

	time.Sleep(50 * time.Millisecond)
	if got := rec.values(); len(got) != 1 || got[0] != 1 {
		t.Errorf("got %v, want [1]", got)
	}
}
