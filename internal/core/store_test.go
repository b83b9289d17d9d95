package core

import (
	"errors"
	"sync"
	"testing"
)

func TestStore_Dispatch(t *testing.T) {
	s := NewStore(newTestState(), nil)

	var names []string
	s.Subscribe(func(_ GridState, tr Transition) { names = append(names, "first:"+tr.Name()) })
	s.Subscribe(func(_ GridState, tr Transition) { names = append(names, "second:"+tr.Name()) })

	next, err := s.Dispatch(ToggleSort{Field: "name"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(next.Sort()) != 1 {
		t.Errorf("returned snapshot has %d sort keys, want 1", len(next.Sort()))
	}
	if s.Version() != 1 {
		t.Errorf("Version() = %d, want 1", s.Version())
	}
	want := []string{"first:toggleSort", "second:toggleSort"}
	if len(names) != 2 || names[0] != want[0] || names[1] != want[1] {
		t.Errorf("listener calls = %v, want %v", names, want)
	}
}

func TestStore_RejectedTransitionLeavesState(t *testing.T) {
	s := NewStore(newTestState(), nil)
	before := s.Snapshot()

	called := false
	s.Subscribe(func(GridState, Transition) { called = true })

	_, err := s.Dispatch(ResizeColumn{Field: "name", Width: -1})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Dispatch() error = %v, want ErrInvalidTransition", err)
	}
	if called {
		t.Error("listener notified of a rejected transition")
	}
	if s.Version() != 0 {
		t.Errorf("Version() = %d, want 0", s.Version())
	}
	if got := s.Snapshot().ColumnWidth("name"); got != before.ColumnWidth("name") {
		t.Errorf("width changed to %v", got)
	}
}

func TestStore_Unsubscribe(t *testing.T) {
	s := NewStore(newTestState(), nil)
	calls := 0
	unsub := s.Subscribe(func(GridState, Transition) { calls++ })

	s.Dispatch(ClearSort{})
	unsub()
	unsub()
	s.Dispatch(ClearSort{})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestStore_ListenerMayDispatch(t *testing.T) {
	s := NewStore(newTestState(), nil)
	s.Subscribe(func(_ GridState, tr Transition) {
		if tr.Name() == "setQuickFilter" {
			s.Dispatch(SetPage{Page: 2})
		}
	})

	if _, err := s.Dispatch(SetQuickFilter{Term: "x"}); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().Page(); got != 2 {
		t.Errorf("Page() = %d, want 2", got)
	}
}

func TestStore_ConcurrentDispatch(t *testing.T) {
	s := NewStore(newTestState(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Dispatch(SelectAll{IDs: []string{"1", "2"}})
			_ = s.Snapshot().Selected()
		}()
	}
	wg.Wait()

	if s.Version() != 50 {
		t.Errorf("Version() = %d, want 50", s.Version())
	}
}
