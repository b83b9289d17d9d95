package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// recordingStore is an in-memory PresetStore that records saves. When block
// is set, Save waits for it or for its context.
type recordingStore struct {
	mu      sync.Mutex
	saved   []Preset
	started chan string
	block   chan struct{}
}

func (s *recordingStore) Save(ctx context.Context, key string, p Preset) error {
	if s.started != nil {
		s.started <- p.Name
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, p)
	return nil
}

func (s *recordingStore) Load(ctx context.Context, key, id string) (Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saved) == 0 {
		return Preset{}, ErrPresetNotFound
	}
	return s.saved[len(s.saved)-1], nil
}

func (s *recordingStore) Delete(ctx context.Context, key, id string) error { return nil }

func (s *recordingStore) List(ctx context.Context, key string) ([]Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Preset(nil), s.saved...), nil
}

func (s *recordingStore) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, p := range s.saved {
		out = append(out, p.Name)
	}
	return out
}

func TestPreset_RoundTrip(t *testing.T) {
	configured := mustState(t, newTestState(),
		SetSort{Specs: []SortSpec{{Field: "sal", Direction: SortDesc}}},
		SetFilter{Field: "dept", Value: SimpleFilter{Values: []any{"Eng"}}},
		SetFilter{Field: "name", Value: AdvancedFilter{Combinator: CombineOr, Conditions: []FilterCondition{
			{Operator: OpStartsWith, Value: "a"},
			{Operator: OpStartsWith, Value: "g"},
		}}},
		SetQuickFilter{Term: "x"},
		SetGroupBy{Fields: []string{"dept"}},
		ResizeColumn{Field: "name", Width: 240},
		PinColumn{Field: "name", Side: PinLeft},
		SetColumnVisible{Field: "start"},
		MoveColumn{Field: "sal", ToIndex: 0},
		SetPageSize{Size: 25},
	)
	p := PresetOf(configured)

	restored, err := ApplyPreset(newTestState(), p)
	if err != nil {
		t.Fatalf("ApplyPreset() error = %v", err)
	}
	if diff := cmp.Diff(p, PresetOf(restored), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if !cmp.Equal(configured.VisibleColumns(), restored.VisibleColumns()) {
		t.Errorf("VisibleColumns() = %v, want %v", restored.VisibleColumns(), configured.VisibleColumns())
	}
}

func TestPreset_DropsUnknownFields(t *testing.T) {
	p := Preset{
		Sort:    []SortSpec{{Field: "name", Direction: SortAsc}},
		Filters: map[string]FilterSpec{"ghost": {Value: "x"}, "name": {Value: "a"}},
		GroupBy: []string{"ghost", "dept"},
		Columns: ColumnPreset{Order: []string{"ghost", "start"}},
	}

	s, err := ApplyPreset(newTestState(), p)
	if err != nil {
		t.Fatalf("ApplyPreset() error = %v", err)
	}
	if _, ok := s.Filter("ghost"); ok {
		t.Error("filter on a removed column was restored")
	}
	if _, ok := s.Filter("name"); !ok {
		t.Error("filter on name was not restored")
	}
	if diff := cmp.Diff([]string{"dept"}, s.GroupBy()); diff != "" {
		t.Errorf("GroupBy() mismatch (-want +got):\n%s", diff)
	}
	if s.ColumnOrder()[0] != "start" {
		t.Errorf("ColumnOrder() = %v, want start first", s.ColumnOrder())
	}
}

func TestAutoSaver_Debounces(t *testing.T) {
	store := &recordingStore{}
	done := make(chan Preset, 4)
	a := NewAutoSaver(store, "grid", 20*time.Millisecond, nil, func(p Preset, err error) {
		if err != nil {
			t.Errorf("save error = %v", err)
		}
		done <- p
	})
	defer a.Stop()

	for _, name := range []string{"one", "two", "three"} {
		a.Schedule(Preset{Name: name})
	}
	if !a.Pending() {
		t.Error("Pending() = false right after Schedule")
	}

	select {
	case p := <-done:
		if p.Name != "three" {
			t.Errorf("saved %q, want three", p.Name)
		}
		if p.UpdatedAt.IsZero() {
			t.Error("UpdatedAt not stamped")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("auto-save never ran")
	}

	time.Sleep(50 * time.Millisecond)
	if diff := cmp.Diff([]string{"three"}, store.names()); diff != "" {
		t.Errorf("saves mismatch (-want +got):\n%s", diff)
	}
}

func TestAutoSaver_NewerScheduleCancelsInFlightSave(t *testing.T) {
	store := &recordingStore{started: make(chan string, 4), block: make(chan struct{})}
	done := make(chan Preset, 4)
	a := NewAutoSaver(store, "grid", 5*time.Millisecond, nil, func(p Preset, err error) {
		if err == nil {
			done <- p
		}
	})
	defer a.Stop()

	a.Schedule(Preset{Name: "old"})
	if got := <-store.started; got != "old" {
		t.Fatalf("first save started for %q", got)
	}

	a.Schedule(Preset{Name: "new"})
	if got := <-store.started; got != "new" {
		t.Fatalf("second save started for %q", got)
	}
	close(store.block)

	select {
	case p := <-done:
		if p.Name != "new" {
			t.Errorf("saved %q, want new", p.Name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("auto-save never completed")
	}
	time.Sleep(20 * time.Millisecond)
	if diff := cmp.Diff([]string{"new"}, store.names()); diff != "" {
		t.Errorf("an older configuration was written (-want +got):\n%s", diff)
	}
}

func TestAutoSaver_Flush(t *testing.T) {
	store := &recordingStore{}
	a := NewAutoSaver(store, "grid", time.Hour, nil, nil)
	defer a.Stop()

	a.Schedule(Preset{Name: "now"})
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if a.Pending() {
		t.Error("Pending() = true after Flush")
	}
	if diff := cmp.Diff([]string{"now"}, store.names()); diff != "" {
		t.Errorf("saves mismatch (-want +got):\n%s", diff)
	}

	if err := a.Flush(context.Background()); err != nil {
		t.Errorf("Flush() with nothing pending = %v", err)
	}
}

func TestAutoSaver_StopDropsPending(t *testing.T) {
	store := &recordingStore{}
	a := NewAutoSaver(store, "grid", 10*time.Millisecond, nil, nil)

	a.Schedule(Preset{Name: "dropped"})
	a.Stop()
	a.Schedule(Preset{Name: "ignored"})
	time.Sleep(40 * time.Millisecond)

	if n := len(store.names()); n != 0 {
		t.Errorf("%d saves after Stop, want 0", n)
	}
}
