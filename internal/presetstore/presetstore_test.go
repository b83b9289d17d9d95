package presetstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/gridcore/internal/config"
	"github.com/JonMunkholm/gridcore/internal/core"
	"github.com/JonMunkholm/gridcore/internal/logging"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func samplePreset(id, name string, at time.Time) core.Preset {
	return core.Preset{
		ID:   id,
		Name: name,
		Columns: core.ColumnPreset{
			Order:      []string{"name", "dept", "sal"},
			Widths:     map[string]float64{"name": 240},
			PinnedLeft: []string{"name"},
			Hidden:     []string{"start"},
		},
		Sort:        []core.SortSpec{{Field: "sal", Direction: core.SortDesc}},
		Filters:     map[string]core.FilterSpec{"dept": {Values: []any{"Eng", "Ops"}}},
		QuickFilter: "ada",
		PageSize:    25,
		GroupBy:     []string{"dept"},
		UpdatedAt:   at,
	}
}

// testStore runs the behaviour every backend shares.
func testStore(t *testing.T, s core.PresetStore) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		ps, err := s.List(ctx, "empty")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(ps) != 0 {
			t.Errorf("List() = %d presets, want 0", len(ps))
		}
		if _, err := s.Load(ctx, "empty", ""); !errors.Is(err, core.ErrPresetNotFound) {
			t.Errorf("Load(latest) error = %v, want ErrPresetNotFound", err)
		}
		if err := s.Delete(ctx, "empty", "nope"); !errors.Is(err, core.ErrPresetNotFound) {
			t.Errorf("Delete(unknown) error = %v, want ErrPresetNotFound", err)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		want := samplePreset("p1", "wide", t0)
		if err := s.Save(ctx, "grid", want); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		got, err := s.Load(ctx, "grid", "p1")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Load() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("latest and ordering", func(t *testing.T) {
		for i, name := range []string{"old", "new", "mid"} {
			at := []time.Time{t0.Add(-time.Hour), t0.Add(time.Hour), t0}[i]
			if err := s.Save(ctx, "ordered", samplePreset(name, name, at)); err != nil {
				t.Fatal(err)
			}
		}
		latest, err := s.Load(ctx, "ordered", "")
		if err != nil {
			t.Fatalf("Load(latest) error = %v", err)
		}
		if latest.ID != "new" {
			t.Errorf("Load(latest).ID = %q, want new", latest.ID)
		}

		ps, err := s.List(ctx, "ordered")
		if err != nil {
			t.Fatal(err)
		}
		var got []string
		for _, p := range ps {
			got = append(got, p.ID)
		}
		if diff := cmp.Diff([]string{"new", "mid", "old"}, got); diff != "" {
			t.Errorf("List() order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		p := samplePreset("same", "first", t0)
		if err := s.Save(ctx, "over", p); err != nil {
			t.Fatal(err)
		}
		p.Name = "second"
		p.UpdatedAt = t0.Add(time.Minute)
		if err := s.Save(ctx, "over", p); err != nil {
			t.Fatal(err)
		}
		ps, _ := s.List(ctx, "over")
		if len(ps) != 1 || ps[0].Name != "second" {
			t.Errorf("List() = %+v, want one preset named second", ps)
		}
	})

	t.Run("assigns id and timestamp", func(t *testing.T) {
		if err := s.Save(ctx, "fresh", core.Preset{Name: "unnamed"}); err != nil {
			t.Fatal(err)
		}
		p, err := s.Load(ctx, "fresh", "")
		if err != nil {
			t.Fatal(err)
		}
		if p.ID == "" || p.UpdatedAt.IsZero() {
			t.Errorf("saved preset = %+v, want generated id and timestamp", p)
		}
	})

	t.Run("keys are isolated", func(t *testing.T) {
		if _, err := s.Load(ctx, "other", "p1"); !errors.Is(err, core.ErrPresetNotFound) {
			t.Errorf("Load() across keys error = %v, want ErrPresetNotFound", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.Delete(ctx, "grid", "p1"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := s.Load(ctx, "grid", "p1"); !errors.Is(err, core.ErrPresetNotFound) {
			t.Errorf("Load() after Delete error = %v", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestMemoryStore_Isolation(t *testing.T) {
	s := NewMemoryStore()
	p := samplePreset("p", "p", t0)
	if err := s.Save(context.Background(), "g", p); err != nil {
		t.Fatal(err)
	}
	p.Columns.Widths["name"] = 1

	got, _ := s.Load(context.Background(), "g", "p")
	if got.Columns.Widths["name"] != 240 {
		t.Error("store shares maps with the caller")
	}
}

func TestFileStore(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nested", "presets.json"), logging.Discard())
	t.Cleanup(func() { s.Close() })
	testStore(t, s)
}

func TestFileStore_SharedBetweenInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	a := NewFileStore(path, logging.Discard())
	b := NewFileStore(path, logging.Discard())
	ctx := context.Background()

	if err := a.Save(ctx, "g", samplePreset("p", "from a", t0)); err != nil {
		t.Fatal(err)
	}
	got, err := b.Load(ctx, "g", "p")
	if err != nil {
		t.Fatalf("Load() from second instance error = %v", err)
	}
	if got.Name != "from a" {
		t.Errorf("Name = %q, want %q", got.Name, "from a")
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(path, logging.Discard())
	if _, err := s.List(context.Background(), "g"); err == nil {
		t.Error("List() on a corrupt file succeeded")
	}
}

func TestFileStore_WatchSeesExternalWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	watched := NewFileStore(path, logging.Discard())
	writer := NewFileStore(path, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 16)
	if err := watched.Watch(ctx, func() { changed <- struct{}{} }); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// prime the cache with the empty file
	if ps, err := watched.List(ctx, "g"); err != nil || len(ps) != 0 {
		t.Fatalf("List() = %v, %v", ps, err)
	}

	if err := writer.Save(ctx, "g", samplePreset("p", "external", t0)); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	ps, err := watched.List(ctx, "g")
	if err != nil {
		t.Fatal(err)
	}
	if len(ps) != 1 || ps[0].Name != "external" {
		t.Errorf("List() after external write = %+v", ps)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "presets.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	testStore(t, s)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.db")
	ctx := context.Background()

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "g", samplePreset("p", "kept", t0)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Load(ctx, "g", "")
	if err != nil || got.Name != "kept" {
		t.Errorf("Load() after reopen = %+v, %v", got, err)
	}
}

// TestPostgresStore needs a scratch database, e.g.
// PRESETSTORE_TEST_DATABASE_URL=postgres://localhost/gridcore_test.
func TestPostgresStore(t *testing.T) {
	url := os.Getenv("PRESETSTORE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("PRESETSTORE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := OpenPostgres(ctx, url)
	if err != nil {
		t.Fatalf("OpenPostgres() error = %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.pool.Exec(ctx, `DROP TABLE IF EXISTS grid_presets`)
		s.Close()
	})
	_, _ = s.pool.Exec(ctx, `TRUNCATE grid_presets`)
	testStore(t, s)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		cfg     config.PresetConfig
		want    string
		wantErr bool
	}{
		{config.PresetConfig{Backend: "memory"}, "*presetstore.MemoryStore", false},
		{config.PresetConfig{Backend: "file", Path: filepath.Join(dir, "p.json")}, "*presetstore.FileStore", false},
		{config.PresetConfig{Backend: "SQLite", Path: filepath.Join(dir, "p.db")}, "*presetstore.SQLiteStore", false},
		{config.PresetConfig{Backend: "redis"}, "", true},
	}
	for _, tt := range tests {
		s, err := Open(context.Background(), tt.cfg, logging.Discard())
		if (err != nil) != tt.wantErr {
			t.Errorf("Open(%q) error = %v, wantErr %v", tt.cfg.Backend, err, tt.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		if got := typeName(s); got != tt.want {
			t.Errorf("Open(%q) = %s, want %s", tt.cfg.Backend, got, tt.want)
		}
		s.Close()
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *MemoryStore:
		return "*presetstore.MemoryStore"
	case *FileStore:
		return "*presetstore.FileStore"
	case *SQLiteStore:
		return "*presetstore.SQLiteStore"
	case *PostgresStore:
		return "*presetstore.PostgresStore"
	}
	return "unknown"
}
