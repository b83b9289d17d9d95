package presetstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/gridcore/internal/core"
)

// SQLiteStore keeps presets in a SQLite database.
type SQLiteStore struct {
	conn *sql.DB
	now  func() time.Time
}

// OpenSQLite opens (or creates) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time, or SQLITE_BUSY
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{conn: conn, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS grid_presets (
			grid_key TEXT NOT NULL,
			id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			data TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (grid_key, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_grid_presets_recent ON grid_presets(grid_key, updated_at DESC)`,
	}
	for _, m := range migrations {
		if _, err := s.conn.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, key string, p core.Preset) error {
	p = prepare(p, s.now())
	data, err := encode(p)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO grid_presets (grid_key, id, name, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (grid_key, id) DO UPDATE SET
			name = excluded.name,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		key, p.ID, p.Name, string(data), p.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("save preset %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, key, id string) (core.Preset, error) {
	var row *sql.Row
	if id == "" {
		row = s.conn.QueryRowContext(ctx,
			`SELECT data FROM grid_presets WHERE grid_key = ? ORDER BY updated_at DESC, id LIMIT 1`, key)
	} else {
		row = s.conn.QueryRowContext(ctx,
			`SELECT data FROM grid_presets WHERE grid_key = ? AND id = ?`, key, id)
	}
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Preset{}, notFound(key, id)
		}
		return core.Preset{}, fmt.Errorf("load preset: %w", err)
	}
	return decode([]byte(data))
}

func (s *SQLiteStore) Delete(ctx context.Context, key, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM grid_presets WHERE grid_key = ? AND id = ?`, key, id)
	if err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(key, id)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, key string) ([]core.Preset, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT data FROM grid_presets WHERE grid_key = ? ORDER BY updated_at DESC, id`, key)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	out := []core.Preset{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		p, err := decode([]byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
