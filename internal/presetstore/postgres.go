package presetstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/gridcore/internal/core"
)

// PostgresStore keeps presets in a PostgreSQL table with a jsonb body.
type PostgresStore struct {
	pool    *pgxpool.Pool
	ownPool bool
	now     func() time.Time
}

// OpenPostgres connects to url and migrates the presets table. The returned
// store closes its pool on Close.
func OpenPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect to preset database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping preset database: %w", err)
	}
	s, err := NewPostgresStore(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.ownPool = true
	return s, nil
}

// NewPostgresStore uses an existing pool; Close leaves it open.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool, now: time.Now}
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS grid_presets (
			grid_key TEXT NOT NULL,
			id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			data JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (grid_key, id)
		)`)
	if err != nil {
		return nil, fmt.Errorf("migrate presets table: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) Save(ctx context.Context, key string, p core.Preset) error {
	p = prepare(p, s.now())
	data, err := encode(p)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO grid_presets (grid_key, id, name, data, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (grid_key, id) DO UPDATE SET
			name = EXCLUDED.name,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`,
		key, p.ID, p.Name, data, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save preset %s: %w", p.ID, err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, key, id string) (core.Preset, error) {
	var row pgx.Row
	if id == "" {
		row = s.pool.QueryRow(ctx,
			`SELECT data FROM grid_presets WHERE grid_key = $1 ORDER BY updated_at DESC, id LIMIT 1`, key)
	} else {
		row = s.pool.QueryRow(ctx,
			`SELECT data FROM grid_presets WHERE grid_key = $1 AND id = $2`, key, id)
	}
	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Preset{}, notFound(key, id)
		}
		return core.Preset{}, fmt.Errorf("load preset: %w", err)
	}
	return decode(data)
}

func (s *PostgresStore) Delete(ctx context.Context, key, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM grid_presets WHERE grid_key = $1 AND id = $2`, key, id)
	if err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(key, id)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, key string) ([]core.Preset, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM grid_presets WHERE grid_key = $1 ORDER BY updated_at DESC, id`, key)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	out := []core.Preset{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		p, err := decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close closes the pool if the store opened it.
func (s *PostgresStore) Close() error {
	if s.ownPool {
		s.pool.Close()
	}
	return nil
}
