package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"example.com/golocalevents/internal/storage"
)

const (
	loadSQL = `SELECT value::text FROM local_storage WHERE key = $1`
	saveSQL = `INSERT INTO local_storage (key, value, updated_at) VALUES ($1, $2::jsonb, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

func (db *DB) Load(ctx context.Context, key string) ([]byte, error) {
	var v string
	err := db.Pool.QueryRow(ctx, loadSQL, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return []byte(v), nil
}

// Save upserts the whole value; the collection is always written in full.
func (db *DB) Save(ctx context.Context, key string, value []byte) error {
	if _, err := db.Pool.Exec(ctx, saveSQL, key, string(value)); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}
