package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const createPageCacheTable = `CREATE TABLE IF NOT EXISTS page_cache (
	cache_key TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	cached_at INTEGER NOT NULL
);`

// SQLBackend stores entries in a page_cache table of a SQL database.
// It is used with the libsql driver.
type SQLBackend struct {
	db *sql.DB
}

// NewSQLBackend creates the page_cache table if it does not exist.
func NewSQLBackend(ctx context.Context, db *sql.DB) (*SQLBackend, error) {
	if db == nil {
		return nil, errors.New("sql db is required")
	}
	if _, err := db.ExecContext(ctx, createPageCacheTable); err != nil {
		return nil, fmt.Errorf("migrate page_cache: %w", err)
	}
	return &SQLBackend{db: db}, nil
}

func (b *SQLBackend) Name() string { return "libsql" }

func (b *SQLBackend) Read(ctx context.Context, key Key) ([]byte, error) {
	var data []byte
	row := b.db.QueryRowContext(ctx, `SELECT data FROM page_cache WHERE cache_key = ?`, key.String())
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select page_cache: %w", err)
	}
	return data, nil
}

func (b *SQLBackend) Write(ctx context.Context, key Key, data []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO page_cache (cache_key, data, cached_at) VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET data = excluded.data, cached_at = excluded.cached_at
	`, key.String(), data, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("upsert page_cache: %w", err)
	}
	return nil
}

func (b *SQLBackend) Delete(ctx context.Context, key Key) error {
	res, err := b.db.ExecContext(ctx, `DELETE FROM page_cache WHERE cache_key = ?`, key.String())
	if err != nil {
		return fmt.Errorf("delete page_cache: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (b *SQLBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *SQLBackend) Close() error {
	return b.db.Close()
}
