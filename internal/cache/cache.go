// Package cache stores compiled trampoline Wasm bytes keyed by the
// signature catalog fingerprint that produced them, so two targets that
// happen to exercise the same set of function signatures never pay for
// the same trampoline compile twice.
package cache

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Cache wraps a SQLite-backed content-addressed store. The zero value is
// not usable; construct with Open.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if absent) a cache database at path. Pass ":memory:"
// for an ephemeral, process-local cache.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: opening %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: initializing schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error { return c.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS trampolines (
	fingerprint TEXT PRIMARY KEY,
	wasm_bytes  BLOB NOT NULL,
	created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// Lookup returns the cached trampoline bytes for fingerprint, if present.
func (c *Cache) Lookup(ctx context.Context, fingerprint string) ([]byte, bool, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT wasm_bytes FROM trampolines WHERE fingerprint = ?`, fingerprint)
	var bytes []byte
	switch err := row.Scan(&bytes); err {
	case nil:
		return bytes, true, nil
	case sql.ErrNoRows:
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("cache: looking up %s: %w", fingerprint, err)
	}
}

// Store records compiled trampoline bytes under fingerprint, overwriting
// any prior entry (a fingerprint collision implies the same signature set
// and therefore byte-identical trampoline source, so overwriting is safe).
func (c *Cache) Store(ctx context.Context, fingerprint string, wasmBytes []byte) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO trampolines (fingerprint, wasm_bytes) VALUES (?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET wasm_bytes = excluded.wasm_bytes`,
		fingerprint, wasmBytes)
	if err != nil {
		return fmt.Errorf("cache: storing %s: %w", fingerprint, err)
	}
	return nil
}
