package persist

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

//go:embed cacheschema/*.sql
var cacheSchema embed.FS

// cacheVersionTable keeps the cache schema version apart from the server
// schema, so one file can hold both.
const cacheVersionTable = "cache_schema_version"

// SQLCache is the durable local cache: one row per key in a SQLite file
// holding the JSON text of the collection.
type SQLCache struct {
	db      *sql.DB
	timeout time.Duration
}

// NewSQLCache brings the cache schema in db up to date.
func NewSQLCache(ctx context.Context, db *sql.DB) (*SQLCache, error) {
	if err := migrateCache(ctx, db); err != nil {
		return nil, fmt.Errorf("migrating cache: %w", err)
	}
	return &SQLCache{db: db, timeout: 5 * time.Second}, nil
}

func migrateCache(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(cacheSchema, "cacheschema")
	if err != nil {
		return err
	}
	store, err := database.NewStore(database.DialectSQLite3, cacheVersionTable)
	if err != nil {
		return err
	}
	p, err := goose.NewProvider("", db, fsys, goose.WithStore(store))
	if err != nil {
		return err
	}
	_, err = p.Up(ctx)
	return err
}

func (c *SQLCache) Read(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	var value string
	err := c.db.QueryRowContext(ctx,
		`SELECT value FROM cache_entries WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "read", Key: key, Err: err}
	}
	return []byte(value), nil
}

func (c *SQLCache) Write(key string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, value, updated_at)
		 VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data),
	)
	if err != nil {
		return &StorageError{Op: "write", Key: key, Err: err}
	}
	return nil
}

// Delete drops the cached value of key. A missing key is not an error.
func (c *SQLCache) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if _, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}
	return nil
}
