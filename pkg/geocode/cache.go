package geocode

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Cache persists geocode results in SQLite, keyed by SHA-256 of the
// normalized address. Non-matches are cached too so repeated lookups of a
// bad address do not hit the providers again.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
}

const cacheMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash TEXT PRIMARY KEY,
	latitude     REAL NOT NULL,
	longitude    REAL NOT NULL,
	source       TEXT NOT NULL,
	quality      TEXT NOT NULL,
	matched      INTEGER NOT NULL,
	cached_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_geocode_cache_cached_at ON geocode_cache(cached_at);
`

// OpenCache opens (or creates) the cache database at the given path and
// configures WAL mode. A zero ttl means entries never expire.
func OpenCache(dsn string, ttl time.Duration) (*Cache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: open cache")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "geocode: exec %s", pragma)
		}
	}
	if _, err := db.Exec(cacheMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "geocode: migrate cache")
	}
	return &Cache{db: db, ttl: ttl}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error { return c.db.Close() }

// Get returns the cached result for a key, or ok=false on a miss or an
// expired entry.
func (c *Cache) Get(ctx context.Context, key string) (*Result, bool, error) {
	query := "SELECT latitude, longitude, source, quality, matched FROM geocode_cache WHERE address_hash = ?"
	args := []any{key}

	if c.ttl > 0 {
		query += " AND cached_at > datetime('now', ?)"
		args = append(args, fmt.Sprintf("-%d seconds", int(c.ttl.Seconds())))
	}

	var r Result
	var matched int
	row := c.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&r.Latitude, &r.Longitude, &r.Source, &r.Quality, &matched); err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, eris.Wrap(err, "geocode: cache get")
	}
	r.Matched = matched != 0

	zap.L().Debug("geocode: cache hit",
		zap.String("key", keyPrefix(key)),
		zap.Bool("matched", r.Matched),
	)
	return &r, true, nil
}

// Put stores a result, replacing any previous entry for the key.
func (c *Cache) Put(ctx context.Context, key string, result *Result) error {
	matched := 0
	if result.Matched {
		matched = 1
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (address_hash, latitude, longitude, source, quality, matched, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (address_hash) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			source = excluded.source,
			quality = excluded.quality,
			matched = excluded.matched,
			cached_at = datetime('now')`,
		key, result.Latitude, result.Longitude, result.Source, result.Quality, matched,
	)
	return eris.Wrap(err, "geocode: cache put")
}

func keyPrefix(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
