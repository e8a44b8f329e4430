// Package store is the SQLite-backed listing store consumed by the
// performance layer: plan execution, radius lookups, popular aggregates,
// the search log and the maintenance primitives.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested listing does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the listing database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS listings (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	rent REAL NOT NULL DEFAULT 0,
	rooms INTEGER NOT NULL DEFAULT 0,
	size REAL NOT NULL DEFAULT 0,
	furnished INTEGER NOT NULL DEFAULT 0,
	lat REAL,
	lng REAL,
	available INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_listings_created ON listings(created_at);
CREATE INDEX IF NOT EXISTS idx_listings_city_rent ON listings(city, rent);
CREATE INDEX IF NOT EXISTS idx_listings_geo ON listings(lat, lng);

CREATE TABLE IF NOT EXISTS listing_images (
	id TEXT PRIMARY KEY,
	listing_id TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
	url TEXT NOT NULL,
	is_primary INTEGER NOT NULL DEFAULT 0,
	position INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_images_listing ON listing_images(listing_id, position);

CREATE TABLE IF NOT EXISTS listing_analytics (
	listing_id TEXT PRIMARY KEY REFERENCES listings(id) ON DELETE CASCADE,
	views INTEGER NOT NULL DEFAULT 0,
	likes INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS search_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	query TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_logs_created ON search_logs(created_at);

CREATE TABLE IF NOT EXISTS analytics_summary (
	city TEXT PRIMARY KEY,
	listing_count INTEGER NOT NULL,
	avg_rent REAL NOT NULL,
	min_rent REAL NOT NULL,
	max_rent REAL NOT NULL,
	total_views INTEGER NOT NULL,
	refreshed_at DATETIME NOT NULL
);
`

// DSN returns a modernc sqlite data source name with WAL and a busy timeout,
// so the store and the slow-operation log can share one file.
func DSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

// Open opens the database at path and runs auto-migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store db: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// DB exposes the underlying handle for packages that keep their own tables.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping performs a minimal round trip to the database.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
