package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id BIGSERIAL PRIMARY KEY,
	url TEXT NOT NULL UNIQUE,
	brand TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	product_id BIGINT NOT NULL DEFAULT 0,
	apk DOUBLE PRECISION NOT NULL DEFAULT 0,
	vpk DOUBLE PRECISION NOT NULL DEFAULT 0,
	price DOUBLE PRECISION NOT NULL,
	alcohol DOUBLE PRECISION NOT NULL,
	volume DOUBLE PRECISION NOT NULL,
	country TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT '',
	img TEXT NOT NULL DEFAULT '',
	last_on_site_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_products_apk ON products (apk DESC);
CREATE INDEX IF NOT EXISTS idx_products_last_on_site ON products (last_on_site_at);

CREATE TABLE IF NOT EXISTS ranking_history (
	id BIGSERIAL PRIMARY KEY,
	product_id BIGINT NOT NULL REFERENCES products (id),
	snapshot_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	rank INT NOT NULL,
	apk DOUBLE PRECISION NOT NULL,
	price DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ranking_history_product_date
	ON ranking_history (product_id, snapshot_at DESC);
`

// EnsureSchema creates the products and ranking_history tables if they
// do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// LatestUpdatedAt returns the most recent product update timestamp, or
// nil when the store is empty.
func (s *Store) LatestUpdatedAt(ctx context.Context) (*time.Time, error) {
	var ts sql.NullTime
	err := s.db.GetContext(ctx, &ts, "SELECT MAX(updated_at) FROM products")
	if err != nil {
		return nil, err
	}
	if !ts.Valid {
		return nil, nil
	}
	t := ts.Time
	return &t, nil
}
