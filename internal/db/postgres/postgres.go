package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dishola/dishola/internal/db"
)

// Config holds pool settings for the dish catalog.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Connect opens a pgx pool and verifies it with a ping.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("parse dsn: %w", err)}
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	return pool, nil
}

// WaitForReady polls Ping until the pool responds or timeout expires.
func WaitForReady(ctx context.Context, p db.Pinger, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := p.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for postgres: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Schema creates the catalog tables used by local and CI environments.
const Schema = `
CREATE TABLE IF NOT EXISTS restaurants (
	id       BIGSERIAL PRIMARY KEY,
	name     TEXT NOT NULL,
	address  TEXT,
	lat      DOUBLE PRECISION,
	lng      DOUBLE PRECISION,
	website  TEXT
);

CREATE TABLE IF NOT EXISTS dishes (
	id            BIGSERIAL PRIMARY KEY,
	name          TEXT NOT NULL,
	description   TEXT,
	vote_avg      DOUBLE PRECISION NOT NULL DEFAULT 0,
	restaurant_id BIGINT NOT NULL REFERENCES restaurants(id)
);

CREATE INDEX IF NOT EXISTS dishes_restaurant_id_idx ON dishes (restaurant_id);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return &db.Error{Op: db.OpQuery, Err: fmt.Errorf("migrate: %w", err)}
	}
	return nil
}
