// Package sqlite opens the pure-Go SQLite catalog used for local development and tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/dishola/dishola/internal/db"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// Schema mirrors the Postgres catalog tables.
const Schema = `
CREATE TABLE IF NOT EXISTS restaurants (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	name     TEXT NOT NULL,
	address  TEXT,
	lat      REAL,
	lng      REAL,
	website  TEXT
);

CREATE TABLE IF NOT EXISTS dishes (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL,
	description   TEXT,
	vote_avg      REAL NOT NULL DEFAULT 0,
	restaurant_id INTEGER NOT NULL REFERENCES restaurants(id)
);

CREATE INDEX IF NOT EXISTS dishes_restaurant_id_idx ON dishes (restaurant_id);
`

// Open opens the database at path and applies Schema.
// ":memory:" databases are pinned to a single connection so every query sees the same data.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	conn, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, &db.Error{Op: db.OpOpen, Err: err}
	}
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = conn.Close()
		return nil, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("enable foreign keys: %w", err)}
	}
	if _, err := conn.ExecContext(ctx, Schema); err != nil {
		_ = conn.Close()
		return nil, &db.Error{Op: db.OpOpen, Err: fmt.Errorf("apply schema: %w", err)}
	}
	return conn, nil
}
