package db

import (
	"context"
	"fmt"
	"log/slog"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
)

const driverName = "sqlite"

var schema = []string{
	`PRAGMA foreign_keys = ON`,
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL DEFAULT '',
		computer TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL DEFAULT '',
		moves TEXT NOT NULL,
		outcome TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS games_owner_id_idx ON games (owner_id, finished_at)`,
}

// Connect opens the SQLite database at dbPath. ":memory:" gives a private
// in-memory database.
func Connect(dbPath string) (*sqlx.DB, error) {
	pool, err := sqlx.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	// A single connection keeps an in-memory database visible to every query.
	pool.SetMaxOpenConns(1)
	return pool, nil
}

// InitializeDB creates the schema if it doesn't exist.
func InitializeDB(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	slog.InfoContext(ctx, "DB connection initialized and schema verified.")
	return nil
}

// Open connects to dbPath and initializes the schema.
func Open(ctx context.Context, dbPath string) (*sqlx.DB, error) {
	pool, err := Connect(dbPath)
	if err != nil {
		return nil, err
	}
	if err := InitializeDB(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
