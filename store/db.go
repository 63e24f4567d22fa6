// Package store persists scrape results in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned when no scrape has the requested id.
var ErrNotFound = errors.New("store: scrape not found")

// DB represents a SQLite database connection.
type DB struct {
	db   *sql.DB
	path string
}

// NewDB creates a new DB instance with the given path.
// Use ":memory:" for an in-memory database.
func NewDB(path string) *DB {
	return &DB{path: path}
}

// Open opens the database connection and creates the schema if needed.
func (db *DB) Open() error {
	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return fmt.Errorf("store: open database: %w", err)
	}

	// One writer at a time; a single connection also keeps ":memory:"
	// databases from splitting across connections.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("store: connect: %w", err)
	}

	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if db.path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return fmt.Errorf("store: %s: %w", p, err)
		}
	}

	db.db = conn

	if err := db.createSchema(); err != nil {
		conn.Close()
		return fmt.Errorf("store: create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// Ping checks the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if db.db == nil {
		return errors.New("store: database not open")
	}
	return db.db.PingContext(ctx)
}

func (db *DB) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS scrapes (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			scraped_at TEXT NOT NULL,
			created_at TEXT NOT NULL,
			section_count INTEGER NOT NULL DEFAULT 0,
			has_errors INTEGER NOT NULL DEFAULT 0,
			result TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_scrapes_created_at ON scrapes(created_at);
		CREATE INDEX IF NOT EXISTS idx_scrapes_url ON scrapes(url);
	`

	_, err := db.db.Exec(schema)
	return err
}
