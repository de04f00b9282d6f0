// Package storage caches crawled college website pages in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql

	"github.com/nnrg-cse/nnrg-assistant-go/internal/config"
)

// DB wraps the SQLite database connection
type DB struct {
	conn    *sql.DB
	path    string
	pageTTL time.Duration // pages older than this are expired
	now     func() time.Time
}

// New opens the database at dbPath and initializes the schema.
// Use ":memory:" for a throwaway database.
func New(ctx context.Context, dbPath string, pageTTL time.Duration) (*DB, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(4)
		conn.SetMaxIdleConns(2)
	}
	conn.SetConnMaxLifetime(config.DatabaseConnMaxLifetime)

	if err := configureConnection(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := InitSchema(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath, pageTTL: pageTTL, now: time.Now}, nil
}

func configureConnection(ctx context.Context, conn *sql.DB) error {
	pragmas := []struct {
		stmt string
		desc string
	}{
		{"PRAGMA journal_mode=WAL", "enable WAL mode"},
		{fmt.Sprintf("PRAGMA busy_timeout=%d", config.DatabaseBusyTimeout.Milliseconds()), "set busy timeout"},
		{"PRAGMA foreign_keys=ON", "enable foreign keys"},
		{"PRAGMA synchronous=NORMAL", "set synchronous mode"},
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p.stmt); err != nil {
			return fmt.Errorf("failed to %s: %w", p.desc, err)
		}
	}
	return nil
}

// NewTestDB creates an in-memory database with a 7-day page TTL.
func NewTestDB(ctx context.Context) (*DB, error) {
	return New(ctx, ":memory:", 168*time.Hour)
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// PageTTL returns the configured page time-to-live.
func (db *DB) PageTTL() time.Duration {
	return db.pageTTL
}

// ttlCutoff returns the Unix time before which pages are expired.
func (db *DB) ttlCutoff() int64 {
	return db.now().Add(-db.pageTTL).Unix()
}
