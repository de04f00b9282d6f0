package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all necessary tables and indexes.
func InitSchema(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS pages (
		url TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		body BLOB NOT NULL,
		text_len INTEGER NOT NULL,
		content_hash TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pages_fetched_at ON pages(fetched_at);
	CREATE INDEX IF NOT EXISTS idx_pages_title ON pages(title);
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create pages table: %w", err)
	}
	return nil
}
