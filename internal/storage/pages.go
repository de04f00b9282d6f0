package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	domerrors "github.com/nnrg-cse/nnrg-assistant-go/internal/errors"
)

// HashText returns the content hash stored with a page.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// SavePage inserts or replaces a page. FetchedAt defaults to now and Hash is
// derived from Text.
func (db *DB) SavePage(ctx context.Context, p *Page) error {
	if p == nil || p.URL == "" {
		return domerrors.NewValidationError("url", "must not be empty")
	}
	body, err := compressText(p.Text)
	if err != nil {
		return err
	}
	if p.FetchedAt.IsZero() {
		p.FetchedAt = db.now()
	}
	p.Hash = HashText(p.Text)

	query := `
	INSERT INTO pages (url, path, title, body, text_len, content_hash, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		path = excluded.path,
		title = excluded.title,
		body = excluded.body,
		text_len = excluded.text_len,
		content_hash = excluded.content_hash,
		fetched_at = excluded.fetched_at
	`
	if _, err := db.conn.ExecContext(ctx, query,
		p.URL, p.Path, p.Title, body, len(p.Text), p.Hash, p.FetchedAt.Unix(),
	); err != nil {
		return fmt.Errorf("failed to save page %s: %w", p.URL, err)
	}
	return nil
}

// PageHash returns the stored content hash for url, or "" when the page is
// absent or expired.
func (db *DB) PageHash(ctx context.Context, url string) (string, error) {
	var hash string
	err := db.conn.QueryRowContext(ctx,
		`SELECT content_hash FROM pages WHERE url = ? AND fetched_at > ?`,
		url, db.ttlCutoff(),
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query page hash: %w", err)
	}
	return hash, nil
}

// TouchPage refreshes fetched_at for an unchanged page.
func (db *DB) TouchPage(ctx context.Context, url string) error {
	if _, err := db.conn.ExecContext(ctx,
		`UPDATE pages SET fetched_at = ? WHERE url = ?`, db.now().Unix(), url,
	); err != nil {
		return fmt.Errorf("failed to touch page %s: %w", url, err)
	}
	return nil
}

// GetPage returns a non-expired page, or an error wrapping
// domerrors.ErrNotFound.
func (db *DB) GetPage(ctx context.Context, url string) (*Page, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT url, path, title, body, content_hash, fetched_at
		FROM pages WHERE url = ? AND fetched_at > ?`,
		url, db.ttlCutoff(),
	)
	p, err := scanPage(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %s: %w", url, domerrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPages returns every non-expired page ordered by URL.
func (db *DB) ListPages(ctx context.Context) ([]Page, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT url, path, title, body, content_hash, fetched_at
		FROM pages WHERE fetched_at > ? ORDER BY url`,
		db.ttlCutoff(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pages []Page
	for rows.Next() {
		p, err := scanPage(rows.Scan)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pages: %w", err)
	}
	return pages, nil
}

// SearchPagesByTitle returns non-expired pages whose title contains term.
func (db *DB) SearchPagesByTitle(ctx context.Context, term string) ([]Page, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT url, path, title, body, content_hash, fetched_at
		FROM pages WHERE title LIKE ? ESCAPE '\' AND fetched_at > ?
		ORDER BY url`,
		"%"+sanitizeSearchTerm(term)+"%", db.ttlCutoff(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pages []Page
	for rows.Next() {
		p, err := scanPage(rows.Scan)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

// CountPages returns the number of non-expired pages.
func (db *DB) CountPages(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pages WHERE fetched_at > ?`, db.ttlCutoff(),
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return n, nil
}

// DeleteExpiredPages removes pages past the TTL and returns how many.
func (db *DB) DeleteExpiredPages(ctx context.Context) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM pages WHERE fetched_at <= ?`, db.ttlCutoff())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired pages: %w", err)
	}
	return res.RowsAffected()
}

// Reset removes every cached page.
func (db *DB) Reset(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM pages`); err != nil {
		return fmt.Errorf("failed to reset pages: %w", err)
	}
	return nil
}

func scanPage(scan func(dest ...any) error) (*Page, error) {
	var (
		p         Page
		body      []byte
		fetchedAt int64
	)
	if err := scan(&p.URL, &p.Path, &p.Title, &body, &p.Hash, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan page: %w", err)
	}
	text, err := decompressText(body)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", p.URL, err)
	}
	p.Text = text
	p.FetchedAt = time.Unix(fetchedAt, 0)
	return &p, nil
}
